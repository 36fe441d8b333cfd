package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	registrydomain "multidevice-identity/backend/internal/deviceregistry/domain"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
	"multidevice-identity/backend/internal/ratelimit"
	"multidevice-identity/backend/internal/telemetry"
	telemetrydomain "multidevice-identity/backend/internal/telemetry/domain"
	telemetryotel "multidevice-identity/backend/internal/telemetry/otel"
	userdomain "multidevice-identity/backend/internal/user/domain"
	verificationservice "multidevice-identity/backend/internal/verification/service"
)

// Sentinel errors for the passwordless facade.
var (
	ErrInvalidEmail        = errs.New(errs.ErrInvalidArgument, "invalid email address")
	ErrRefreshTokenMissing = errs.New(errs.ErrInvalidArgument, "refresh token is required")
	ErrRateLimited         = errs.New(errs.ErrBusinessRuleViolation, "too many code requests; try again later")
	ErrInvalidCode         = errs.New(errs.ErrInvalidOperation, "invalid or expired code")
)

// Verifier runs the email code challenge.
type Verifier interface {
	SendCode(ctx context.Context, email string) (bool, error)
	TryVerifyCode(ctx context.Context, email, code string) (bool, string, error)
}

// Identities is the session orchestrator behind the facade.
type Identities interface {
	EstablishIdentity(ctx context.Context, userID string, details *registrydomain.DeviceDetails) (TokenPair, error)
	RefreshIdentity(ctx context.Context, oldToken string) (TokenPair, error)
	RevokeIdentity(ctx context.Context, token string) (bool, error)
}

// PrimaryRoles resolves the role carried in a user's access token.
type PrimaryRoles interface {
	PrimaryRoleOf(ctx context.Context, userID string) (string, error)
}

// PasswordlessAuthService is the login surface: request a code, exchange it for tokens,
// refresh and log out.
type PasswordlessAuthService struct {
	verifier   Verifier
	identities Identities
	users      UserReader
	roles      PrimaryRoles
	limiter    ratelimit.Limiter
	log        *slog.Logger
	metrics    *telemetryotel.IdentityMetrics
	events     telemetry.EventEmitter
}

// NewPasswordlessAuthService returns a PasswordlessAuthService. A nil limiter allows every request;
// metrics and events may be nil.
func NewPasswordlessAuthService(
	verifier Verifier,
	identities Identities,
	users UserReader,
	roles PrimaryRoles,
	limiter ratelimit.Limiter,
	log *slog.Logger,
	metrics *telemetryotel.IdentityMetrics,
	events telemetry.EventEmitter,
) *PasswordlessAuthService {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &PasswordlessAuthService{
		verifier:   verifier,
		identities: identities,
		users:      users,
		roles:      roles,
		limiter:    limiter,
		log:        log,
		metrics:    metrics,
		events:     events,
	}
}

// InitiateLogin emails a login code to email. It reports whether the email was delivered; the code
// stays valid either way. Requests past the per-address budget fail with ErrRateLimited.
func (s *PasswordlessAuthService) InitiateLogin(ctx context.Context, email string) (bool, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return false, ErrInvalidEmail
	}
	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		// Limiter outages must not lock everyone out.
		s.log.WarnContext(ctx, "identity: rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		s.metrics.Failed(ctx, "send_code", "rate_limited")
		return false, ErrRateLimited
	}
	sent, err := s.verifier.SendCode(ctx, email)
	if err != nil {
		return false, err
	}
	s.metrics.OTPSent(ctx, sent)
	ev := &telemetrydomain.Event{Type: telemetrydomain.EventOTPSent, Source: eventSource}
	if !sent {
		ev.Type = telemetrydomain.EventOTPSendFailed
	}
	telemetry.EmitAsync(s.events, ctx, ev)
	return sent, nil
}

// CompleteLogin exchanges a login code for a session on the described device.
// Unknown addresses and wrong, used or expired codes all fail with ErrInvalidCode.
func (s *PasswordlessAuthService) CompleteLogin(ctx context.Context, email, code string, details *registrydomain.DeviceDetails) (TokenPair, error) {
	if details == nil {
		return TokenPair{}, ErrNilDeviceDetails
	}
	verified, userID, err := s.verifier.TryVerifyCode(ctx, email, strings.TrimSpace(code))
	switch {
	case errors.Is(err, verificationservice.ErrInvalidEmail):
		return TokenPair{}, ErrInvalidEmail
	case errors.Is(err, verificationservice.ErrUserNotFound):
		verified = false
	case err != nil:
		return TokenPair{}, err
	}
	if !verified {
		s.metrics.Failed(ctx, "verify_code", "invalid_code")
		telemetry.EmitAsync(s.events, ctx, &telemetrydomain.Event{Type: telemetrydomain.EventOTPRejected, IP: details.IPAddress, Source: eventSource})
		return TokenPair{}, ErrInvalidCode
	}
	telemetry.EmitAsync(s.events, ctx, &telemetrydomain.Event{Type: telemetrydomain.EventOTPVerified, UserID: userID, IP: details.IPAddress, Source: eventSource})
	return s.identities.EstablishIdentity(ctx, userID, details)
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *PasswordlessAuthService) RefreshToken(ctx context.Context, token string) (TokenPair, error) {
	if strings.TrimSpace(token) == "" {
		return TokenPair{}, ErrRefreshTokenMissing
	}
	return s.identities.RefreshIdentity(ctx, token)
}

// Logout revokes the session behind token. Unknown or already revoked tokens are a no-op.
func (s *PasswordlessAuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.identities.RevokeIdentity(ctx, token)
	return err
}

// UserInfo returns the user's email and primary role.
func (s *PasswordlessAuthService) UserInfo(ctx context.Context, userID string) (email, role string, err error) {
	if !ids.Valid(userID) {
		return "", "", ErrInvalidUserID
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if u == nil {
		return "", "", ErrUserNotFound
	}
	role, err = s.roles.PrimaryRoleOf(ctx, u.ID)
	if err != nil {
		return "", "", err
	}
	return u.Email, role, nil
}
