package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	registrydomain "multidevice-identity/backend/internal/deviceregistry/domain"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
	roledomain "multidevice-identity/backend/internal/role/domain"
	"multidevice-identity/backend/internal/telemetry"
	telemetrydomain "multidevice-identity/backend/internal/telemetry/domain"
	telemetryotel "multidevice-identity/backend/internal/telemetry/otel"
	tokencontextdomain "multidevice-identity/backend/internal/tokencontext/domain"
	userdomain "multidevice-identity/backend/internal/user/domain"
)

const tracerName = "multidevice-identity/identity"

// eventSource tags events emitted by this package.
const eventSource = "identity-service"

// Sentinel errors for the identity services; the handler maps their kinds to gRPC codes.
var (
	ErrInvalidUserID       = errs.New(errs.ErrInvalidArgument, "user id is required")
	ErrNilDeviceDetails    = errs.New(errs.ErrInvalidArgument, "device details are required")
	ErrUserNotFound        = errs.New(errs.ErrEntityNotFound, "user not found")
	ErrDeviceNotFound      = errs.New(errs.ErrEntityNotFound, "device not registered to user")
	ErrInvalidRefreshToken = errs.New(errs.ErrInvalidOperation, "invalid or expired refresh token")
	ErrSessionNotFound     = errs.New(errs.ErrInvalidOperation, "no active session for refresh token")
	ErrRotationFailed      = errs.New(errs.ErrInvalidOperation, "refresh token rotation failed")
	ErrRevocationMismatch  = errs.New(errs.ErrInvalidOperation, "refresh token has no active session to revoke")
)

// TokenPair is the result of a successful establish or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is the access token expiry.
	ExpiresAt time.Time
	UserID    string
	DeviceID  string
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DeviceAssociator resolves or registers the device a user logs in from.
type DeviceAssociator interface {
	AssociateDevice(ctx context.Context, userID string, details *registrydomain.DeviceDetails) (string, error)
	OwnsDevice(ctx context.Context, userID, deviceID string) (bool, error)
}

// DeviceDisabler marks a device inactive.
type DeviceDisabler interface {
	Disable(ctx context.Context, id string) (bool, error)
}

// UserReader loads users by id.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RefreshTokens is the refresh token lifecycle used by the orchestrator.
type RefreshTokens interface {
	Generate(ctx context.Context) (token, tokenID string, err error)
	TryValidate(ctx context.Context, token string) (bool, string, error)
	RevokeByID(ctx context.Context, id string) (bool, error)
	Rotate(ctx context.Context, token string) (newToken, newTokenID string, err error)
}

// TokenContexts is the session persistence keyed by refresh token id.
type TokenContexts interface {
	Create(ctx context.Context, c *tokencontextdomain.TokenContext) error
	GetActiveByRefreshTokenID(ctx context.Context, refreshTokenID string) (*tokencontextdomain.TokenContext, error)
	RevokeByRefreshTokenID(ctx context.Context, refreshTokenID string) (bool, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*tokencontextdomain.TokenContext, error)
}

// Roles loads a user's roles and picks the one carried in access tokens.
type Roles interface {
	RolesOf(ctx context.Context, userID string) ([]*roledomain.Role, error)
	PrimaryRole(ctx context.Context, roles []*roledomain.Role) (string, error)
}

// AccessMinter signs access tokens.
type AccessMinter interface {
	IssueAccess(userID, email, role string) (token string, jti string, expiresAt time.Time, err error)
}

// IdentityDeps groups the collaborators of MultiDeviceIdentityService. Clock, Log, Metrics and
// Events are optional.
type IdentityDeps struct {
	Tx       TxRunner
	Registry DeviceAssociator
	Devices  DeviceDisabler
	Users    UserReader
	Tokens   RefreshTokens
	Contexts TokenContexts
	Roles    Roles
	Minter   AccessMinter
	Clock    clock.Clock
	Log      *slog.Logger
	Metrics  *telemetryotel.IdentityMetrics
	Events   telemetry.EventEmitter
}

// MultiDeviceIdentityService establishes, refreshes and revokes per-device sessions.
// Every operation is one unit of work: it either fully succeeds or leaves no writes behind.
type MultiDeviceIdentityService struct {
	tx       TxRunner
	registry DeviceAssociator
	devices  DeviceDisabler
	users    UserReader
	tokens   RefreshTokens
	contexts TokenContexts
	roles    Roles
	minter   AccessMinter
	clock    clock.Clock
	log      *slog.Logger
	metrics  *telemetryotel.IdentityMetrics
	events   telemetry.EventEmitter
	tracer   trace.Tracer
}

// NewMultiDeviceIdentityService returns a MultiDeviceIdentityService using the global tracer provider.
func NewMultiDeviceIdentityService(d IdentityDeps) *MultiDeviceIdentityService {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &MultiDeviceIdentityService{
		tx:       d.Tx,
		registry: d.Registry,
		devices:  d.Devices,
		users:    d.Users,
		tokens:   d.Tokens,
		contexts: d.Contexts,
		roles:    d.Roles,
		minter:   d.Minter,
		clock:    d.Clock,
		log:      d.Log,
		metrics:  d.Metrics,
		events:   d.Events,
		tracer:   otel.Tracer(tracerName),
	}
}

// EstablishIdentity logs the user in on the described device and returns a fresh token pair.
// Arguments are checked before any transaction is opened.
func (s *MultiDeviceIdentityService) EstablishIdentity(ctx context.Context, userID string, details *registrydomain.DeviceDetails) (pair TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "identity.EstablishIdentity", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { s.finish(ctx, span, "establish", err) }()

	if !ids.Valid(userID) {
		return TokenPair{}, ErrInvalidUserID
	}
	if details == nil {
		return TokenPair{}, ErrNilDeviceDetails
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		deviceID, err := s.registry.AssociateDevice(ctx, userID, details)
		if err != nil {
			return fmt.Errorf("associate device: %w", err)
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		refresh, refreshID, err := s.tokens.Generate(ctx)
		if err != nil {
			return fmt.Errorf("generate refresh token: %w", err)
		}
		if err := s.bindSession(ctx, user.ID, deviceID, refreshID); err != nil {
			return err
		}
		access, expiresAt, err := s.mint(ctx, user)
		if err != nil {
			return err
		}
		pair = TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt, UserID: user.ID, DeviceID: deviceID}
		span.SetAttributes(attribute.String("device.id", deviceID))
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	s.metrics.Established(ctx)
	s.emit(ctx, &telemetrydomain.Event{
		Type:     telemetrydomain.EventIdentityEstablished,
		UserID:   pair.UserID,
		DeviceID: pair.DeviceID,
		IP:       details.IPAddress,
		Metadata: map[string]string{"browser": details.Browser, "os": details.OS},
	})
	return pair, nil
}

// RefreshIdentity rotates oldToken and opens a new session on the same device.
// Invalid tokens, tokens without an active session and lost rotation races fail with an
// ErrInvalidOperation kind.
func (s *MultiDeviceIdentityService) RefreshIdentity(ctx context.Context, oldToken string) (pair TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "identity.RefreshIdentity")
	defer func() { s.finish(ctx, span, "refresh", err) }()

	var oldID string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, tokenID, err := s.tokens.TryValidate(ctx, oldToken)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidRefreshToken
		}
		oldID = tokenID
		session, err := s.contexts.GetActiveByRefreshTokenID(ctx, tokenID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		refresh, refreshID, err := s.tokens.Rotate(ctx, oldToken)
		if err != nil {
			return err
		}
		if refresh == "" {
			return ErrRotationFailed
		}
		if err := s.revokeSession(ctx, tokenID); err != nil {
			return err
		}
		if err := s.bindSession(ctx, session.UserID, session.DeviceID, refreshID); err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, session.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		access, expiresAt, err := s.mint(ctx, user)
		if err != nil {
			return err
		}
		pair = TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt, UserID: user.ID, DeviceID: session.DeviceID}
		span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("device.id", session.DeviceID))
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	s.metrics.Refreshed(ctx)
	s.emit(ctx, &telemetrydomain.Event{
		Type:     telemetrydomain.EventIdentityRefreshed,
		UserID:   pair.UserID,
		DeviceID: pair.DeviceID,
		TokenID:  oldID,
	})
	return pair, nil
}

// RevokeIdentity ends the session owned by token. It returns false for blank, unknown, expired
// or already revoked tokens.
func (s *MultiDeviceIdentityService) RevokeIdentity(ctx context.Context, token string) (revoked bool, err error) {
	ctx, span := s.tracer.Start(ctx, "identity.RevokeIdentity")
	defer func() { s.finish(ctx, span, "revoke", err) }()

	var session *tokencontextdomain.TokenContext
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ok, tokenID, err := s.tokens.TryValidate(ctx, token)
		if err != nil || !ok {
			return err
		}
		session, err = s.contexts.GetActiveByRefreshTokenID(ctx, tokenID)
		if err != nil {
			return err
		}
		if err := s.revokeSession(ctx, tokenID); err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if revoked {
		s.metrics.Revoked(ctx)
		ev := &telemetrydomain.Event{Type: telemetrydomain.EventIdentityRevoked}
		if session != nil {
			ev.UserID, ev.DeviceID, ev.TokenID = session.UserID, session.DeviceID, session.RefreshTokenID
		}
		s.emit(ctx, ev)
	}
	return revoked, nil
}

// DisableDevice deactivates one of the user's devices and revokes every session open on it.
// It returns the number of sessions revoked.
func (s *MultiDeviceIdentityService) DisableDevice(ctx context.Context, userID, deviceID string) (revoked int, err error) {
	ctx, span := s.tracer.Start(ctx, "identity.DisableDevice", trace.WithAttributes(attribute.String("user.id", userID), attribute.String("device.id", deviceID)))
	defer func() { s.finish(ctx, span, "disable_device", err) }()

	if !ids.Valid(userID) {
		return 0, ErrInvalidUserID
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		owns, err := s.registry.OwnsDevice(ctx, userID, deviceID)
		if err != nil {
			return err
		}
		if !owns {
			return ErrDeviceNotFound
		}
		if _, err := s.devices.Disable(ctx, deviceID); err != nil {
			return fmt.Errorf("disable device: %w", err)
		}
		sessions, err := s.contexts.ListActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, c := range sessions {
			if c.DeviceID != deviceID {
				continue
			}
			if err := s.revokeSession(ctx, c.RefreshTokenID); err != nil {
				return err
			}
			revoked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.emit(ctx, &telemetrydomain.Event{
		Type:     telemetrydomain.EventDeviceDisabled,
		UserID:   userID,
		DeviceID: deviceID,
		Metadata: map[string]string{"sessions_revoked": fmt.Sprint(revoked)},
	})
	return revoked, nil
}

// revokeSession is the only path that revokes a session. The refresh token is revoked first
// (a no-op if rotation already did it), then its context; a token without an active context
// means the two have drifted and the unit of work is aborted.
func (s *MultiDeviceIdentityService) revokeSession(ctx context.Context, refreshTokenID string) error {
	if _, err := s.tokens.RevokeByID(ctx, refreshTokenID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	ok, err := s.contexts.RevokeByRefreshTokenID(ctx, refreshTokenID)
	if err != nil {
		return fmt.Errorf("revoke token context: %w", err)
	}
	if !ok {
		return ErrRevocationMismatch
	}
	return nil
}

func (s *MultiDeviceIdentityService) bindSession(ctx context.Context, userID, deviceID, refreshTokenID string) error {
	c := &tokencontextdomain.TokenContext{
		ID:             ids.New(),
		UserID:         userID,
		DeviceID:       deviceID,
		RefreshTokenID: refreshTokenID,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.contexts.Create(ctx, c); err != nil {
		return fmt.Errorf("create token context: %w", err)
	}
	return nil
}

func (s *MultiDeviceIdentityService) mint(ctx context.Context, user *userdomain.User) (string, time.Time, error) {
	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	role, err := s.roles.PrimaryRole(ctx, roles)
	if err != nil {
		return "", time.Time{}, err
	}
	token, _, expiresAt, err := s.minter.IssueAccess(user.ID, user.Email, role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("mint access token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *MultiDeviceIdentityService) emit(ctx context.Context, ev *telemetrydomain.Event) {
	ev.Source = eventSource
	ev.CreatedAt = s.clock.Now()
	telemetry.EmitAsync(s.events, ctx, ev)
}

func (s *MultiDeviceIdentityService) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Failed(ctx, op, FailureReason(err))
		if errorKind(err) == "internal" {
			s.log.ErrorContext(ctx, "identity: operation failed", "op", op, "error", err)
		}
	}
	span.End()
}

// FailureReason returns a short label for err suitable for metrics and audit metadata.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_token"
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrRevocationMismatch):
		return "session_mismatch"
	case errors.Is(err, ErrRotationFailed):
		return "rotation_race"
	}
	return errorKind(err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, errs.ErrEntityNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrBusinessRuleViolation):
		return "business_rule"
	case errors.Is(err, errs.ErrInvalidOperation):
		return "invalid_operation"
	}
	return "internal"
}
