package service

import (
	"context"
	"log/slog"

	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
	userdomain "multidevice-identity/backend/internal/user/domain"
	"multidevice-identity/backend/internal/verification/domain"
)

// Sentinel errors for the verification service.
var (
	ErrInvalidEmail = errs.New(errs.ErrInvalidArgument, "invalid email address")
	ErrUserNotFound = errs.New(errs.ErrEntityNotFound, "user not found")
)

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepo is the user persistence used by the verification flow.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetOrCreate(ctx context.Context, u *userdomain.User) (*userdomain.User, bool, error)
}

// ContextRepo is the verification context persistence.
type ContextRepo interface {
	Create(ctx context.Context, c *domain.Context) error
	GetLatestByUser(ctx context.Context, userID string) (*domain.Context, error)
}

// OTPs issues and checks one-time codes.
type OTPs interface {
	Generate(ctx context.Context) (otpID, code string, err error)
	IsValid(ctx context.Context, otpID, code string) (bool, error)
	MarkUsed(ctx context.Context, otpID string) (bool, error)
}

// RoleEnsurer gives a user the default role when they hold none.
type RoleEnsurer interface {
	EnsureDefaultRole(ctx context.Context, userID string) error
}

// CodeSender delivers a login code to an email address.
type CodeSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// VerificationService runs the email code challenge: send a code, then verify it.
type VerificationService struct {
	tx       TxRunner
	users    UserRepo
	contexts ContextRepo
	otps     OTPs
	roles    RoleEnsurer
	sender   CodeSender
	clock    clock.Clock
	log      *slog.Logger
}

// NewVerificationService returns a VerificationService. roles may be nil to skip default role assignment.
func NewVerificationService(tx TxRunner, users UserRepo, contexts ContextRepo, otps OTPs, roles RoleEnsurer, sender CodeSender, clk clock.Clock, log *slog.Logger) *VerificationService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &VerificationService{tx: tx, users: users, contexts: contexts, otps: otps, roles: roles, sender: sender, clock: clk, log: log}
}

// SendCode creates the user on first contact, issues an OTP and emails it.
// A delivery failure returns false but the OTP and its context are kept so the caller can resend.
func (s *VerificationService) SendCode(ctx context.Context, email string) (bool, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return false, ErrInvalidEmail
	}
	sent := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, created, err := s.users.GetOrCreate(ctx, &userdomain.User{ID: ids.New(), Email: email, CreatedAt: s.clock.Now()})
		if err != nil {
			return err
		}
		if s.roles != nil {
			if err := s.roles.EnsureDefaultRole(ctx, u.ID); err != nil {
				return err
			}
		}
		otpID, code, err := s.otps.Generate(ctx)
		if err != nil {
			return err
		}
		vc := &domain.Context{ID: ids.New(), UserID: u.ID, OTPID: otpID, CreatedAt: s.clock.Now()}
		if err := s.contexts.Create(ctx, vc); err != nil {
			return err
		}
		if err := s.sender.SendCode(ctx, email, code); err != nil {
			s.log.WarnContext(ctx, "verification: send code failed", "user_id", u.ID, "new_user", created, "error", err)
			return nil
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return sent, nil
}

// TryVerifyCode checks code against the user's latest OTP and consumes it on success.
// A missing user is ErrUserNotFound; any other mismatch is (false, "", nil).
func (s *VerificationService) TryVerifyCode(ctx context.Context, email, code string) (verified bool, userID string, err error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return false, "", ErrInvalidEmail
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		vc, err := s.contexts.GetLatestByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if vc == nil {
			return nil
		}
		ok, err := s.otps.IsValid(ctx, vc.OTPID, code)
		if err != nil || !ok {
			return err
		}
		used, err := s.otps.MarkUsed(ctx, vc.OTPID)
		if err != nil || !used {
			return err
		}
		verified, userID = true, u.ID
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return verified, userID, nil
}
