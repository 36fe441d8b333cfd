package service

import (
	"context"
	"time"

	"multidevice-identity/backend/internal/otp"
	"multidevice-identity/backend/internal/otp/domain"
	"multidevice-identity/backend/internal/otp/repository"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
)

// ErrInvalidID is returned by MarkUsed for a malformed id.
var ErrInvalidID = errs.New(errs.ErrInvalidArgument, "otp id is required")

// OTPRepo is the OTP persistence used by OTPService.
type OTPRepo interface {
	Create(ctx context.Context, o *domain.OneTimePassword) error
	GetByID(ctx context.Context, id string) (*domain.OneTimePassword, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
}

// CodeHasher hashes codes for storage and checks them later.
type CodeHasher interface {
	Hash(secret []byte) (string, error)
	Matches(hash string, secret []byte) bool
}

// OTPService issues and checks one-time login codes.
type OTPService struct {
	repo   OTPRepo
	hasher CodeHasher
	clock  clock.Clock
	ttl    time.Duration
}

// NewOTPService returns an OTPService. ttl <= 0 uses repository.DefaultTTL.
func NewOTPService(repo OTPRepo, hasher CodeHasher, clk clock.Clock, ttl time.Duration) *OTPService {
	if clk == nil {
		clk = clock.System{}
	}
	if ttl <= 0 {
		ttl = repository.DefaultTTL
	}
	return &OTPService{repo: repo, hasher: hasher, clock: clk, ttl: ttl}
}

// Generate stores a fresh code and returns its id and the plain code. The code is independent of the id.
func (s *OTPService) Generate(ctx context.Context) (otpID, code string, err error) {
	code, err = otp.GenerateCode()
	if err != nil {
		return "", "", err
	}
	hash, err := s.hasher.Hash([]byte(code))
	if err != nil {
		return "", "", err
	}
	now := s.clock.Now()
	o := &domain.OneTimePassword{
		ID:        ids.New(),
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return "", "", err
	}
	return o.ID, code, nil
}

// IsValid reports whether code matches the unused, unexpired OTP otpID.
// Malformed codes return false without a storage lookup.
func (s *OTPService) IsValid(ctx context.Context, otpID, code string) (bool, error) {
	if !otp.IsWellFormed(code) || !ids.Valid(otpID) {
		return false, nil
	}
	o, err := s.repo.GetByID(ctx, otpID)
	if err != nil {
		return false, err
	}
	if o == nil || o.IsUsed || o.Expired(s.clock.Now()) {
		return false, nil
	}
	return s.hasher.Matches(o.CodeHash, []byte(code)), nil
}

// MarkUsed consumes the OTP. It returns false when the OTP is unknown or already used.
func (s *OTPService) MarkUsed(ctx context.Context, otpID string) (bool, error) {
	if !ids.Valid(otpID) {
		return false, ErrInvalidID
	}
	return s.repo.MarkUsed(ctx, otpID)
}
