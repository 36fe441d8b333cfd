package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/ids"
	"multidevice-identity/backend/internal/refreshtoken/domain"
	"multidevice-identity/backend/internal/refreshtoken/repository"
	"multidevice-identity/backend/internal/security"
)

// TokenRepo is the refresh token persistence used by RefreshTokenService.
type TokenRepo interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
	Rotate(ctx context.Context, oldID string, next *domain.RefreshToken, at time.Time) error
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RefreshTokenService owns the refresh token lifecycle: Active, then Rotated or Revoked, or Expired by time.
type RefreshTokenService struct {
	repo  TokenRepo
	tx    TxRunner
	clock clock.Clock
	ttl   time.Duration
	log   *slog.Logger
}

// NewRefreshTokenService returns a RefreshTokenService. ttl <= 0 uses repository.DefaultTTL.
func NewRefreshTokenService(repo TokenRepo, tx TxRunner, clk clock.Clock, ttl time.Duration, log *slog.Logger) *RefreshTokenService {
	if clk == nil {
		clk = clock.System{}
	}
	if ttl <= 0 {
		ttl = repository.DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RefreshTokenService{repo: repo, tx: tx, clock: clk, ttl: ttl, log: log}
}

// Generate creates and stores a new refresh token. The plain token is returned once and never stored.
func (s *RefreshTokenService) Generate(ctx context.Context) (token, tokenID string, err error) {
	t, token, err := s.newToken()
	if err != nil {
		return "", "", err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return "", "", err
	}
	return token, t.ID, nil
}

func (s *RefreshTokenService) newToken() (*domain.RefreshToken, string, error) {
	token, err := security.GenerateOpaqueToken(security.RefreshTokenBytes)
	if err != nil {
		return nil, "", err
	}
	now := s.clock.Now()
	return &domain.RefreshToken{
		ID:        ids.New(),
		TokenHash: security.HashRefreshToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}, token, nil
}

// TryValidate reports whether token is known, unrevoked and expires strictly after now.
// Blank tokens return false without a storage lookup.
func (s *RefreshTokenService) TryValidate(ctx context.Context, token string) (bool, string, error) {
	if strings.TrimSpace(token) == "" {
		return false, "", nil
	}
	t, err := s.repo.GetByHash(ctx, security.HashRefreshToken(token))
	if err != nil {
		return false, "", err
	}
	if t == nil || !t.IsActive(s.clock.Now()) {
		return false, "", nil
	}
	return true, t.ID, nil
}

// Revoke revokes an active token. Blank, unknown, expired or already revoked tokens return false.
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) (bool, error) {
	ok, id, err := s.TryValidate(ctx, token)
	if err != nil || !ok {
		return false, err
	}
	return s.RevokeByID(ctx, id)
}

// RevokeByID revokes the token with id if it is not revoked yet.
func (s *RefreshTokenService) RevokeByID(ctx context.Context, id string) (bool, error) {
	if !ids.Valid(id) {
		return false, nil
	}
	return s.repo.Revoke(ctx, id, s.clock.Now())
}

// Rotate replaces an active token with a new one and returns the successor.
// Invalid tokens and any storage failure, including a lost race, yield empty strings; callers must check.
func (s *RefreshTokenService) Rotate(ctx context.Context, token string) (newToken, newTokenID string, err error) {
	ok, oldID, err := s.TryValidate(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "refreshtoken: validate before rotate failed", "error", err)
		return "", "", nil
	}
	if !ok {
		return "", "", nil
	}
	next, plain, err := s.newToken()
	if err != nil {
		return "", "", err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Rotate(ctx, oldID, next, s.clock.Now())
	})
	if err != nil {
		if !errors.Is(err, repository.ErrAlreadyRotated) {
			s.log.WarnContext(ctx, "refreshtoken: rotate failed", "token_id", oldID, "error", err)
		}
		return "", "", nil
	}
	return plain, next.ID, nil
}
