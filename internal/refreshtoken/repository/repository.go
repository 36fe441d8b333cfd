package repository

import (
	"context"
	"errors"
	"time"

	"multidevice-identity/backend/internal/refreshtoken/domain"
)

// DefaultTTL is the lifetime of a refresh token.
const DefaultTTL = 30 * 24 * time.Hour

// ErrAlreadyRotated is returned by Rotate when the predecessor is no longer active.
var ErrAlreadyRotated = errors.New("refresh token already rotated or revoked")

// Repository defines persistence for refresh tokens.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	// Revoke sets revoked_at on an unrevoked token and reports whether it did.
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
	// Rotate revokes oldID and stores next as its successor. At most one successor ever exists per token;
	// a lost race returns ErrAlreadyRotated. Must run in a transaction.
	Rotate(ctx context.Context, oldID string, next *domain.RefreshToken, at time.Time) error
}
