package repository

import (
	"context"
	"errors"

	"multidevice-identity/backend/internal/tokencontext/domain"
)

// ErrDuplicate is returned by Create when the refresh token already has a context.
var ErrDuplicate = errors.New("refresh token already bound to a context")

// Repository defines persistence for token contexts.
type Repository interface {
	Create(ctx context.Context, c *domain.TokenContext) error
	// GetActiveByRefreshTokenID returns the unrevoked context for the token, or nil.
	GetActiveByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.TokenContext, error)
	// RevokeByRefreshTokenID revokes the token's context and reports whether an active one was revoked.
	RevokeByRefreshTokenID(ctx context.Context, refreshTokenID string) (bool, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.TokenContext, error)
}
