package repository

import (
	"context"

	"multidevice-identity/backend/internal/verification/domain"
)

// Repository defines persistence for verification contexts.
type Repository interface {
	Create(ctx context.Context, c *domain.Context) error
	// GetLatestByUser returns the most recently created context for the user, or nil if none.
	GetLatestByUser(ctx context.Context, userID string) (*domain.Context, error)
}
