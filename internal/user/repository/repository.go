package repository

import (
	"context"

	"multidevice-identity/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail looks up by normalized email; matching is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	// GetOrCreate inserts u unless a user with the same email exists, and returns the stored user.
	// created reports whether u was inserted.
	GetOrCreate(ctx context.Context, u *domain.User) (stored *domain.User, created bool, err error)
}
