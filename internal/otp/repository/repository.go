package repository

import (
	"context"
	"time"

	"multidevice-identity/backend/internal/otp/domain"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 15 * time.Minute

// Repository defines persistence for one-time passwords.
type Repository interface {
	Create(ctx context.Context, o *domain.OneTimePassword) error
	GetByID(ctx context.Context, id string) (*domain.OneTimePassword, error)
	// MarkUsed sets is_used on an unused row and reports whether it did.
	MarkUsed(ctx context.Context, id string) (bool, error)
}
