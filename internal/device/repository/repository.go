package repository

import (
	"context"
	"time"

	"multidevice-identity/backend/internal/device/domain"
)

// Repository defines persistence for devices.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, d *domain.Device) error
	// UpdateLastSeen reports whether a row was updated.
	UpdateLastSeen(ctx context.Context, id string, at time.Time) (bool, error)
	// SetActive reports whether a row exists for id; setting the current value still reports true.
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}
