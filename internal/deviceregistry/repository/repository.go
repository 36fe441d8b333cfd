package repository

import (
	"context"
	"errors"

	"multidevice-identity/backend/internal/deviceregistry/domain"
)

// ErrDuplicate is returned by Create when (user_id, fingerprint) is already registered.
var ErrDuplicate = errors.New("device registration already exists")

// Repository defines persistence for device registrations.
type Repository interface {
	// FindDeviceID returns the device id registered for (userID, fingerprint), or "" if none.
	FindDeviceID(ctx context.Context, userID, fingerprint string) (string, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, r *domain.Registration) error
	ListDeviceIDsByUser(ctx context.Context, userID string) ([]string, error)
}
