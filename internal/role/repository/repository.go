package repository

import (
	"context"

	"multidevice-identity/backend/internal/role/domain"
)

// Repository defines persistence for roles and user role assignments.
type Repository interface {
	// GetByName returns the role with name (case-insensitive), or nil if not found.
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	// ListByUser returns the user's roles in assignment order.
	ListByUser(ctx context.Context, userID string) ([]*domain.Role, error)
	// Assign stores the assignment and reports whether it was new.
	Assign(ctx context.Context, ur *domain.UserRole) (bool, error)
	// CreateRole inserts a role if no role with the same name exists.
	CreateRole(ctx context.Context, r *domain.Role) error
}
