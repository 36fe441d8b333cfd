package repository

import (
	"context"
	"strings"
	"sync"

	"multidevice-identity/backend/internal/role/domain"
)

// Seeded role ids, matching the initial migration.
const (
	AdminRoleID  = "7b0f3c1e-4a57-4d0e-9a51-6f0b7c1d2e01"
	MemberRoleID = "7b0f3c1e-4a57-4d0e-9a51-6f0b7c1d2e02"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
// It starts with the seeded admin and member roles.
type MemoryRepository struct {
	mu          sync.Mutex
	roles       map[string]*domain.Role
	assignments []*domain.UserRole
}

// NewMemoryRepository returns an in-memory role repository holding the seeded roles.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{roles: map[string]*domain.Role{
		AdminRoleID:  {ID: AdminRoleID, Name: domain.RoleAdmin},
		MemberRoleID: {ID: MemberRoleID, Name: domain.RoleMember},
	}}
}

func (r *MemoryRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if strings.EqualFold(role.Name, name) {
			c := *role
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, a := range r.assignments {
		if a.UserID == userID {
			c := *r.roles[a.RoleID]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Assign(ctx context.Context, ur *domain.UserRole) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.UserID == ur.UserID && a.RoleID == ur.RoleID {
			return false, nil
		}
	}
	c := *ur
	r.assignments = append(r.assignments, &c)
	return true, nil
}

func (r *MemoryRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return nil
		}
	}
	c := *role
	r.roles[role.ID] = &c
	return nil
}
