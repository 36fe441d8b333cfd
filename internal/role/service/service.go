package service

import (
	"context"

	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
	"multidevice-identity/backend/internal/role/domain"
)

// Sentinel errors for the role service.
var (
	ErrInvalidUserID = errs.New(errs.ErrInvalidArgument, "user id is required")
	ErrInvalidRole   = errs.New(errs.ErrInvalidArgument, "role name is required")
	ErrRoleNotFound  = errs.New(errs.ErrEntityNotFound, "role not found")
)

// RoleRepo is the role persistence used by UserRoleService.
type RoleRepo interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Role, error)
	Assign(ctx context.Context, ur *domain.UserRole) (bool, error)
}

// Selector picks the primary role from a role set.
type Selector interface {
	PrimaryRole(ctx context.Context, roles []string) (string, error)
}

// UserRoleService resolves and assigns user roles.
type UserRoleService struct {
	repo     RoleRepo
	selector Selector
	clock    clock.Clock
}

// NewUserRoleService returns a UserRoleService.
func NewUserRoleService(repo RoleRepo, selector Selector, clk clock.Clock) *UserRoleService {
	if clk == nil {
		clk = clock.System{}
	}
	return &UserRoleService{repo: repo, selector: selector, clock: clk}
}

// RolesOf returns the roles assigned to the user.
func (s *UserRoleService) RolesOf(ctx context.Context, userID string) ([]*domain.Role, error) {
	if !ids.Valid(userID) {
		return nil, ErrInvalidUserID
	}
	return s.repo.ListByUser(ctx, userID)
}

// HasRole reports whether the user holds the named role.
func (s *UserRoleService) HasRole(ctx context.Context, userID, name string) (bool, error) {
	roles, err := s.RolesOf(ctx, userID)
	if err != nil {
		return false, err
	}
	name = domain.NormalizeName(name)
	for _, r := range roles {
		if domain.NormalizeName(r.Name) == name {
			return true, nil
		}
	}
	return false, nil
}

// AssignRole gives the user the named role. Assigning a role the user already holds is a no-op.
func (s *UserRoleService) AssignRole(ctx context.Context, userID, roleName, assignedBy string) error {
	if !ids.Valid(userID) {
		return ErrInvalidUserID
	}
	roleName = domain.NormalizeName(roleName)
	if roleName == "" {
		return ErrInvalidRole
	}
	role, err := s.repo.GetByName(ctx, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	_, err = s.repo.Assign(ctx, &domain.UserRole{
		UserID:     userID,
		RoleID:     role.ID,
		AssignedBy: assignedBy,
		CreatedAt:  s.clock.Now(),
	})
	return err
}

// EnsureDefaultRole assigns the member role to a user that holds no role yet.
func (s *UserRoleService) EnsureDefaultRole(ctx context.Context, userID string) error {
	roles, err := s.RolesOf(ctx, userID)
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		return nil
	}
	return s.AssignRole(ctx, userID, domain.RoleMember, "system")
}

// PrimaryRole returns the role to put in an access token for roles.
func (s *UserRoleService) PrimaryRole(ctx context.Context, roles []*domain.Role) (string, error) {
	return s.selector.PrimaryRole(ctx, domain.Names(roles))
}

// PrimaryRoleOf loads the user's roles and returns the primary one.
func (s *UserRoleService) PrimaryRoleOf(ctx context.Context, userID string) (string, error) {
	roles, err := s.RolesOf(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.PrimaryRole(ctx, roles)
}
