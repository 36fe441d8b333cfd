package rbac

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"multidevice-identity/backend/internal/server/interceptors"
)

// mockRoleChecker implements RoleChecker for tests.
type mockRoleChecker struct {
	grants map[string]bool
	err    error
}

func (m *mockRoleChecker) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.grants[userID+":"+role], nil
}

func TestRequireRole_Success(t *testing.T) {
	checker := &mockRoleChecker{grants: map[string]bool{"user-1:admin": true}}
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "a@example.com", "admin")

	userID, err := RequireRole(ctx, checker, "admin")
	if err != nil {
		t.Fatalf("RequireRole: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("user_id = %q, want %q", userID, "user-1")
	}
}

func TestRequireRole_StaleClaimDenied(t *testing.T) {
	checker := &mockRoleChecker{grants: map[string]bool{}}
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "a@example.com", "admin")

	_, err := RequireRole(ctx, checker, "admin")
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied", status.Code(err))
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	_, err := RequireRole(context.Background(), &mockRoleChecker{}, "admin")
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestRequireRole_CheckerError(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "user-1", "", "")
	_, err := RequireRole(ctx, &mockRoleChecker{err: errors.New("db down")}, "admin")
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}

func TestRequireUser(t *testing.T) {
	if _, err := RequireUser(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
	userID, err := RequireUser(interceptors.WithIdentity(context.Background(), "user-2", "", ""))
	if err != nil || userID != "user-2" {
		t.Errorf("RequireUser = %q, %v", userID, err)
	}
}
