// Package rbac holds handler-side authorization checks on the caller identity set by the auth interceptor.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"multidevice-identity/backend/internal/server/interceptors"
)

// RoleChecker reports whether a user currently holds a role.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RequireUser returns the authenticated caller's user id, or Unauthenticated.
func RequireUser(ctx context.Context) (string, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	return userID, nil
}

// RequireRole ensures the caller is authenticated and holds role. The role claim in the access
// token is only a hint; the grant is re-checked against checker so a revoked role stops working
// before the token expires.
// Returns the caller's user id on success, or a gRPC error (Unauthenticated, PermissionDenied or Internal).
func RequireRole(ctx context.Context, checker RoleChecker, role string) (string, error) {
	userID, err := RequireUser(ctx)
	if err != nil {
		return "", err
	}
	ok, err := checker.HasRole(ctx, userID, role)
	if err != nil {
		return "", status.Error(codes.Internal, "failed to resolve roles")
	}
	if !ok {
		return "", status.Error(codes.PermissionDenied, role+" role required")
	}
	return userID, nil
}
