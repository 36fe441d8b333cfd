package engine

import "context"

// DefaultRole is the role used when a user holds none or policy evaluation fails.
const DefaultRole = "member"

// RoleSelector picks the single role carried in an access token from the roles a user holds.
type RoleSelector interface {
	// PrimaryRole returns the most privileged of roles. Empty input yields DefaultRole.
	PrimaryRole(ctx context.Context, roles []string) (string, error)
}
