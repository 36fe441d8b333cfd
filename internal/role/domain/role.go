package domain

import (
	"strings"
	"time"
)

// Seeded role names.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Role is a named permission set. Names are unique case-insensitively.
type Role struct {
	ID   string
	Name string
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID     string
	RoleID     string
	AssignedBy string
	CreatedAt  time.Time
}

// NormalizeName trims and lower-cases a role name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the names of roles in order.
func Names(roles []*Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Name)
	}
	return out
}
