// Package ids creates and checks entity identifiers.
package ids

import "github.com/google/uuid"

// New returns a fresh entity id. Ids are UUIDv7, so ids created later in the process sort
// after earlier ones, both as strings and as Postgres uuid values.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Valid reports whether id is a well-formed, non-nil UUID.
func Valid(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u != uuid.Nil
}
