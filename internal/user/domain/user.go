package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned by ValidateEmail for blank or malformed addresses.
var ErrInvalidEmail = errors.New("invalid email address")

var validate = validator.New()

// User is the core user entity. Email is stored normalized (trimmed, lower-case).
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email (already normalized) is a syntactically valid address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=320"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	return ValidateEmail(u.Email)
}
