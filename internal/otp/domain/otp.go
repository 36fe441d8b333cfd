package domain

import "time"

// OneTimePassword is an issued login code. Only the bcrypt hash of the code is stored.
type OneTimePassword struct {
	ID        string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
}

// Expired reports whether the code is past its expiry at now. The expiry instant itself is still valid.
func (o *OneTimePassword) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
