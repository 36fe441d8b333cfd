package domain

import "time"

// RefreshToken is a persisted opaque refresh credential. Only the SHA-256 hash of the token is stored.
// Once RevokedAt is set it never changes; ReplacedByTokenID is set when the token was rotated.
type RefreshToken struct {
	ID                string
	TokenHash         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	ReplacedByTokenID string
}

// IsExpired reports whether the token is expired at now. A token expiring exactly at now is expired.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// IsRevoked reports whether the token was revoked or rotated.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token can still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
