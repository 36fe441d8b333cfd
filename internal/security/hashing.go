package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies short secrets (one-time codes) using bcrypt. A six digit code has
// under a million values, so a fast digest would be reversible from a leaked row.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to [MinCost, MaxCost].
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret suitable for storage.
func (h *Hasher) Hash(secret []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(secret, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Matches reports whether secret matches the stored hash. Invalid hashes never match.
func (h *Hasher) Matches(hash string, secret []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), secret) == nil
}
