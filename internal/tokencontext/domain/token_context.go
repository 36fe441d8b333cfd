package domain

import "time"

// TokenContext binds one user and device to one refresh token. A refresh token has at most one
// context, ever. IsRevoked is set together with the token's revocation and never cleared.
type TokenContext struct {
	ID             string
	UserID         string
	DeviceID       string
	RefreshTokenID string
	IsRevoked      bool
	CreatedAt      time.Time
}
