package domain

import "time"

// Context records one OTP issued to a user. The latest context for a user is the one that counts.
type Context struct {
	ID        string
	UserID    string
	OTPID     string
	CreatedAt time.Time
}
