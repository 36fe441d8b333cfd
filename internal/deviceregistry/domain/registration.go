package domain

import "time"

// Registration links a user to a device under a fingerprint. (UserID, Fingerprint) is unique.
type Registration struct {
	ID          string
	UserID      string
	DeviceID    string
	Fingerprint string
	CreatedAt   time.Time
}

// DeviceDetails are the client attributes observed at login.
type DeviceDetails struct {
	Browser   string
	OS        string
	UserAgent string
	IPAddress string
}
