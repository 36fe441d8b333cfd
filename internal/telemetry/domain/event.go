package domain

import "time"

// Identity event types.
const (
	EventOTPSent             = "otp.sent"
	EventOTPSendFailed       = "otp.send_failed"
	EventOTPVerified         = "otp.verified"
	EventOTPRejected         = "otp.rejected"
	EventIdentityEstablished = "identity.established"
	EventIdentityRefreshed   = "identity.refreshed"
	EventIdentityRevoked     = "identity.revoked"
	EventDeviceDisabled      = "device.disabled"
	EventGRPCRequest         = "grpc.request"
)

// Event is an identity lifecycle event. It is emitted as an OTel log record and published to Kafka
// as JSON, where the worker turns it into an audit log row.
type Event struct {
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	DeviceID  string            `json:"device_id,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Source    string            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
