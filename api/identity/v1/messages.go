// Package identityv1 is the wire contract of identity.v1: request and response messages, the
// IdentityService and DevService descriptors, and thin clients. Messages travel as JSON.
package identityv1

import "time"

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

type SendCodeResponse struct {
	// Sent is false when the email could not be delivered; the code stays valid and may be resent.
	Sent bool `json:"sent"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by VerifyCode and Refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	DeviceID     string    `json:"device_id"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

type UserInfoRequest struct{}

type UserInfoResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type ListDevicesRequest struct{}

type Device struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	LastSeenAt time.Time `json:"last_seen_at"`
	IsActive   bool      `json:"is_active"`
}

type ListDevicesResponse struct {
	Devices []Device `json:"devices"`
}

type DisableDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,uuid"`
}

type DisableDeviceResponse struct {
	SessionsRevoked int `json:"sessions_revoked"`
}

type AssignRoleRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,max=64"`
}

type AssignRoleResponse struct{}

type GetOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type GetOTPResponse struct {
	Otp  string `json:"otp"`
	Note string `json:"note"`
}
