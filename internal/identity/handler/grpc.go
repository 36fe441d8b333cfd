// Package handler serves identity.v1.IdentityService over gRPC on top of the identity services.
package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/metadata"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	devicedomain "multidevice-identity/backend/internal/device/domain"
	registrydomain "multidevice-identity/backend/internal/deviceregistry/domain"
	identityservice "multidevice-identity/backend/internal/identity/service"
	"multidevice-identity/backend/internal/platform/rbac"
	roledomain "multidevice-identity/backend/internal/role/domain"
	"multidevice-identity/backend/internal/server/interceptors"
)

// Auth is the passwordless login surface.
type Auth interface {
	InitiateLogin(ctx context.Context, email string) (bool, error)
	CompleteLogin(ctx context.Context, email, code string, details *registrydomain.DeviceDetails) (identityservice.TokenPair, error)
	RefreshToken(ctx context.Context, token string) (identityservice.TokenPair, error)
	Logout(ctx context.Context, token string) error
	UserInfo(ctx context.Context, userID string) (email, role string, err error)
}

// DeviceLister lists the devices registered to a user.
type DeviceLister interface {
	ListDevices(ctx context.Context, userID string) ([]*devicedomain.Device, error)
}

// DeviceDisabler disables one of a user's devices and revokes its sessions.
type DeviceDisabler interface {
	DisableDevice(ctx context.Context, userID, deviceID string) (int, error)
}

// RoleAdmin checks and grants roles.
type RoleAdmin interface {
	rbac.RoleChecker
	AssignRole(ctx context.Context, userID, roleName, assignedBy string) error
}

// Server implements identityv1.IdentityServiceServer.
type Server struct {
	auth     Auth
	devices  DeviceLister
	disabler DeviceDisabler
	roles    RoleAdmin
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer returns an IdentityService server. log may be nil.
func NewServer(auth Auth, devices DeviceLister, disabler DeviceDisabler, roles RoleAdmin, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		auth:     auth,
		devices:  devices,
		disabler: disabler,
		roles:    roles,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

var _ identityv1.IdentityServiceServer = (*Server)(nil)

// SendCode emails a login code to the requested address.
func (s *Server) SendCode(ctx context.Context, req *identityv1.SendCodeRequest) (*identityv1.SendCodeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationStatus(err)
	}
	sent, err := s.auth.InitiateLogin(ctx, req.Email)
	if err != nil {
		return nil, toStatus(ctx, s.log, "SendCode", err)
	}
	return &identityv1.SendCodeResponse{Sent: sent}, nil
}

// VerifyCode exchanges a login code for tokens bound to the calling device.
func (s *Server) VerifyCode(ctx context.Context, req *identityv1.VerifyCodeRequest) (*identityv1.TokenResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationStatus(err)
	}
	pair, err := s.auth.CompleteLogin(ctx, req.Email, req.Code, DeviceDetailsFromContext(ctx))
	if err != nil {
		return nil, toStatus(ctx, s.log, "VerifyCode", err)
	}
	return tokenResponse(pair), nil
}

// Refresh rotates a refresh token.
func (s *Server) Refresh(ctx context.Context, req *identityv1.RefreshRequest) (*identityv1.TokenResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationStatus(err)
	}
	pair, err := s.auth.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(ctx, s.log, "Refresh", err)
	}
	return tokenResponse(pair), nil
}

// Logout revokes the session behind the refresh token. Unknown tokens succeed.
func (s *Server) Logout(ctx context.Context, req *identityv1.LogoutRequest) (*identityv1.LogoutResponse, error) {
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(ctx, s.log, "Logout", err)
	}
	return &identityv1.LogoutResponse{}, nil
}

// UserInfo returns the caller's email and primary role.
func (s *Server) UserInfo(ctx context.Context, req *identityv1.UserInfoRequest) (*identityv1.UserInfoResponse, error) {
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	email, role, err := s.auth.UserInfo(ctx, userID)
	if err != nil {
		return nil, toStatus(ctx, s.log, "UserInfo", err)
	}
	return &identityv1.UserInfoResponse{UserID: userID, Email: email, Role: role}, nil
}

// ListDevices returns the caller's registered devices.
func (s *Server) ListDevices(ctx context.Context, req *identityv1.ListDevicesRequest) (*identityv1.ListDevicesResponse, error) {
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.devices.ListDevices(ctx, userID)
	if err != nil {
		return nil, toStatus(ctx, s.log, "ListDevices", err)
	}
	resp := &identityv1.ListDevicesResponse{Devices: make([]identityv1.Device, 0, len(list))}
	for _, d := range list {
		resp.Devices = append(resp.Devices, identityv1.Device{
			ID:         d.ID,
			Name:       d.Name,
			Browser:    d.Browser,
			OS:         d.OS,
			LastSeenAt: d.LastSeenAt,
			IsActive:   d.IsActive,
		})
	}
	return resp, nil
}

// DisableDevice disables one of the caller's devices and logs it out everywhere it is signed in.
func (s *Server) DisableDevice(ctx context.Context, req *identityv1.DisableDeviceRequest) (*identityv1.DisableDeviceResponse, error) {
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationStatus(err)
	}
	n, err := s.disabler.DisableDevice(ctx, userID, req.DeviceID)
	if err != nil {
		return nil, toStatus(ctx, s.log, "DisableDevice", err)
	}
	return &identityv1.DisableDeviceResponse{SessionsRevoked: n}, nil
}

// AssignRole grants a role to a user. Admin only.
func (s *Server) AssignRole(ctx context.Context, req *identityv1.AssignRoleRequest) (*identityv1.AssignRoleResponse, error) {
	callerID, err := rbac.RequireRole(ctx, s.roles, roledomain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationStatus(err)
	}
	if err := s.roles.AssignRole(ctx, req.UserID, req.Role, callerID); err != nil {
		return nil, toStatus(ctx, s.log, "AssignRole", err)
	}
	return &identityv1.AssignRoleResponse{}, nil
}

// DeviceDetailsFromContext builds the login device description from the user-agent metadata
// and the client address.
func DeviceDetailsFromContext(ctx context.Context) *registrydomain.DeviceDetails {
	var ua string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("user-agent"); len(vals) > 0 {
			ua = strings.TrimSpace(vals[0])
		}
	}
	return &registrydomain.DeviceDetails{
		Browser:   Browser(ua),
		OS:        OperatingSystem(ua),
		UserAgent: ua,
		IPAddress: interceptors.ClientIP(ctx),
	}
}

func tokenResponse(p identityservice.TokenPair) *identityv1.TokenResponse {
	return &identityv1.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.ExpiresAt,
		UserID:       p.UserID,
		DeviceID:     p.DeviceID,
	}
}
