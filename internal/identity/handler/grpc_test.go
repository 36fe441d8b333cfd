package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	devicedomain "multidevice-identity/backend/internal/device/domain"
	registrydomain "multidevice-identity/backend/internal/deviceregistry/domain"
	registryservice "multidevice-identity/backend/internal/deviceregistry/service"
	identityservice "multidevice-identity/backend/internal/identity/service"
	"multidevice-identity/backend/internal/server/interceptors"
)

const (
	testUserID   = "7d7f6a4e-2f0c-4a51-9b8f-2f3c1c7b9d10"
	testDeviceID = "0f5e2c1a-9d3b-4c7e-8a6f-1b2c3d4e5f60"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) InitiateLogin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuth) CompleteLogin(ctx context.Context, email, code string, details *registrydomain.DeviceDetails) (identityservice.TokenPair, error) {
	args := m.Called(ctx, email, code, details)
	return args.Get(0).(identityservice.TokenPair), args.Error(1)
}

func (m *mockAuth) RefreshToken(ctx context.Context, token string) (identityservice.TokenPair, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(identityservice.TokenPair), args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuth) UserInfo(ctx context.Context, userID string) (string, string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.String(1), args.Error(2)
}

type fakeDevices struct {
	list     []*devicedomain.Device
	disabled map[string]int
	err      error
}

func (f *fakeDevices) ListDevices(ctx context.Context, userID string) ([]*devicedomain.Device, error) {
	return f.list, f.err
}

func (f *fakeDevices) DisableDevice(ctx context.Context, userID, deviceID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, ok := f.disabled[deviceID]
	if !ok {
		return 0, identityservice.ErrDeviceNotFound
	}
	return n, nil
}

type fakeRoles struct {
	admins   map[string]bool
	assigned []string
	err      error
}

func (f *fakeRoles) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return role == "admin" && f.admins[userID], nil
}

func (f *fakeRoles) AssignRole(ctx context.Context, userID, roleName, assignedBy string) error {
	if f.err != nil {
		return f.err
	}
	f.assigned = append(f.assigned, userID+":"+roleName+":"+assignedBy)
	return nil
}

func newServer(auth *mockAuth, devices *fakeDevices, roles *fakeRoles) *Server {
	if devices == nil {
		devices = &fakeDevices{}
	}
	if roles == nil {
		roles = &fakeRoles{}
	}
	return NewServer(auth, devices, devices, roles, nil)
}

func signedIn() context.Context {
	return interceptors.WithIdentity(context.Background(), testUserID, "alice@example.com", "member")
}

func TestSendCode(t *testing.T) {
	auth := &mockAuth{}
	auth.On("InitiateLogin", mock.Anything, "alice@example.com").Return(true, nil).Once()
	srv := newServer(auth, nil, nil)

	resp, err := srv.SendCode(context.Background(), &identityv1.SendCodeRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Sent)
	auth.AssertExpectations(t)
}

func TestSendCode_InvalidEmailRejectedBeforeService(t *testing.T) {
	auth := &mockAuth{}
	srv := newServer(auth, nil, nil)

	_, err := srv.SendCode(context.Background(), &identityv1.SendCodeRequest{Email: "not-an-email"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	auth.AssertNotCalled(t, "InitiateLogin", mock.Anything, mock.Anything)
}

func TestSendCode_RateLimited(t *testing.T) {
	auth := &mockAuth{}
	auth.On("InitiateLogin", mock.Anything, "alice@example.com").Return(false, identityservice.ErrRateLimited)
	srv := newServer(auth, nil, nil)

	_, err := srv.SendCode(context.Background(), &identityv1.SendCodeRequest{Email: "alice@example.com"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestVerifyCode_PassesDeviceDetails(t *testing.T) {
	auth := &mockAuth{}
	expires := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)
	pair := identityservice.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: expires, UserID: testUserID, DeviceID: testDeviceID}
	auth.On("CompleteLogin", mock.Anything, "alice@example.com", "123456", mock.MatchedBy(func(d *registrydomain.DeviceDetails) bool {
		return d.Browser == "Chrome" && d.OS == "Windows" && d.UserAgent == uaChromeWindows && d.IPAddress == "203.0.113.7"
	})).Return(pair, nil).Once()
	srv := newServer(auth, nil, nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"user-agent", uaChromeWindows,
		"x-forwarded-for", "203.0.113.7",
	))

	resp, err := srv.VerifyCode(ctx, &identityv1.VerifyCodeRequest{Email: "alice@example.com", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, &identityv1.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: expires, UserID: testUserID, DeviceID: testDeviceID}, resp)
	auth.AssertExpectations(t)
}

func TestVerifyCode_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"wrong code", identityservice.ErrInvalidCode, codes.Unauthenticated},
		{"device limit", registryservice.ErrDeviceLimitReached, codes.FailedPrecondition},
		{"user missing", identityservice.ErrUserNotFound, codes.NotFound},
		{"storage", errors.New("connection reset"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{}
			auth.On("CompleteLogin", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(identityservice.TokenPair{}, tc.err)
			srv := newServer(auth, nil, nil)

			_, err := srv.VerifyCode(context.Background(), &identityv1.VerifyCodeRequest{Email: "alice@example.com", Code: "123456"})
			assert.Equal(t, tc.want, status.Code(err))
			if tc.want == codes.Internal {
				assert.NotContains(t, err.Error(), "connection reset")
			}
		})
	}
}

func TestVerifyCode_MalformedCode(t *testing.T) {
	srv := newServer(&mockAuth{}, nil, nil)
	for _, code := range []string{"", "12345", "12345a", "1234567"} {
		_, err := srv.VerifyCode(context.Background(), &identityv1.VerifyCodeRequest{Email: "alice@example.com", Code: code})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), code)
	}
}

func TestRefresh(t *testing.T) {
	auth := &mockAuth{}
	auth.On("RefreshToken", mock.Anything, "old").Return(identityservice.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil)
	auth.On("RefreshToken", mock.Anything, "replayed").Return(identityservice.TokenPair{}, identityservice.ErrInvalidRefreshToken)
	srv := newServer(auth, nil, nil)

	resp, err := srv.Refresh(context.Background(), &identityv1.RefreshRequest{RefreshToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "r2", resp.RefreshToken)

	_, err = srv.Refresh(context.Background(), &identityv1.RefreshRequest{RefreshToken: "replayed"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = srv.Refresh(context.Background(), &identityv1.RefreshRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLogout(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Logout", mock.Anything, "r1").Return(nil).Once()
	srv := newServer(auth, nil, nil)

	_, err := srv.Logout(context.Background(), &identityv1.LogoutRequest{RefreshToken: "r1"})
	require.NoError(t, err)
	auth.AssertExpectations(t)
}

func TestUserInfo(t *testing.T) {
	auth := &mockAuth{}
	auth.On("UserInfo", mock.Anything, testUserID).Return("alice@example.com", "admin", nil)
	srv := newServer(auth, nil, nil)

	resp, err := srv.UserInfo(signedIn(), &identityv1.UserInfoRequest{})
	require.NoError(t, err)
	assert.Equal(t, &identityv1.UserInfoResponse{UserID: testUserID, Email: "alice@example.com", Role: "admin"}, resp)

	_, err = srv.UserInfo(context.Background(), &identityv1.UserInfoRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestListDevices(t *testing.T) {
	seen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	devices := &fakeDevices{list: []*devicedomain.Device{
		{ID: testDeviceID, Name: "chrome_windows", Browser: "chrome", OS: "windows", LastSeenAt: seen, IsActive: true},
	}}
	srv := newServer(&mockAuth{}, devices, nil)

	resp, err := srv.ListDevices(signedIn(), &identityv1.ListDevicesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, identityv1.Device{ID: testDeviceID, Name: "chrome_windows", Browser: "chrome", OS: "windows", LastSeenAt: seen, IsActive: true}, resp.Devices[0])
}

func TestDisableDevice(t *testing.T) {
	devices := &fakeDevices{disabled: map[string]int{testDeviceID: 2}}
	srv := newServer(&mockAuth{}, devices, nil)

	resp, err := srv.DisableDevice(signedIn(), &identityv1.DisableDeviceRequest{DeviceID: testDeviceID})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SessionsRevoked)

	_, err = srv.DisableDevice(signedIn(), &identityv1.DisableDeviceRequest{DeviceID: "1c2b3a4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = srv.DisableDevice(signedIn(), &identityv1.DisableDeviceRequest{DeviceID: "laptop"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = srv.DisableDevice(context.Background(), &identityv1.DisableDeviceRequest{DeviceID: testDeviceID})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAssignRole(t *testing.T) {
	roles := &fakeRoles{admins: map[string]bool{testUserID: true}}
	srv := newServer(&mockAuth{}, nil, roles)
	target := "1c2b3a4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"

	_, err := srv.AssignRole(signedIn(), &identityv1.AssignRoleRequest{UserID: target, Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, []string{target + ":admin:" + testUserID}, roles.assigned)
}

func TestAssignRole_RequiresAdmin(t *testing.T) {
	roles := &fakeRoles{}
	srv := newServer(&mockAuth{}, nil, roles)

	_, err := srv.AssignRole(signedIn(), &identityv1.AssignRoleRequest{UserID: testUserID, Role: "admin"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Empty(t, roles.assigned)
}

func TestDeviceDetailsFromContext_NoMetadata(t *testing.T) {
	d := DeviceDetailsFromContext(context.Background())
	assert.Equal(t, &registrydomain.DeviceDetails{Browser: "Unknown", OS: "Unknown", IPAddress: "unknown"}, d)
}
