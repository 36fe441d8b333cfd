package server

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	"multidevice-identity/backend/internal/security"
	"multidevice-identity/backend/internal/server/interceptors"
)

type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

// stubIdentity answers every RPC with fixed data and echoes the caller identity.
type stubIdentity struct{}

func (stubIdentity) SendCode(ctx context.Context, req *identityv1.SendCodeRequest) (*identityv1.SendCodeResponse, error) {
	return &identityv1.SendCodeResponse{Sent: req.Email != ""}, nil
}

func (stubIdentity) VerifyCode(ctx context.Context, req *identityv1.VerifyCodeRequest) (*identityv1.TokenResponse, error) {
	return &identityv1.TokenResponse{AccessToken: "a"}, nil
}

func (stubIdentity) Refresh(ctx context.Context, req *identityv1.RefreshRequest) (*identityv1.TokenResponse, error) {
	return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
}

func (stubIdentity) Logout(ctx context.Context, req *identityv1.LogoutRequest) (*identityv1.LogoutResponse, error) {
	return &identityv1.LogoutResponse{}, nil
}

func (stubIdentity) UserInfo(ctx context.Context, req *identityv1.UserInfoRequest) (*identityv1.UserInfoResponse, error) {
	userID, _ := interceptors.GetUserID(ctx)
	email, _ := interceptors.GetEmail(ctx)
	role, _ := interceptors.GetRole(ctx)
	return &identityv1.UserInfoResponse{UserID: userID, Email: email, Role: role}, nil
}

func (stubIdentity) ListDevices(ctx context.Context, req *identityv1.ListDevicesRequest) (*identityv1.ListDevicesResponse, error) {
	return &identityv1.ListDevicesResponse{}, nil
}

func (stubIdentity) DisableDevice(ctx context.Context, req *identityv1.DisableDeviceRequest) (*identityv1.DisableDeviceResponse, error) {
	return &identityv1.DisableDeviceResponse{}, nil
}

func (stubIdentity) AssignRole(ctx context.Context, req *identityv1.AssignRoleRequest) (*identityv1.AssignRoleResponse, error) {
	return &identityv1.AssignRoleResponse{}, nil
}

type auditCall struct{ userID, action, resource string }

type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (r *recordingAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, auditCall{userID, action, resource})
}

func (r *recordingAudit) snapshot() []auditCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auditCall(nil), r.calls...)
}

func TestRegisterServices(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, Deps{Identity: stubIdentity{}, Health: health.NewServer()})
	assert.Equal(t, []string{"identity.v1.IdentityService", "grpc.health.v1.Health"}, reg.services)
}

func TestRegisterServices_DevServiceOnlyWhenSet(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, Deps{Identity: stubIdentity{}})
	assert.Equal(t, []string{"identity.v1.IdentityService"}, reg.services)
}

func TestPublicMethods(t *testing.T) {
	for _, m := range []string{
		identityv1.IdentityService_SendCode_FullMethodName,
		identityv1.IdentityService_VerifyCode_FullMethodName,
		identityv1.IdentityService_Refresh_FullMethodName,
		identityv1.IdentityService_Logout_FullMethodName,
	} {
		assert.True(t, PublicMethods[m], m)
	}
	for _, m := range []string{
		identityv1.IdentityService_UserInfo_FullMethodName,
		identityv1.IdentityService_ListDevices_FullMethodName,
		identityv1.IdentityService_DisableDevice_FullMethodName,
		identityv1.IdentityService_AssignRole_FullMethodName,
	} {
		assert.False(t, PublicMethods[m], m)
	}
}

type harness struct {
	tokens *security.TokenProvider
	audit  *recordingAudit
	client *identityv1.IdentityServiceClient
	conn   *grpc.ClientConn
}

func startServer(t *testing.T) *harness {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	rec := &recordingAudit{}
	hs := health.NewServer()

	s := NewServer(Options{Tokens: tokens, Audit: rec})
	RegisterServices(s, Deps{Identity: stubIdentity{}, Health: hs})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{tokens: tokens, audit: rec, client: identityv1.NewIdentityServiceClient(conn), conn: conn}
}

func TestServer_PublicMethodOverJSON(t *testing.T) {
	h := startServer(t)

	resp, err := h.client.SendCode(context.Background(), &identityv1.SendCodeRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Sent)
	assert.Equal(t, []auditCall{{"", "code_requested", "otp"}}, h.audit.snapshot())
}

func TestServer_ProtectedMethodNeedsToken(t *testing.T) {
	h := startServer(t)

	_, err := h.client.UserInfo(context.Background(), &identityv1.UserInfoRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_ProtectedMethodWithToken(t *testing.T) {
	h := startServer(t)
	token, _, _, err := h.tokens.IssueAccess("user-1", "alice@example.com", "admin")
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)

	resp, err := h.client.UserInfo(ctx, &identityv1.UserInfoRequest{})
	require.NoError(t, err)
	assert.Equal(t, &identityv1.UserInfoResponse{UserID: "user-1", Email: "alice@example.com", Role: "admin"}, resp)
	assert.Equal(t, []auditCall{{"user-1", "userinfo", "identity"}}, h.audit.snapshot())
}

func TestServer_HealthNotAudited(t *testing.T) {
	h := startServer(t)

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Empty(t, h.audit.snapshot())
}
