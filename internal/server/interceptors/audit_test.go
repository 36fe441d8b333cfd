package interceptors

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type auditCall struct {
	userID, action, resource, metadata string
}

type recordingAuditLogger struct {
	mu    sync.Mutex
	calls []auditCall
}

func (r *recordingAuditLogger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, auditCall{userID, action, resource, metadata})
}

func TestAuditUnary_RecordsCall(t *testing.T) {
	logger := &recordingAuditLogger{}
	interceptor := AuditUnary(logger, nil)
	ctx := WithIdentity(context.Background(), "user-1", "alice@example.com", "member")

	resp, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/identity.v1.IdentityService/DisableDevice"}, okHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
	require.Len(t, logger.calls, 1)
	assert.Equal(t, auditCall{"user-1", "disable", "device", `{"status_code":"OK"}`}, logger.calls[0])
}

func TestAuditUnary_RecordsFailureAnonymously(t *testing.T) {
	logger := &recordingAuditLogger{}
	interceptor := AuditUnary(logger, nil)
	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "bad code")
	}

	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/identity.v1.IdentityService/VerifyCode"}, failing)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	require.Len(t, logger.calls, 1)
	assert.Equal(t, "", logger.calls[0].userID)
	assert.Equal(t, "login", logger.calls[0].action)
	assert.Contains(t, logger.calls[0].metadata, "Unauthenticated")
}

func TestAuditUnary_SkipMethodAndNilLogger(t *testing.T) {
	logger := &recordingAuditLogger{}
	interceptor := AuditUnary(logger, map[string]bool{"/grpc.health.v1.Health/Check": true})
	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
	require.NoError(t, err)
	assert.Empty(t, logger.calls)

	_, err = AuditUnary(nil, nil)(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/x.v1.S/M"}, okHandler)
	require.NoError(t, err)
}

func TestClientIP(t *testing.T) {
	tcpPeer := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 5555}})
	cases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"forwarded chain", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.7, 10.0.0.1")), "203.0.113.7"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", " 198.51.100.2 ")), "198.51.100.2"},
		{"peer", tcpPeer, "192.0.2.10"},
		{"nothing", context.Background(), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClientIP(tc.ctx))
		})
	}
}
