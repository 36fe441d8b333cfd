// Package server assembles the gRPC server: interceptor chain, OTel stats handler and service registration.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	"multidevice-identity/backend/internal/audit"
	"multidevice-identity/backend/internal/server/interceptors"
	"multidevice-identity/backend/internal/telemetry"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// PublicMethods do not require a Bearer token. Logout is public because it is authorized by the
// refresh token in the request.
var PublicMethods = map[string]bool{
	identityv1.IdentityService_SendCode_FullMethodName:   true,
	identityv1.IdentityService_VerifyCode_FullMethodName: true,
	identityv1.IdentityService_Refresh_FullMethodName:    true,
	identityv1.IdentityService_Logout_FullMethodName:     true,
	identityv1.DevService_GetOTP_FullMethodName:          true,
	healthCheckMethod:                                    true,
	healthWatchMethod:                                    true,
}

// quietMethods are neither audited nor emitted as request events.
var quietMethods = map[string]bool{
	healthCheckMethod:                           true,
	healthWatchMethod:                           true,
	identityv1.DevService_GetOTP_FullMethodName: true,
}

// Options configures NewServer.
type Options struct {
	// Tokens validates access tokens on protected methods.
	Tokens interceptors.AccessValidator
	// Audit records one entry per RPC. If nil, no RPCs are audited.
	Audit audit.AuditLogger
	// Events receives a grpc.request event per RPC. If nil, none are emitted.
	Events telemetry.EventEmitter
	// ExtraOptions are appended to the server options (e.g. TLS credentials).
	ExtraOptions []grpc.ServerOption
}

// NewServer returns a gRPC server with OTel instrumentation and the auth, telemetry and audit
// interceptors, in that order, so request events and audit entries carry the caller identity.
func NewServer(opts Options) *grpc.Server {
	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(opts.Tokens, PublicMethods),
			interceptors.TelemetryUnary(opts.Events, quietMethods),
			interceptors.AuditUnary(opts.Audit, quietMethods),
		),
	}
	return grpc.NewServer(append(serverOpts, opts.ExtraOptions...)...)
}

// Deps holds the service implementations to register.
type Deps struct {
	// Identity serves identity.v1.IdentityService. Required.
	Identity identityv1.IdentityServiceServer
	// Health serves grpc.health.v1. If nil, the health service is not registered.
	Health *health.Server
	// DevOTP is the dev-only DevService (GetOTP). If nil, DevService is not registered. Set only when
	// dev OTP is enabled and not production.
	DevOTP identityv1.DevServiceServer
}

// RegisterServices registers the services in deps with s.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	identityv1.RegisterIdentityServiceServer(s, deps.Identity)
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
	if deps.DevOTP != nil {
		identityv1.RegisterDevServiceServer(s, deps.DevOTP)
	}
}
