package interceptors

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"multidevice-identity/backend/internal/telemetry"
	"multidevice-identity/backend/internal/telemetry/domain"
)

// TelemetryUnary returns a unary server interceptor that emits a grpc.request event after each RPC.
// Best-effort: failures are logged and do not fail the RPC. If emitter is nil, the interceptor no-ops.
// skipMethods is the set of full method names to not emit (e.g. health checks).
func TelemetryUnary(emitter telemetry.EventEmitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, _ := GetUserID(ctx)
		telemetry.EmitAsync(emitter, ctx, &domain.Event{
			Type:   domain.EventGRPCRequest,
			UserID: userID,
			IP:     ClientIP(ctx),
			Source: "grpc_interceptor",
			Metadata: map[string]string{
				"full_method": info.FullMethod,
				"status_code": status.Code(err).String(),
				"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			},
		})
		return resp, err
	}
}
