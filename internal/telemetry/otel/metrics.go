package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "multidevice-identity/identity"

// IdentityMetrics counts identity lifecycle outcomes.
type IdentityMetrics struct {
	established metric.Int64Counter
	refreshed   metric.Int64Counter
	revoked     metric.Int64Counter
	failures    metric.Int64Counter
	otpSent     metric.Int64Counter
}

// NewIdentityMetrics registers the identity counters on provider. A nil provider yields no-op counters.
func NewIdentityMetrics(provider metric.MeterProvider) (*IdentityMetrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	m := provider.Meter(meterName)
	var (
		out IdentityMetrics
		err error
	)
	if out.established, err = m.Int64Counter("identity.established", metric.WithDescription("Sessions established after OTP verification")); err != nil {
		return nil, err
	}
	if out.refreshed, err = m.Int64Counter("identity.refreshed", metric.WithDescription("Successful refresh token rotations")); err != nil {
		return nil, err
	}
	if out.revoked, err = m.Int64Counter("identity.revoked", metric.WithDescription("Sessions revoked by logout")); err != nil {
		return nil, err
	}
	if out.failures, err = m.Int64Counter("identity.failures", metric.WithDescription("Failed identity operations by operation and reason")); err != nil {
		return nil, err
	}
	if out.otpSent, err = m.Int64Counter("identity.otp.sent", metric.WithDescription("OTP emails by delivery outcome")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *IdentityMetrics) Established(ctx context.Context) {
	if m != nil {
		m.established.Add(ctx, 1)
	}
}

func (m *IdentityMetrics) Refreshed(ctx context.Context) {
	if m != nil {
		m.refreshed.Add(ctx, 1)
	}
}

func (m *IdentityMetrics) Revoked(ctx context.Context) {
	if m != nil {
		m.revoked.Add(ctx, 1)
	}
}

// Failed records a failed operation with a short reason such as "invalid_token" or "device_limit".
func (m *IdentityMetrics) Failed(ctx context.Context, op, reason string) {
	if m != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("reason", reason)))
	}
}

func (m *IdentityMetrics) OTPSent(ctx context.Context, delivered bool) {
	if m != nil {
		m.otpSent.Add(ctx, 1, metric.WithAttributes(attribute.Bool("delivered", delivered)))
	}
}
