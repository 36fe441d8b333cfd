// Package handler reports readiness through the standard grpc.health.v1 service.
package handler

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is satisfied by the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker probes the database and the role policy and publishes the result on a
// grpc health server, both for the overall server ("") and for each named service.
type Checker struct {
	pinger   Pinger
	policy   PolicyChecker
	health   *health.Server
	services []string
	log      *slog.Logger
}

// NewChecker returns a Checker that updates hs. A nil pinger or policy checker is skipped.
func NewChecker(hs *health.Server, pinger Pinger, policy PolicyChecker, log *slog.Logger, services ...string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{pinger: pinger, policy: policy, health: hs, services: services, log: log}
}

// Check runs one probe and returns whether the server is ready.
func (c *Checker) Check(ctx context.Context) bool {
	ready := true
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			c.log.WarnContext(ctx, "health: database ping failed", "error", err)
			ready = false
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			c.log.WarnContext(ctx, "health: policy check failed", "error", err)
			ready = false
		}
	}
	st := healthpb.HealthCheckResponse_SERVING
	if !ready {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.health.SetServingStatus("", st)
	for _, svc := range c.services {
		c.health.SetServingStatus(svc, st)
	}
	return ready
}

// Run probes every interval until ctx is done. Each probe gets at most one interval to finish.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		c.Check(probeCtx)
		cancel()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
