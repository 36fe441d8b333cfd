package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	auditrepo "multidevice-identity/backend/internal/audit/repository"
	"multidevice-identity/backend/internal/platform/clock"
	telemetrydomain "multidevice-identity/backend/internal/telemetry/domain"
)

// ErrMalformedEvent is returned by Handle for payloads that are not a JSON event.
var ErrMalformedEvent = errors.New("audit: malformed event")

// EventSink stores published identity events as audit entries. Request events are skipped since
// the audit interceptor already records every RPC.
type EventSink struct {
	repo  auditrepo.Repository
	clock clock.Clock
}

// NewEventSink returns an EventSink writing to repo.
func NewEventSink(repo auditrepo.Repository, clk clock.Clock) *EventSink {
	if clk == nil {
		clk = clock.System{}
	}
	return &EventSink{repo: repo, clock: clk}
}

// Handle decodes one JSON event and stores it. It reports whether an entry was written.
// Malformed payloads return ErrMalformedEvent; storage failures are returned wrapped.
func (s *EventSink) Handle(ctx context.Context, payload []byte) (bool, error) {
	var ev telemetrydomain.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" || ev.Type == telemetrydomain.EventGRPCRequest {
		return false, nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.clock.Now()
	}
	if err := s.repo.Create(ctx, FromEvent(&ev)); err != nil {
		return false, fmt.Errorf("store event: %w", err)
	}
	return true, nil
}
