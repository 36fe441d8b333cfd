package email

import (
	"context"
	"log/slog"
	"time"

	"multidevice-identity/backend/internal/devotp"
)

// LogSender logs that a code was issued instead of sending mail. The code itself is not logged.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a LogSender writing to log (slog.Default when nil).
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendCode(ctx context.Context, to, code string) error {
	s.log.InfoContext(ctx, "email: dev sender issued code", "to", to)
	return nil
}

// RecordingSender records each delivered code in a devotp.Store after the wrapped sender succeeds.
type RecordingSender struct {
	next  Sender
	store devotp.Store
	ttl   time.Duration
	nowF  func() time.Time
}

// NewRecordingSender wraps next so codes can be read back through DevService/GetOTP.
func NewRecordingSender(next Sender, store devotp.Store, ttl time.Duration) *RecordingSender {
	return &RecordingSender{next: next, store: store, ttl: ttl, nowF: func() time.Time { return time.Now().UTC() }}
}

func (s *RecordingSender) SendCode(ctx context.Context, to, code string) error {
	if err := s.next.SendCode(ctx, to, code); err != nil {
		return err
	}
	s.store.Put(ctx, to, code, s.nowF().Add(s.ttl))
	return nil
}
