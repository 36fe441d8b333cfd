// Worker consumes identity events from Kafka and stores them in audit_logs.
// Set KAFKA_BROKERS, EVENTS_KAFKA_TOPIC, KAFKA_GROUP_ID and DATABASE_URL.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"multidevice-identity/backend/internal/audit"
	auditrepo "multidevice-identity/backend/internal/audit/repository"
	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		return errors.New("worker: KAFKA_BROKERS is required")
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()
	sink := audit.NewEventSink(auditrepo.NewPostgresRepository(conn), nil)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.EventsKafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	log.Info("worker: consuming", "topic", cfg.EventsKafkaTopic, "group", cfg.KafkaGroupID)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker: stopped")
				return nil
			}
			log.Warn("worker: kafka read failed", "error", err)
			continue
		}

		if err := store(ctx, sink, msg, log); err != nil {
			log.Info("worker: stopped")
			return nil
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warn("worker: commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// store writes one message, retrying storage failures until it succeeds or ctx ends.
// Malformed events are logged and skipped so one bad record cannot stall the partition.
func store(ctx context.Context, sink *audit.EventSink, msg kafka.Message, log *slog.Logger) error {
	backoff := time.Second
	for {
		storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := sink.Handle(storeCtx, msg.Value)
		cancel()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, audit.ErrMalformedEvent):
			log.Warn("worker: skipping malformed event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return nil
		}
		log.Warn("worker: store failed; retrying", "offset", msg.Offset, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
