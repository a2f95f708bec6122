package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxStore is the outbox surface the relay needs
type OutboxStore interface {
	FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error)
	FetchUnsentByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkSent(ctx context.Context, ids ...uuid.UUID) error
	CountUnsent(ctx context.Context) (int, error)
}

// TxOutboxStore can scope an OutboxStore to one transaction
type TxOutboxStore interface {
	OutboxStore
	WithinTx(ctx context.Context, fn func(store OutboxStore) error) error
}

// Publisher delivers an outbox event downstream
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// MetricsCollector defines the outbox metrics the relay records
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is used when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(string, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordBatchProcessed(int, time.Duration)          {}
func (NoOpMetricsCollector) RecordOutboxLag(int)                              {}
func (NoOpMetricsCollector) RecordPublishAttempt(string, int, bool)           {}

// RetryConfig bounds publish retries. The wait before attempt n is n×Delay.
type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

// relay publishes events with linear-backoff retry and records metrics.
type relay struct {
	publisher Publisher
	metrics   MetricsCollector
	retry     RetryConfig
}

func newRelay(publisher Publisher, metrics MetricsCollector, retry RetryConfig) relay {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return relay{publisher: publisher, metrics: metrics, retry: retry}
}

func (r relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				r.metrics.RecordEventProcessed(event.EventType, false, time.Since(start))
				return ctx.Err()
			case <-time.After(r.retry.Delay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			r.metrics.RecordPublishAttempt(event.EventType, attempt+1, false)
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		r.metrics.RecordPublishAttempt(event.EventType, attempt+1, true)
		r.metrics.RecordEventProcessed(event.EventType, true, time.Since(start))
		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	r.metrics.RecordEventProcessed(event.EventType, false, time.Since(start))
	return fmt.Errorf("publish failed after %d attempts: %w", r.retry.MaxRetries+1, lastErr)
}
