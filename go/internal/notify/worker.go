package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WorkerConfig configures the polling relay
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Retry        RetryConfig
}

// DefaultWorkerConfig returns default polling configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		Retry:        RetryConfig{MaxRetries: 3, Delay: time.Second},
	}
}

// Worker polls the outbox and relays unsent events. Each batch runs in one
// transaction holding row locks, so several workers can run side by side.
type Worker struct {
	store  TxOutboxStore
	relay  relay
	config WorkerConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	processed uint64
	lastEvent time.Time
}

// NewWorker creates a polling outbox worker
func NewWorker(store TxOutboxStore, publisher Publisher, metrics MetricsCollector, cfg WorkerConfig) *Worker {
	return &Worker{
		store:    store,
		relay:    newRelay(publisher, metrics, cfg.Retry),
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins polling in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("outbox worker started")
	return nil
}

// Stop halts polling and waits for the current batch
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

// Running reports whether the worker is polling
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns the number of events relayed and when the last one was
func (w *Worker) Stats() (uint64, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processed, w.lastEvent
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.ProcessOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.ProcessOutbox(ctx)
		}
	}
}

// ProcessOutbox relays one batch. Events that fail every retry stay unsent
// for the next batch.
func (w *Worker) ProcessOutbox(ctx context.Context) int {
	start := time.Now()
	var sent []uuid.UUID

	err := w.store.WithinTx(ctx, func(store OutboxStore) error {
		events, err := store.FetchUnsent(ctx, w.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			if err := w.relay.publishWithRetry(ctx, event); err != nil {
				log.Error().
					Err(err).
					Str("event_id", event.ID.String()).
					Str("event_type", event.EventType).
					Msg("failed to publish event")
				continue
			}
			sent = append(sent, event.ID)
		}

		log.Info().Int("total", len(events)).Int("successful", len(sent)).Msg("processed outbox events")
		return store.MarkSent(ctx, sent...)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to process outbox batch")
		return 0
	}

	w.relay.metrics.RecordBatchProcessed(len(sent), time.Since(start))
	if lag, err := w.store.CountUnsent(ctx); err == nil {
		w.relay.metrics.RecordOutboxLag(lag)
	}

	if len(sent) > 0 {
		w.mu.Lock()
		w.processed += uint64(len(sent))
		w.lastEvent = time.Now()
		w.mu.Unlock()
	}
	return len(sent)
}
