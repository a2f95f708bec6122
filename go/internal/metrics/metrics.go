// Package metrics provides the Prometheus collectors for the platform. All
// collectors live on a private registry exposed through Registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects slip, job, outbox and HTTP metrics
type Metrics struct {
	registry *prometheus.Registry

	// Slip metrics
	SlipsCreated  *prometheus.CounterVec
	SlipsRejected *prometheus.CounterVec

	// Job metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Outbox metrics
	EventsProcessed *prometheus.CounterVec
	EventDuration   *prometheus.HistogramVec
	BatchSize       prometheus.Histogram
	BatchDuration   prometheus.Histogram
	OutboxLag       prometheus.Gauge
	PublishAttempts *prometheus.CounterVec

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SlipsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_slips_created_total",
				Help: "Slips placed, by tier and pick count",
			},
			[]string{"tier", "picks"},
		),
		SlipsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_slips_rejected_total",
				Help: "Slip placements rejected, by error code",
			},
			[]string{"code"},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_job_runs_total",
				Help: "Scheduled job runs, by job and status",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "underline_job_duration_seconds",
				Help:    "Scheduled job run duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"job"},
		),

		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_outbox_events_processed_total",
				Help: "Outbox events relayed, by event type and status",
			},
			[]string{"event_type", "status"},
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "underline_outbox_event_duration_seconds",
				Help:    "Time to publish one outbox event",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"event_type"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "underline_outbox_batch_size",
				Help:    "Events relayed per outbox batch",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "underline_outbox_batch_duration_seconds",
				Help:    "Outbox batch processing duration",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		OutboxLag: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "underline_outbox_lag",
				Help: "Unsent outbox events at the last check",
			},
		),
		PublishAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_outbox_publish_attempts_total",
				Help: "Publish attempts, by event type, attempt number and status",
			},
			[]string{"event_type", "attempt", "status"},
		),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "underline_http_requests_total",
				Help: "HTTP requests, by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "underline_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.SlipsCreated,
		m.SlipsRejected,
		m.JobRuns,
		m.JobDuration,
		m.EventsProcessed,
		m.EventDuration,
		m.BatchSize,
		m.BatchDuration,
		m.OutboxLag,
		m.PublishAttempts,
		m.Requests,
		m.RequestDuration,
	)
	return m
}

// Registry returns the registry to expose with promhttp
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SlipCreated(freeToPlay bool, pickCount int) {
	m.SlipsCreated.WithLabelValues(tier(freeToPlay), strconv.Itoa(pickCount)).Inc()
}

func (m *Metrics) SlipRejected(code string) {
	m.SlipsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) JobFinished(job string, err error, duration time.Duration) {
	m.JobRuns.WithLabelValues(job, status(err == nil)).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *Metrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.EventsProcessed.WithLabelValues(eventType, status(success)).Inc()
	m.EventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *Metrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.BatchSize.Observe(float64(count))
	m.BatchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordOutboxLag(lag int) {
	m.OutboxLag.Set(float64(lag))
}

func (m *Metrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	m.PublishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), status(success)).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, code int, duration time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func tier(freeToPlay bool) string {
	if freeToPlay {
		return "free_to_play"
	}
	return "paid"
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
