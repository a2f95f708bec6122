package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSlipCounters(t *testing.T) {
	m := New()
	m.SlipCreated(true, 3)
	m.SlipCreated(true, 3)
	m.SlipCreated(false, 2)
	m.SlipRejected("stake_cap_exceeded")

	if got := testutil.ToFloat64(m.SlipsCreated.WithLabelValues("free_to_play", "3")); got != 2 {
		t.Errorf("free_to_play/3 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SlipsCreated.WithLabelValues("paid", "2")); got != 1 {
		t.Errorf("paid/2 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SlipsRejected.WithLabelValues("stake_cap_exceeded")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestJobAndOutboxMetrics(t *testing.T) {
	m := New()
	m.JobFinished("hide_sublines", nil, 20*time.Millisecond)
	m.JobFinished("hide_sublines", errors.New("boom"), time.Second)
	m.RecordOutboxLag(7)
	m.RecordPublishAttempt("results_ready", 2, false)

	if got := testutil.ToFloat64(m.JobRuns.WithLabelValues("hide_sublines", "failure")); got != 1 {
		t.Errorf("job failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OutboxLag); got != 7 {
		t.Errorf("outbox lag = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.PublishAttempts.WithLabelValues("results_ready", "2", "failure")); got != 1 {
		t.Errorf("publish attempts = %v, want 1", got)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(families) == 0 {
		t.Error("registry gathered no metric families")
	}
}
