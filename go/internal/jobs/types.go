package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/mcdev12/underline/go/internal/notify"
)

// Job names, also accepted by the manual trigger endpoint.
const (
	JobHideSublines     = "hide_sublines"
	JobIngestStatistics = "ingest_statistics"
	JobNotifyResults    = "notify_results"
	JobResetFreeToPlay  = "reset_free_to_play"
)

// ErrJobRunning is returned by Trigger when the job already has a run in flight.
var ErrJobRunning = errors.New("job already running")

// Schedule holds the cron expression of each job, evaluated in the reference zone.
type Schedule struct {
	HideSublines     string `yaml:"hide_sublines"`
	IngestStatistics string `yaml:"ingest_statistics"`
	NotifyResults    string `yaml:"notify_results"`
	ResetFreeToPlay  string `yaml:"reset_free_to_play"`
}

// DefaultSchedule returns the production schedule
func DefaultSchedule() Schedule {
	return Schedule{
		HideSublines:     "* * * * *",
		IngestStatistics: "30 23 * * *",
		NotifyResults:    "0 9 * * *",
		ResetFreeToPlay:  "0 6 * * *",
	}
}

// Sweeper hides sublines of started games
type Sweeper interface {
	HideSublinesForStartedGames(ctx context.Context) (*lines.SweepResult, error)
}

// Ingester applies final statistics to lines
type Ingester interface {
	IngestFinalStatistics(ctx context.Context, records []lines.StatRecord) (*lines.IngestResult, error)
}

// StatsFeed fetches the final statistics for a date from the feed collaborator
type StatsFeed interface {
	FinalStatistics(ctx context.Context, date time.Time) ([]lines.StatRecord, error)
}

// Notifier queues per-user result notifications
type Notifier interface {
	NotifyUsersOfResults(ctx context.Context, day time.Time) (*notify.NotifyResult, error)
}

// WalletResetter tops off free-to-play balances
type WalletResetter interface {
	ResetFreeToPlayBalances(ctx context.Context) (int64, error)
}

// SystemDate provides the business today
type SystemDate interface {
	Today(ctx context.Context) (time.Time, error)
	Previous(ctx context.Context) (time.Time, error)
}

// Metrics records job outcomes
type Metrics interface {
	JobFinished(job string, err error, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) JobFinished(string, error, time.Duration) {}

// Deps are the collaborators the jobs drive
type Deps struct {
	Lines      Sweeper
	Ingester   Ingester
	Feed       StatsFeed
	Notify     Notifier
	Wallet     WalletResetter
	SystemDate SystemDate
}
