package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/rs/zerolog/log"
)

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
	mu   sync.Mutex
}

// Scheduler runs the periodic jobs in the reference zone. Each job has at
// most one run in flight, whether started by the schedule or by Trigger.
type Scheduler struct {
	s       gocron.Scheduler
	deps    Deps
	metrics Metrics
	jobs    map[string]*job
	order   []string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers every job. The clock drives schedule evaluation.
func NewScheduler(deps Deps, schedule Schedule, loc *time.Location, clock clockwork.Clock, metrics Metrics) (*Scheduler, error) {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	opts := []gocron.SchedulerOption{gocron.WithLocation(loc)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{
		s:       s,
		deps:    deps,
		metrics: metrics,
		jobs:    make(map[string]*job),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, j := range []*job{
		{name: JobHideSublines, spec: schedule.HideSublines, run: sch.hideSublines},
		{name: JobIngestStatistics, spec: schedule.IngestStatistics, run: sch.ingestStatistics},
		{name: JobNotifyResults, spec: schedule.NotifyResults, run: sch.notifyResults},
		{name: JobResetFreeToPlay, spec: schedule.ResetFreeToPlay, run: sch.resetFreeToPlay},
	} {
		if err := sch.register(j); err != nil {
			_ = s.Shutdown()
			cancel()
			return nil, err
		}
	}
	return sch, nil
}

func (s *Scheduler) register(j *job) error {
	_, err := s.s.NewJob(
		gocron.CronJob(j.spec, false),
		gocron.NewTask(func() {
			if err := s.execute(s.baseContext(), j); errors.Is(err, ErrJobRunning) {
				log.Warn().Str("job", j.name).Msg("previous run still in flight, skipping")
			}
		}),
		gocron.WithName(j.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", j.name, err)
	}
	s.jobs[j.name] = j
	s.order = append(s.order, j.name)
	log.Info().Str("job", j.name).Str("cron", j.spec).Msg("registered job")
	return nil
}

// Start begins evaluating schedules. Runs see a context that is cancelled
// when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.s.Start()
	log.Info().Strs("jobs", s.order).Msg("scheduler started")
}

// Stop cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	log.Info().Msg("scheduler stopped")
	return nil
}

// Jobs lists the registered job names in registration order
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.order...)
}

// Trigger runs a job now and returns its error. It fails with ErrJobRunning
// when a run is already in flight.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return apperr.NotFound("job", name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// execute runs j once, turning a panic into an error. Failures are logged and
// counted, never propagated to the scheduler.
func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	if !j.mu.TryLock() {
		return ErrJobRunning
	}
	defer j.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		dur := time.Since(start)
		s.metrics.JobFinished(j.name, err, dur)
		if err != nil {
			log.Error().Err(err).Str("job", j.name).Dur("duration", dur).Msg("job failed")
			return
		}
		log.Debug().Str("job", j.name).Dur("duration", dur).Msg("job finished")
	}()

	return j.run(ctx)
}

func (s *Scheduler) hideSublines(ctx context.Context) error {
	_, err := s.deps.Lines.HideSublinesForStartedGames(ctx)
	return err
}

func (s *Scheduler) ingestStatistics(ctx context.Context) error {
	today, err := s.deps.SystemDate.Today(ctx)
	if err != nil {
		return err
	}

	records, err := s.deps.Feed.FinalStatistics(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to fetch final statistics: %w", err)
	}

	log.Debug().Str("date", today.Format(systemdate.DateLayout)).Int("records", len(records)).Msg("fetched final statistics")
	_, err = s.deps.Ingester.IngestFinalStatistics(ctx, records)
	return err
}

func (s *Scheduler) notifyResults(ctx context.Context) error {
	day, err := s.deps.SystemDate.Previous(ctx)
	if err != nil {
		return err
	}
	res, err := s.deps.Notify.NotifyUsersOfResults(ctx, day)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("failed to queue results for %d of %d users", len(res.Errors), res.Users)
	}
	return nil
}

func (s *Scheduler) resetFreeToPlay(ctx context.Context) error {
	_, err := s.deps.Wallet.ResetFreeToPlayBalances(ctx)
	return err
}
