package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/clients/statsfeed"
	"github.com/mcdev12/underline/go/internal/api"
	"github.com/mcdev12/underline/go/internal/games"
	"github.com/mcdev12/underline/go/internal/jobs"
	"github.com/mcdev12/underline/go/internal/leagues"
	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/mcdev12/underline/go/internal/lobby"
	"github.com/mcdev12/underline/go/internal/metrics"
	"github.com/mcdev12/underline/go/internal/notify"
	"github.com/mcdev12/underline/go/internal/player"
	"github.com/mcdev12/underline/go/internal/settlement"
	"github.com/mcdev12/underline/go/internal/slips"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/teams"
	"github.com/mcdev12/underline/go/internal/users"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/rs/zerolog/log"
)

// Services holds the wired application
type Services struct {
	Metrics    *metrics.Metrics
	Lobby      *lobby.Hub
	SystemDate *systemdate.App
	Leagues    *leagues.App
	Teams      *teams.App
	Players    *player.App
	Games      *games.App
	Lines      *lines.App
	Users      *users.App
	Wallet     *wallet.App
	Engine     *settlement.Engine
	Slips      *slips.App
	Notify     *notify.App
	Scheduler  *jobs.Scheduler

	Outbox    *notify.Repository
	Worker    *notify.Worker
	Listener  *notify.Listener
	Publisher notify.Publisher
	Health    *notify.HealthChecker

	closers []func() error
}

func setupServices(ctx context.Context, env Env, config Config, dsn string, pool *pgxpool.Pool, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer

	loc, err := systemdate.LoadLocation(config.ReferenceZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference zone: %w", err)
	}
	clock := clockwork.NewRealClock()
	s := &Services{
		Metrics: metrics.New(),
		Lobby:   lobby.NewHub(lobby.DefaultConfig()),
	}

	// Catalog
	s.SystemDate = systemdate.NewApp(systemdate.NewRepository(pool), loc, config.StakeWindow.StartHour, config.StakeWindow.EndHour)
	s.Leagues = leagues.NewApp(leagues.NewRepository(pool))
	s.Teams = teams.NewApp(teams.NewRepository(pool))
	s.Players = player.NewApp(player.NewRepository(pool), s.Teams)
	s.Games = games.NewApp(games.NewRepository(pool), loc)

	// Line engine
	s.Lines = lines.NewApp(lines.NewRepository(pool), s.SystemDate, s.Players, s.Games, s.Leagues, clock, s.Lobby)

	// Users and wallet
	s.Users = users.NewApp(users.NewRepository(pool))
	s.Wallet = wallet.NewApp(wallet.NewRepository(pool), config.Wallet)

	// Slips
	s.Engine = settlement.NewEngine(config.PayoutMultipliers)
	s.Slips = slips.NewApp(slips.NewRepository(pool), s.SystemDate, s.Engine, config.Wallet, clock, s.Metrics)

	// Notifications
	s.Outbox = notify.NewRepository(database)
	s.Notify = notify.NewApp(s.Outbox, s.Slips, s.Users)

	var broker notify.Connection
	if env.NATSURL != "" {
		jsCfg := notify.DefaultJetStreamConfig()
		jsCfg.URL = env.NATSURL
		js, err := notify.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.Publisher = js
		broker = js
		s.closers = append(s.closers, js.Close)
	} else {
		log.Warn().Msg("NATS_URL not set, relaying notifications to the log")
		s.Publisher = notify.LogPublisher{}
	}

	workerCfg := notify.DefaultWorkerConfig()
	workerCfg.PollInterval = config.Outbox.PollInterval
	workerCfg.BatchSize = config.Outbox.BatchSize
	s.Worker = notify.NewWorker(s.Outbox, s.Publisher, s.Metrics, workerCfg)

	listenerCfg := notify.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dsn
	listenerCfg.BatchSize = config.Outbox.BatchSize
	s.Listener, err = notify.NewListener(s.Outbox, s.Publisher, s.Metrics, listenerCfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}
	s.closers = append(s.closers, s.Listener.Stop)

	s.Health = notify.NewHealthChecker(s.Worker, s.Outbox, s.Outbox, broker, config.Outbox.HealthThreshold)

	// Jobs
	feed := statsfeed.NewClient(statsfeed.Config{
		BaseURL: env.StatsFeedURL,
		APIKey:  env.StatsFeedKey,
		RPS:     env.StatsFeedRPS,
	})
	s.Scheduler, err = jobs.NewScheduler(jobs.Deps{
		Lines:      s.Lines,
		Ingester:   s.Lines,
		Feed:       feed,
		Notify:     s.Notify,
		Wallet:     s.Wallet,
		SystemDate: s.SystemDate,
	}, config.Schedule, loc, clock, s.Metrics)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// APIDeps exposes the services to the HTTP layer
func (s *Services) APIDeps() api.Deps {
	return api.Deps{
		SystemDate: s.SystemDate,
		Lines:      s.Lines,
		Categories: s.Leagues,
		Leagues:    s.Leagues,
		Teams:      s.Teams,
		Games:      s.Games,
		Payouts:    s.Engine,
		Slips:      s.Slips,
		Wallet:     s.Wallet,
		Users:      s.Users,
		Jobs:       s.Scheduler,
		Lobby:      s.Lobby,
		Health:     s.Health,
		Gatherer:   s.Metrics.Registry(),
		Observer:   s.Metrics,
	}
}

// Start launches the background workers
func (s *Services) Start(ctx context.Context) error {
	go s.Lobby.Start(ctx)

	if err := s.Worker.Start(ctx); err != nil {
		return err
	}
	go func() {
		if err := s.Listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener stopped")
		}
	}()

	s.Scheduler.Start(ctx)
	return nil
}

// Close stops background work and releases connections
func (s *Services) Close() {
	if s.Scheduler != nil {
		if err := s.Scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop scheduler")
		}
	}
	if s.Worker != nil && s.Worker.Running() {
		if err := s.Worker.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop outbox worker")
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
	s.closers = nil
}

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 15 * time.Second
