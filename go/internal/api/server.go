// Package api exposes the platform over JSON/HTTP. Handlers only decode,
// delegate to the app layer and encode; every rule lives below.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/slips"
	"github.com/mcdev12/underline/go/internal/users"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// SystemDateApp reads and moves the business today
type SystemDateApp interface {
	Get(ctx context.Context) (*models.SystemDate, error)
	Set(ctx context.Context, date time.Time) (*models.SystemDate, error)
	Parse(s string) (time.Time, error)
}

// LinesApp is the line engine surface the API uses
type LinesApp interface {
	TodaysSublines(ctx context.Context) ([]models.OfferedSubline, error)
	IngestFinalStatistics(ctx context.Context, records []lines.StatRecord) (*lines.IngestResult, error)
	CreateLine(ctx context.Context, req lines.CreateLineRequest) (*models.Line, error)
	CreateSubline(ctx context.Context, req lines.CreateSublineRequest) (*models.Subline, error)
	InvalidateLine(ctx context.Context, id uuid.UUID) error
}

// CategoriesApp lists the statistic types of a league
type CategoriesApp interface {
	ListLineCategories(ctx context.Context, acronym string) ([]models.LineCategory, error)
}

// LeaguesApp reads the league catalog
type LeaguesApp interface {
	ListLeagues(ctx context.Context) ([]models.League, error)
	GetLeagueByAcronym(ctx context.Context, acronym string) (*models.League, error)
	ListPositions(ctx context.Context, leagueID uuid.UUID) ([]models.Position, error)
}

// TeamsApp reads the teams of a league
type TeamsApp interface {
	ListTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
	GetTeamByAbbreviation(ctx context.Context, leagueID uuid.UUID, abbreviation string) (*models.Team, error)
}

// GamesApp reads the schedule
type GamesApp interface {
	GamesOnDate(ctx context.Context, date time.Time) ([]models.Game, error)
}

// PayoutTable exposes the multiplier per pick count
type PayoutTable interface {
	Table() map[int]int
}

// SlipsApp places and reads slips
type SlipsApp interface {
	CreateSlip(ctx context.Context, userID uuid.UUID, req slips.CreateSlipRequest) (*slips.CreateSlipResult, error)
	PendingSlips(ctx context.Context, userID uuid.UUID) ([]slips.SlipView, error)
	SettledSlips(ctx context.Context, userID uuid.UUID) ([]slips.SlipView, error)
}

// WalletApp records deposits and manual corrections
type WalletApp interface {
	RecordDeposit(ctx context.Context, userID uuid.UUID, req wallet.RecordDepositRequest) (*models.Deposit, error)
	Adjust(ctx context.Context, userID uuid.UUID, req wallet.AdjustRequest) (decimal.Decimal, error)
}

// UsersApp resolves, provisions and edits accounts
type UsersApp interface {
	CreateUser(ctx context.Context, req users.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req users.UpdateUserRequest) (*models.User, error)
}

// JobTrigger runs a scheduled job on demand
type JobTrigger interface {
	Trigger(ctx context.Context, name string) error
}

// Deps are the collaborators behind the routes. Lobby, Health and Gatherer
// are optional.
type Deps struct {
	SystemDate SystemDateApp
	Lines      LinesApp
	Categories CategoriesApp
	Leagues    LeaguesApp
	Teams      TeamsApp
	Games      GamesApp
	Payouts    PayoutTable
	Slips      SlipsApp
	Wallet     WalletApp
	Users      UsersApp
	Jobs       JobTrigger
	Lobby      http.Handler
	Health     http.Handler
	Gatherer   prometheus.Gatherer
	Observer   RequestObserver
}

// Config configures the HTTP server
type Config struct {
	Port           string
	JWTSecret      string
	AllowedOrigins []string
}

// Server holds the routes
type Server struct {
	deps Deps
	jwt  JWT
	mux  *http.ServeMux
}

// NewServer builds the route table
func NewServer(deps Deps, cfg Config) *Server {
	s := &Server{
		deps: deps,
		jwt:  JWT{Secret: []byte(cfg.JWTSecret)},
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	user := func(h http.HandlerFunc) http.Handler { return authenticate(s.jwt, h) }
	admin := func(h http.HandlerFunc) http.Handler { return requireAdmin(s.jwt, h) }

	s.mux.HandleFunc("GET /api/system-date", s.getSystemDate)
	s.mux.Handle("PUT /api/admin/system-date", admin(s.setSystemDate))

	s.mux.HandleFunc("GET /api/sublines/today", s.todaysSublines)
	s.mux.HandleFunc("GET /api/line-categories", s.lineCategories)
	s.mux.HandleFunc("GET /api/leagues", s.listLeagues)
	s.mux.HandleFunc("GET /api/leagues/{acronym}/positions", s.leaguePositions)
	s.mux.HandleFunc("GET /api/leagues/{acronym}/teams", s.leagueTeams)
	s.mux.HandleFunc("GET /api/leagues/{acronym}/teams/{abbreviation}", s.leagueTeam)
	s.mux.HandleFunc("GET /api/games", s.gamesOnDate)
	s.mux.HandleFunc("GET /api/payouts", s.payouts)

	s.mux.Handle("POST /api/slips", user(s.createSlip))
	s.mux.Handle("GET /api/slips/pending", user(s.pendingSlips))
	s.mux.Handle("GET /api/slips/settled", user(s.settledSlips))

	s.mux.Handle("POST /api/deposits", user(s.recordDeposit))
	s.mux.Handle("GET /api/me", user(s.me))
	s.mux.Handle("PATCH /api/me", user(s.updateMe))
	s.mux.Handle("POST /api/admin/users", admin(s.createUser))
	s.mux.Handle("POST /api/admin/users/{id}/adjustments", admin(s.adjustWallet))

	s.mux.Handle("POST /api/admin/lines", admin(s.createLine))
	s.mux.Handle("POST /api/admin/sublines", admin(s.createSubline))
	s.mux.Handle("POST /api/admin/lines/{id}/invalidate", admin(s.invalidateLine))
	s.mux.Handle("POST /api/admin/statistics", admin(s.ingestStatistics))
	s.mux.Handle("POST /api/admin/jobs/{name}", admin(s.triggerJob))

	if s.deps.Lobby != nil {
		s.mux.Handle("GET /ws/lobby", s.deps.Lobby)
	}
	if s.deps.Health != nil {
		s.mux.Handle("GET /health", s.deps.Health)
	} else {
		s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
		})
	}
	if s.deps.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the routes wrapped with request logging and CORS
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(logRequests(s.deps.Observer, s.mux))
}

// NewHTTPServer serves the API over HTTP/1.1 and cleartext HTTP/2
func NewHTTPServer(deps Deps, cfg Config) *http.Server {
	s := NewServer(deps, cfg)
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(s.Handler(cfg.AllowedOrigins), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
