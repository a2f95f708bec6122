package player

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
)

// PlayerRepository defines what the app layer needs from the repository
type PlayerRepository interface {
	UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	FindPlayersByName(ctx context.Context, name string) ([]models.Player, error)
	ListPlayerNames(ctx context.Context) ([]string, error)
}

type TeamApp interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
}

// SyncResult represents the result of loading a batch of players
type SyncResult struct {
	TotalProcessed int     `json:"total_processed"`
	Upserted       int     `json:"upserted"`
	Errors         []error `json:"errors,omitempty"`
}

const (
	maxSuggestions      = 3
	similarityThreshold = 0.7
)

// App handles player business logic
type App struct {
	repo    PlayerRepository
	teamApp TeamApp
}

// NewApp creates a new player App
func NewApp(repo PlayerRepository, teamApp TeamApp) *App {
	return &App{
		repo:    repo,
		teamApp: teamApp,
	}
}

// UpsertPlayer creates a player or refreshes their team, flags and positions
func (a *App) UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validateUpsertPlayerRequest(req); err != nil {
		return nil, err
	}

	if _, err := a.teamApp.GetTeam(ctx, req.TeamID); err != nil {
		return nil, fmt.Errorf("failed to verify team: %w", err)
	}

	player, err := a.repo.UpsertPlayer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}
	return player, nil
}

// UpsertPlayers loads a batch, recording per-player failures without aborting
func (a *App) UpsertPlayers(ctx context.Context, reqs []UpsertPlayerRequest) *SyncResult {
	result := &SyncResult{TotalProcessed: len(reqs)}
	for _, req := range reqs {
		if _, err := a.UpsertPlayer(ctx, req); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("player %s: %w", req.Name, err))
			continue
		}
		result.Upserted++
	}

	log.Info().
		Int("total", result.TotalProcessed).
		Int("upserted", result.Upserted).
		Int("errors", len(result.Errors)).
		Msg("player batch loaded")
	return result
}

// GetPlayer retrieves a player by ID
func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := a.repo.GetPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ResolvePlayer finds the player a statistics record names. Matching is exact
// but case-insensitive; a miss returns an UnknownPlayerError with the closest
// names on file.
func (a *App) ResolvePlayer(ctx context.Context, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "name", "player name is required")
	}

	players, err := a.repo.FindPlayersByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find player by name: %w", err)
	}

	switch len(players) {
	case 1:
		return &players[0], nil
	case 0:
		names, err := a.repo.ListPlayerNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list player names: %w", err)
		}
		return nil, &UnknownPlayerError{Name: name, Suggestions: suggest(name, names, maxSuggestions)}
	default:
		return nil, apperr.Inconsistency("%d players share the name %q", len(players), name)
	}
}

// suggest ranks candidate names by similarity to name. A candidate qualifies
// when name is a subsequence of it or their normalized edit distance is small.
func suggest(name string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}

	subsequence := make(map[string]bool)
	for _, r := range fuzzy.RankFindNormalizedFold(name, candidates) {
		subsequence[r.Target] = true
	}

	lower := strings.ToLower(name)
	var matches []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		maxLen := float64(max(len(lower), len(lc)))
		if maxLen == 0 {
			continue
		}
		score := 1 - float64(fuzzy.LevenshteinDistance(lower, lc))/maxLen
		if score >= similarityThreshold || subsequence[c] {
			matches = append(matches, scored{name: c, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.name)
	}
	return out
}

// validateUpsertPlayerRequest validates upsert player request
func (a *App) validateUpsertPlayerRequest(req UpsertPlayerRequest) error {
	if req.TeamID == uuid.Nil {
		return apperr.Validation(apperr.CodeInvalidInput, "team_id", "team_id is required")
	}
	if req.Name == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "name", "name is required")
	}
	return nil
}
