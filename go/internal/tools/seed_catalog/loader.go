package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/games"
	"github.com/mcdev12/underline/go/internal/leagues"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/player"
	"github.com/mcdev12/underline/go/internal/teams"
)

// Catalog is the base data file. Teams, players and games refer to each other
// by abbreviation and acronym rather than ID.
type Catalog struct {
	SystemDate string          `json:"system_date"`
	Leagues    []CatalogLeague `json:"leagues"`
}

type CatalogLeague struct {
	Acronym    string            `json:"acronym"`
	LongName   string            `json:"long_name"`
	Positions  []CatalogPosition `json:"positions"`
	Categories []string          `json:"categories"`
	Teams      []CatalogTeam     `json:"teams"`
	Players    []CatalogPlayer   `json:"players"`
	Games      []CatalogGame     `json:"games"`
}

type CatalogPosition struct {
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

type CatalogTeam struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Location     string `json:"location"`
	LogoURL      string `json:"logo_url"`
}

type CatalogPlayer struct {
	Name        string   `json:"name"`
	Team        string   `json:"team"`
	Positions   []string `json:"positions"`
	Premier     bool     `json:"premier"`
	HeadshotURL *string  `json:"headshot_url,omitempty"`
}

type CatalogGame struct {
	Home     string    `json:"home"`
	Away     string    `json:"away"`
	StartsAt time.Time `json:"starts_at"`
}

type LeagueStore interface {
	UpsertLeague(ctx context.Context, req leagues.UpsertLeagueRequest) (*models.League, error)
	UpsertPosition(ctx context.Context, req leagues.UpsertPositionRequest) (*models.Position, error)
	UpsertLineCategory(ctx context.Context, req leagues.UpsertLineCategoryRequest) (*models.LineCategory, error)
}

type TeamStore interface {
	UpsertTeam(ctx context.Context, req teams.UpsertTeamRequest) (*models.Team, error)
}

type PlayerStore interface {
	UpsertPlayers(ctx context.Context, reqs []player.UpsertPlayerRequest) *player.SyncResult
}

type GameStore interface {
	UpsertGame(ctx context.Context, req games.UpsertGameRequest) (*models.Game, error)
}

type SystemDateStore interface {
	Parse(s string) (time.Time, error)
	Set(ctx context.Context, date time.Time) (*models.SystemDate, error)
}

// Loader writes a Catalog through the catalog apps so their validation applies
type Loader struct {
	Leagues    LeagueStore
	Teams      TeamStore
	Players    PlayerStore
	Games      GameStore
	SystemDate SystemDateStore
}

// Counts tallies what one Load wrote
type Counts struct {
	Leagues, Positions, Categories, Teams, Players, Games int
	Errors                                                []error
}

// Load upserts the catalog. Bad players and games are collected and skipped;
// a league, position or team failure aborts since everything below it
// depends on it.
func (l *Loader) Load(ctx context.Context, c Catalog) (*Counts, error) {
	counts := &Counts{}

	for _, cl := range c.Leagues {
		league, err := l.Leagues.UpsertLeague(ctx, leagues.UpsertLeagueRequest{Acronym: cl.Acronym, LongName: cl.LongName})
		if err != nil {
			return counts, fmt.Errorf("league %s: %w", cl.Acronym, err)
		}
		counts.Leagues++

		positions := make(map[string]uuid.UUID, len(cl.Positions))
		for _, cp := range cl.Positions {
			pos, err := l.Leagues.UpsertPosition(ctx, leagues.UpsertPositionRequest{LeagueID: league.ID, Name: cp.Name, Acronym: cp.Acronym})
			if err != nil {
				return counts, fmt.Errorf("position %s/%s: %w", cl.Acronym, cp.Acronym, err)
			}
			positions[cp.Acronym] = pos.ID
			counts.Positions++
		}

		for i, name := range cl.Categories {
			if _, err := l.Leagues.UpsertLineCategory(ctx, leagues.UpsertLineCategoryRequest{LeagueID: league.ID, Category: name, DisplayOrder: i}); err != nil {
				return counts, fmt.Errorf("category %s/%s: %w", cl.Acronym, name, err)
			}
			counts.Categories++
		}

		teamIDs := make(map[string]uuid.UUID, len(cl.Teams))
		for _, ct := range cl.Teams {
			team, err := l.Teams.UpsertTeam(ctx, teams.UpsertTeamRequest{
				LeagueID:     league.ID,
				Name:         ct.Name,
				Abbreviation: ct.Abbreviation,
				Location:     ct.Location,
				LogoURL:      ct.LogoURL,
			})
			if err != nil {
				return counts, fmt.Errorf("team %s/%s: %w", cl.Acronym, ct.Abbreviation, err)
			}
			teamIDs[ct.Abbreviation] = team.ID
			counts.Teams++
		}

		reqs := make([]player.UpsertPlayerRequest, 0, len(cl.Players))
		for _, cp := range cl.Players {
			req, err := playerRequest(cp, teamIDs, positions)
			if err != nil {
				counts.Errors = append(counts.Errors, err)
				continue
			}
			reqs = append(reqs, req)
		}
		if len(reqs) > 0 {
			res := l.Players.UpsertPlayers(ctx, reqs)
			counts.Players += res.Upserted
			counts.Errors = append(counts.Errors, res.Errors...)
		}

		for _, cg := range cl.Games {
			home, okHome := teamIDs[cg.Home]
			away, okAway := teamIDs[cg.Away]
			if !okHome || !okAway {
				counts.Errors = append(counts.Errors, fmt.Errorf("game %s@%s: unknown team", cg.Away, cg.Home))
				continue
			}
			if _, err := l.Games.UpsertGame(ctx, games.UpsertGameRequest{
				LeagueID:   league.ID,
				HomeTeamID: home,
				AwayTeamID: away,
				StartsAt:   cg.StartsAt,
			}); err != nil {
				counts.Errors = append(counts.Errors, fmt.Errorf("game %s@%s: %w", cg.Away, cg.Home, err))
				continue
			}
			counts.Games++
		}
	}

	if c.SystemDate != "" {
		date, err := l.SystemDate.Parse(c.SystemDate)
		if err != nil {
			return counts, err
		}
		if _, err := l.SystemDate.Set(ctx, date); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func playerRequest(cp CatalogPlayer, teamIDs, positions map[string]uuid.UUID) (player.UpsertPlayerRequest, error) {
	teamID, ok := teamIDs[cp.Team]
	if !ok {
		return player.UpsertPlayerRequest{}, fmt.Errorf("player %s: unknown team %q", cp.Name, cp.Team)
	}
	req := player.UpsertPlayerRequest{
		TeamID:      teamID,
		Name:        cp.Name,
		HeadshotURL: cp.HeadshotURL,
		Premier:     cp.Premier,
	}
	for _, acr := range cp.Positions {
		id, ok := positions[acr]
		if !ok {
			return player.UpsertPlayerRequest{}, fmt.Errorf("player %s: unknown position %q", cp.Name, acr)
		}
		req.PositionIDs = append(req.PositionIDs, id)
	}
	return req, nil
}
