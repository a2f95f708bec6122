package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/underline/go/internal/dbconfig"
	"github.com/mcdev12/underline/go/internal/games"
	"github.com/mcdev12/underline/go/internal/leagues"
	"github.com/mcdev12/underline/go/internal/player"
	"github.com/mcdev12/underline/go/internal/schema"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/teams"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	path := flag.String("file", "go/internal/assets/catalog.json", "catalog JSON file")
	zone := flag.String("zone", systemdate.ReferenceZone, "reference time zone")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	ctx := context.Background()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("read catalog")
	}
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		log.Fatal().Err(err).Msg("unmarshal catalog")
	}

	loc, err := systemdate.LoadLocation(*zone)
	if err != nil {
		log.Fatal().Err(err).Msg("load zone")
	}

	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("database config")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer pool.Close()

	if err := schema.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	teamApp := teams.NewApp(teams.NewRepository(pool))
	loader := &Loader{
		Leagues:    leagues.NewApp(leagues.NewRepository(pool)),
		Teams:      teamApp,
		Players:    player.NewApp(player.NewRepository(pool), teamApp),
		Games:      games.NewApp(games.NewRepository(pool), loc),
		SystemDate: systemdate.NewApp(systemdate.NewRepository(pool), loc, 7, 23),
	}

	counts, err := loader.Load(ctx, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	for _, e := range counts.Errors {
		log.Warn().Err(e).Msg("skipped")
	}
	log.Info().
		Int("leagues", counts.Leagues).
		Int("positions", counts.Positions).
		Int("categories", counts.Categories).
		Int("teams", counts.Teams).
		Int("players", counts.Players).
		Int("games", counts.Games).
		Int("skipped", len(counts.Errors)).
		Msg("catalog seeded")
}
