package lines

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// world is an in-memory stand-in for the repository and every collaborator.
type world struct {
	today      time.Time
	players    map[uuid.UUID]*models.Player
	games      map[uuid.UUID]*models.Game
	categories map[uuid.UUID]*models.LineCategory
	lines      map[uuid.UUID]*models.Line
	sublines   []*models.Subline
	events     []string
}

func newWorld(today time.Time) *world {
	return &world{
		today:      today,
		players:    map[uuid.UUID]*models.Player{},
		games:      map[uuid.UUID]*models.Game{},
		categories: map[uuid.UUID]*models.LineCategory{},
		lines:      map[uuid.UUID]*models.Line{},
	}
}

func (w *world) Today(ctx context.Context) (time.Time, error) { return w.today, nil }

func (w *world) DayWindow(date time.Time) systemdate.Window {
	return systemdate.DayWindow(date, time.UTC)
}

func (w *world) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	if p, ok := w.players[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("player", id)
}

func (w *world) ResolvePlayer(ctx context.Context, name string) (*models.Player, error) {
	for _, p := range w.players {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, apperr.NotFound("player", name)
}

func (w *world) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	if g, ok := w.games[id]; ok {
		return g, nil
	}
	return nil, apperr.NotFound("game", id)
}

func (w *world) GameForTeamOnDate(ctx context.Context, teamID uuid.UUID, date time.Time) (*models.Game, error) {
	win := w.DayWindow(date)
	for _, g := range w.games {
		if g.Involves(teamID) && win.Contains(g.StartsAt) {
			return g, nil
		}
	}
	return nil, apperr.NotFound("game", teamID)
}

func (w *world) GetLineCategory(ctx context.Context, id uuid.UUID) (*models.LineCategory, error) {
	if c, ok := w.categories[id]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("line category", id)
}

func (w *world) GetLineCategoryByName(ctx context.Context, leagueID uuid.UUID, category string) (*models.LineCategory, error) {
	for _, c := range w.categories {
		if c.LeagueID == leagueID && strings.EqualFold(c.Category, category) {
			return c, nil
		}
	}
	return nil, apperr.NotFound("line category", category)
}

func (w *world) Broadcast(eventType string, payload any) {
	w.events = append(w.events, eventType)
}

func (w *world) CreateLine(ctx context.Context, req CreateLineRequest) (*models.Line, error) {
	if l, err := w.GetLineByKey(ctx, req.PlayerID, req.GameID, req.CategoryID); err == nil {
		return l, nil
	}
	l := &models.Line{ID: uuid.New(), PlayerID: req.PlayerID, GameID: req.GameID, CategoryID: req.CategoryID}
	w.lines[l.ID] = l
	return l, nil
}

func (w *world) GetLine(ctx context.Context, id uuid.UUID) (*models.Line, error) {
	if l, ok := w.lines[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, apperr.NotFound("line", id)
}

func (w *world) GetLineByKey(ctx context.Context, playerID, gameID, categoryID uuid.UUID) (*models.Line, error) {
	for _, l := range w.lines {
		if l.PlayerID == playerID && l.GameID == gameID && l.CategoryID == categoryID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("line", playerID)
}

func (w *world) SetActualValue(ctx context.Context, id uuid.UUID, value decimal.Decimal) error {
	l, ok := w.lines[id]
	if !ok {
		return apperr.NotFound("line", id)
	}
	l.ActualValue = &value
	return nil
}

func (w *world) InvalidateLine(ctx context.Context, id uuid.UUID) error {
	l, ok := w.lines[id]
	if !ok {
		return apperr.NotFound("line", id)
	}
	l.Invalidated = true
	for _, s := range w.sublines {
		if s.LineID == id {
			s.Visible = false
		}
	}
	return nil
}

func (w *world) CreateSubline(ctx context.Context, lineID uuid.UUID, projected decimal.Decimal) (*models.Subline, error) {
	for _, s := range w.sublines {
		if s.LineID == lineID {
			s.Visible = false
		}
	}
	s := &models.Subline{ID: uuid.New(), LineID: lineID, ProjectedValue: projected, Visible: true}
	w.sublines = append(w.sublines, s)
	return s, nil
}

func (w *world) ListOfferedSublines(ctx context.Context, start, end time.Time) ([]models.OfferedSubline, error) {
	var out []models.OfferedSubline
	for _, s := range w.sublines {
		l := w.lines[s.LineID]
		g := w.games[l.GameID]
		if !s.Visible || l.Invalidated || g.StartsAt.Before(start) || !g.StartsAt.Before(end) {
			continue
		}
		out = append(out, models.OfferedSubline{
			Subline:  *s,
			Line:     *l,
			Category: *w.categories[l.CategoryID],
			Player:   *w.players[l.PlayerID],
			Game:     *g,
		})
	}
	return out, nil
}

func (w *world) HideSublinesStartedBy(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var hidden []uuid.UUID
	for _, s := range w.sublines {
		g := w.games[w.lines[s.LineID].GameID]
		if s.Visible && !g.StartsAt.Truncate(time.Minute).After(cutoff) {
			s.Visible = false
			hidden = append(hidden, s.ID)
		}
	}
	return hidden, nil
}

// fixture helpers

func (w *world) addPlayer(name string, teamID uuid.UUID, premier bool) *models.Player {
	p := &models.Player{ID: uuid.New(), TeamID: teamID, Name: name, Premier: premier}
	w.players[p.ID] = p
	return p
}

func (w *world) addGame(leagueID, home, away uuid.UUID, startsAt time.Time) *models.Game {
	g := &models.Game{ID: uuid.New(), LeagueID: leagueID, HomeTeamID: home, AwayTeamID: away, StartsAt: startsAt}
	w.games[g.ID] = g
	return g
}

func (w *world) addCategory(leagueID uuid.UUID, name string) *models.LineCategory {
	c := &models.LineCategory{ID: uuid.New(), LeagueID: leagueID, Category: name}
	w.categories[c.ID] = c
	return c
}

func (w *world) offer(t *testing.T, app *App, p *models.Player, g *models.Game, c *models.LineCategory, projected string) (*models.Line, *models.Subline) {
	t.Helper()
	ctx := context.Background()
	line, err := app.CreateLine(ctx, CreateLineRequest{PlayerID: p.ID, GameID: g.ID, CategoryID: c.ID})
	if err != nil {
		t.Fatalf("CreateLine() error: %v", err)
	}
	sub, err := app.CreateSubline(ctx, CreateSublineRequest{LineID: line.ID, ProjectedValue: decimal.RequireFromString(projected)})
	if err != nil {
		t.Fatalf("CreateSubline() error: %v", err)
	}
	return line, sub
}

type fixture struct {
	w                  *world
	app                *App
	clock              *clockwork.FakeClock
	league             uuid.UUID
	lal, bos, mia, den uuid.UUID
	points             *models.LineCategory
	rebounds           *models.LineCategory
}

func newFixture() *fixture {
	today := time.Date(2021, 12, 25, 0, 0, 0, 0, time.UTC)
	w := newWorld(today)
	clock := clockwork.NewFakeClockAt(today.Add(9 * time.Hour))
	f := &fixture{
		w:      w,
		clock:  clock,
		league: uuid.New(),
		lal:    uuid.New(),
		bos:    uuid.New(),
		mia:    uuid.New(),
		den:    uuid.New(),
	}
	f.points = w.addCategory(f.league, "Points")
	f.rebounds = w.addCategory(f.league, "Rebounds")
	f.app = NewApp(w, w, w, w, w, clock, w)
	return f
}

func TestTodaysSublinesOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	early := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour))
	late := f.w.addGame(f.league, f.mia, f.den, f.w.today.Add(20*time.Hour))
	tomorrow := f.w.addGame(f.league, f.lal, f.mia, f.w.today.Add(40*time.Hour))

	lebron := f.w.addPlayer("LeBron James", f.lal, false)
	tatum := f.w.addPlayer("Jayson Tatum", f.bos, false)
	butler := f.w.addPlayer("Jimmy Butler", f.mia, true)
	jokic := f.w.addPlayer("Nikola Jokic", f.den, true)

	_, lebronSub := f.w.offer(t, f.app, lebron, early, f.points, "25.5")
	_, butlerSub := f.w.offer(t, f.app, butler, late, f.points, "22.5")
	_, jokicSub := f.w.offer(t, f.app, jokic, late, f.rebounds, "11.5")
	tatumLine, _ := f.w.offer(t, f.app, tatum, early, f.points, "26.5")
	f.w.offer(t, f.app, lebron, tomorrow, f.rebounds, "7.5")

	if err := f.app.InvalidateLine(ctx, tatumLine.ID); err != nil {
		t.Fatalf("InvalidateLine() error: %v", err)
	}

	got, err := f.app.TodaysSublines(ctx)
	if err != nil {
		t.Fatalf("TodaysSublines() error: %v", err)
	}

	want := []uuid.UUID{butlerSub.ID, jokicSub.ID, lebronSub.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d sublines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Subline.ID != want[i] {
			t.Errorf("position %d = %s (%s), want %s", i, got[i].Subline.ID, got[i].Player.Name, want[i])
		}
	}
}

func TestOrderOfferedIsStableWithinGroups(t *testing.T) {
	start := time.Date(2021, 12, 25, 17, 0, 0, 0, time.UTC)
	mk := func(name string, premier bool, offset time.Duration) models.OfferedSubline {
		return models.OfferedSubline{
			Player: models.Player{Name: name, Premier: premier},
			Game:   models.Game{StartsAt: start.Add(offset)},
		}
	}
	in := []models.OfferedSubline{
		mk("c", false, time.Hour),
		mk("a", false, 0),
		mk("b", false, 0),
		mk("p2", true, time.Hour),
		mk("p1", true, 0),
	}

	got := orderOffered(in)
	var names []string
	for _, o := range got {
		names = append(names, o.Player.Name)
	}
	if strings.Join(names, ",") != "p1,p2,a,b,c" {
		t.Errorf("order = %v, want [p1 p2 a b c]", names)
	}
	if in[0].Player.Name != "c" {
		t.Error("orderOffered() modified its input")
	}
}

func TestHideSublinesForStartedGamesIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	started := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour+30*time.Second))
	later := f.w.addGame(f.league, f.mia, f.den, f.w.today.Add(20*time.Hour))
	_, startedSub := f.w.offer(t, f.app, f.w.addPlayer("LeBron James", f.lal, false), started, f.points, "25.5")
	_, laterSub := f.w.offer(t, f.app, f.w.addPlayer("Jimmy Butler", f.mia, false), later, f.points, "22.5")

	// The start minute counts as started even before its seconds elapse.
	f.clock.Advance(8 * time.Hour)

	first, err := f.app.HideSublinesForStartedGames(ctx)
	if err != nil {
		t.Fatalf("HideSublinesForStartedGames() error: %v", err)
	}
	if len(first.Hidden) != 1 || first.Hidden[0] != startedSub.ID {
		t.Fatalf("hidden = %v, want [%s]", first.Hidden, startedSub.ID)
	}

	second, err := f.app.HideSublinesForStartedGames(ctx)
	if err != nil {
		t.Fatalf("HideSublinesForStartedGames() error: %v", err)
	}
	if len(second.Hidden) != 0 {
		t.Errorf("second sweep hid %v, want nothing", second.Hidden)
	}

	offered, _ := f.app.TodaysSublines(ctx)
	if len(offered) != 1 || offered[0].Subline.ID != laterSub.ID {
		t.Errorf("offered after sweep = %d sublines, want only the later game", len(offered))
	}

	hiddenEvents := 0
	for _, e := range f.w.events {
		if e == EventSublinesHidden {
			hiddenEvents++
		}
	}
	if hiddenEvents != 1 {
		t.Errorf("broadcast %d %s events, want 1", hiddenEvents, EventSublinesHidden)
	}
}

func TestIngestFinalStatistics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	game := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour))
	lebron := f.w.addPlayer("LeBron James", f.lal, false)
	tatum := f.w.addPlayer("Jayson Tatum", f.bos, false)
	f.w.addPlayer("Jimmy Butler", f.mia, false)

	lebronLine, _ := f.w.offer(t, f.app, lebron, game, f.points, "20.5")
	tatumLine, tatumSub := f.w.offer(t, f.app, tatum, game, f.points, "26.5")

	dnp := StatRecord{PlayerName: "Jayson Tatum", Category: "Points", DidNotPlay: true}
	batch := []StatRecord{
		{PlayerName: "lebron james", Category: "Points", ActualValue: decPtr("22")},
		{PlayerName: "Nobody Atall", Category: "Points", ActualValue: decPtr("3")},
		{PlayerName: "Jimmy Butler", Category: "Points", ActualValue: decPtr("18")},
		dnp,
		{PlayerName: "LeBron James", Category: "Points"},
	}

	result, err := f.app.IngestFinalStatistics(ctx, batch)
	if err != nil {
		t.Fatalf("IngestFinalStatistics() error: %v", err)
	}
	if result.TotalProcessed != 5 || result.Updated != 1 || result.Invalidated != 1 {
		t.Errorf("result = %+v, want 5 processed, 1 updated, 1 invalidated", result)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("got %d record errors, want 3", len(result.Errors))
	}
	if !apperr.IsNotFound(result.Errors[0]) || result.Errors[0].Index != 1 {
		t.Errorf("errors[0] = %v at %d, want unknown player at 1", result.Errors[0], result.Errors[0].Index)
	}
	if !apperr.IsNotFound(result.Errors[1]) || result.Errors[1].Index != 2 {
		t.Errorf("errors[1] = %v at %d, want no game at 2", result.Errors[1], result.Errors[1].Index)
	}
	if !apperr.IsValidation(result.Errors[2], apperr.CodeInvalidInput) {
		t.Errorf("errors[2] = %v, want missing value validation", result.Errors[2])
	}

	got, _ := f.w.GetLine(ctx, lebronLine.ID)
	if got.ActualValue == nil || !got.ActualValue.Equal(decimal.NewFromInt(22)) {
		t.Errorf("actual value = %v, want 22", got.ActualValue)
	}
	got, _ = f.w.GetLine(ctx, tatumLine.ID)
	if !got.Invalidated {
		t.Error("did-not-play line not invalidated")
	}
	for _, s := range f.w.sublines {
		if s.ID == tatumSub.ID && s.Visible {
			t.Error("invalidated line still has a visible subline")
		}
	}

	again, err := f.app.IngestFinalStatistics(ctx, batch[:1])
	if err != nil {
		t.Fatalf("re-run error: %v", err)
	}
	if again.Updated != 0 || again.Unchanged != 1 {
		t.Errorf("re-run = %+v, want a single unchanged record", again)
	}
	again, _ = f.app.IngestFinalStatistics(ctx, []StatRecord{dnp})
	if again.Invalidated != 0 || again.Unchanged != 1 {
		t.Errorf("re-run did-not-play = %+v, want unchanged", again)
	}
}

func TestIngestRejectsNegativeValues(t *testing.T) {
	f := newFixture()
	result, err := f.app.IngestFinalStatistics(context.Background(), []StatRecord{
		{PlayerName: "LeBron James", Category: "Points", ActualValue: decPtr("-1")},
		{PlayerName: "LeBron James", ActualValue: decPtr("1")},
	})
	if err != nil {
		t.Fatalf("IngestFinalStatistics() error: %v", err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(result.Errors))
	}
	for _, e := range result.Errors {
		if !apperr.IsValidation(e, apperr.CodeInvalidInput) {
			t.Errorf("error %v, want invalid input", e)
		}
	}
}

func TestIngestLogsEachFailureOnceAndOneSummary(t *testing.T) {
	f := newFixture()

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	_, err := f.app.IngestFinalStatistics(context.Background(), []StatRecord{
		{PlayerName: "LeBron James", Category: "Points", ActualValue: decPtr("-1")},
		{PlayerName: "Nobody Special", Category: "Points", ActualValue: decPtr("3")},
	})
	if err != nil {
		t.Fatalf("IngestFinalStatistics() error: %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, `"statistic not applied"`); n != 2 {
		t.Errorf("logged %d record failures, want 2:\n%s", n, out)
	}
	if n := strings.Count(out, `"ingested final statistics"`); n != 1 {
		t.Errorf("logged %d summaries, want 1:\n%s", n, out)
	}
}

func TestCreateSublineSupersedesPreviousProjection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	game := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour))
	lebron := f.w.addPlayer("LeBron James", f.lal, false)
	line, first := f.w.offer(t, f.app, lebron, game, f.points, "25.5")

	second, err := f.app.CreateSubline(ctx, CreateSublineRequest{LineID: line.ID, ProjectedValue: decimal.RequireFromString("27.5")})
	if err != nil {
		t.Fatalf("CreateSubline() error: %v", err)
	}

	offered, _ := f.app.TodaysSublines(ctx)
	if len(offered) != 1 || offered[0].Subline.ID != second.ID {
		t.Fatalf("offered = %d sublines, want only %s", len(offered), second.ID)
	}
	if offered[0].Subline.ID == first.ID {
		t.Error("superseded projection still offered")
	}
}

func TestCreateSublineRejectsUnavailableLines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	game := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour))
	lebron := f.w.addPlayer("LeBron James", f.lal, false)
	line, _ := f.w.offer(t, f.app, lebron, game, f.points, "25.5")

	_, err := f.app.CreateSubline(ctx, CreateSublineRequest{LineID: line.ID, ProjectedValue: decimal.NewFromInt(-1)})
	if !apperr.IsValidation(err, apperr.CodeInvalidInput) {
		t.Errorf("negative projection error = %v, want invalid input", err)
	}

	f.clock.Advance(8 * time.Hour)
	_, err = f.app.CreateSubline(ctx, CreateSublineRequest{LineID: line.ID, ProjectedValue: decimal.NewFromInt(30)})
	if !apperr.IsValidation(err, apperr.CodeSublineUnavailable) {
		t.Errorf("started game error = %v, want subline unavailable", err)
	}

	tatum := f.w.addPlayer("Jayson Tatum", f.bos, false)
	later := f.w.addGame(f.league, f.bos, f.mia, f.w.today.Add(20*time.Hour))
	tatumLine, _ := f.w.offer(t, f.app, tatum, later, f.points, "26.5")
	if err := f.app.InvalidateLine(ctx, tatumLine.ID); err != nil {
		t.Fatalf("InvalidateLine() error: %v", err)
	}
	_, err = f.app.CreateSubline(ctx, CreateSublineRequest{LineID: tatumLine.ID, ProjectedValue: decimal.NewFromInt(30)})
	if !apperr.IsValidation(err, apperr.CodeSublineUnavailable) {
		t.Errorf("invalidated line error = %v, want subline unavailable", err)
	}
}

func TestCreateLineValidatesMatchup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	game := f.w.addGame(f.league, f.lal, f.bos, f.w.today.Add(17*time.Hour))
	butler := f.w.addPlayer("Jimmy Butler", f.mia, false)
	_, err := f.app.CreateLine(ctx, CreateLineRequest{PlayerID: butler.ID, GameID: game.ID, CategoryID: f.points.ID})
	if !apperr.IsValidation(err, apperr.CodeInvalidInput) {
		t.Errorf("error = %v, want invalid input", err)
	}

	other := f.w.addCategory(uuid.New(), "Goals")
	lebron := f.w.addPlayer("LeBron James", f.lal, false)
	_, err = f.app.CreateLine(ctx, CreateLineRequest{PlayerID: lebron.ID, GameID: game.ID, CategoryID: other.ID})
	if !apperr.IsValidation(err, apperr.CodeInvalidInput) {
		t.Errorf("foreign category error = %v, want invalid input", err)
	}

	first, err := f.app.CreateLine(ctx, CreateLineRequest{PlayerID: lebron.ID, GameID: game.ID, CategoryID: f.points.ID})
	if err != nil {
		t.Fatalf("CreateLine() error: %v", err)
	}
	second, err := f.app.CreateLine(ctx, CreateLineRequest{PlayerID: lebron.ID, GameID: game.ID, CategoryID: f.points.ID})
	if err != nil {
		t.Fatalf("CreateLine() repeat error: %v", err)
	}
	if first.ID != second.ID {
		t.Error("repeat CreateLine() created a second line")
	}
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
