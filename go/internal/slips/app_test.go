package slips

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/mcdev12/underline/go/internal/settlement"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/wallet"
	"github.com/shopspring/decimal"
)

type fakeSystemDate struct{ today time.Time }

func (f fakeSystemDate) Today(ctx context.Context) (time.Time, error) { return f.today, nil }
func (f fakeSystemDate) BusinessDay(date time.Time) systemdate.Window {
	return systemdate.BusinessDay(date, time.UTC, 7, 23)
}

// fakeRepo serializes WithinUserLock the way the row lock does and applies
// staged writes only when fn succeeds.
type fakeRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	sublines map[uuid.UUID]models.OfferedSubline
	slips    []models.Slip
}

type fakeTx struct {
	repo     *fakeRepo
	slips    []models.Slip
	balances map[uuid.UUID]decimal.Decimal
}

func (t *fakeTx) GetSublines(ctx context.Context, ids []uuid.UUID) ([]models.OfferedSubline, error) {
	var out []models.OfferedSubline
	for _, id := range ids {
		if o, ok := t.repo.sublines[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (t *fakeTx) SumStakes(ctx context.Context, userID uuid.UUID, businessDate time.Time) (int, error) {
	total := 0
	for _, s := range t.repo.slips {
		if s.UserID == userID && sameDate(s.BusinessDate, businessDate) {
			total += s.EntryAmount
		}
	}
	return total, nil
}

func (t *fakeTx) InsertSlip(ctx context.Context, slip models.Slip) error {
	t.slips = append(t.slips, slip)
	return nil
}

func (t *fakeTx) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	t.balances[userID] = balance
	return nil
}

func (f *fakeRepo) WithinUserLock(ctx context.Context, userID uuid.UUID, fn func(tx Tx, user *models.User) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("user", userID)
	}
	snapshot := *u
	tx := &fakeTx{repo: f, balances: map[uuid.UUID]decimal.Decimal{}}
	if err := fn(tx, &snapshot); err != nil {
		return err
	}
	f.slips = append(f.slips, tx.slips...)
	for id, b := range tx.balances {
		f.users[id].WalletBalance = b
	}
	return nil
}

func (f *fakeRepo) ListSlipsForUser(ctx context.Context, userID uuid.UUID) ([]models.Slip, error) {
	var out []models.Slip
	for _, s := range f.slips {
		if s.UserID == userID {
			out = append(out, f.refresh(s))
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSlipsForBusinessDate(ctx context.Context, businessDate time.Time) ([]models.Slip, error) {
	var out []models.Slip
	for _, s := range f.slips {
		if sameDate(s.BusinessDate, businessDate) {
			out = append(out, f.refresh(s))
		}
	}
	return out, nil
}

// refresh copies the current line facts onto the slip's picks.
func (f *fakeRepo) refresh(s models.Slip) models.Slip {
	picks := make([]models.Pick, len(s.Picks))
	for i, p := range s.Picks {
		o := f.sublines[p.SublineID]
		p.ActualValue = o.Line.ActualValue
		p.Invalidated = o.Line.Invalidated
		picks[i] = p
	}
	s.Picks = picks
	return s
}

type fixture struct {
	repo    *fakeRepo
	app     *App
	clock   *clockwork.FakeClock
	today   time.Time
	user    *models.User
	home    []uuid.UUID
	away    []uuid.UUID
	metrics *countingMetrics
}

type countingMetrics struct {
	mu       sync.Mutex
	created  int
	rejected map[string]int
}

func (m *countingMetrics) SlipCreated(bool, int) {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *countingMetrics) SlipRejected(code string) {
	m.mu.Lock()
	m.rejected[code]++
	m.mu.Unlock()
}

func newFixture(balance string, freeToPlay bool) *fixture {
	today := time.Date(2021, 12, 25, 0, 0, 0, 0, time.UTC)
	f := &fixture{
		repo: &fakeRepo{
			users:    map[uuid.UUID]*models.User{},
			sublines: map[uuid.UUID]models.OfferedSubline{},
		},
		clock:   clockwork.NewFakeClockAt(today.Add(9 * time.Hour)),
		today:   today,
		user:    &models.User{ID: uuid.New(), WalletBalance: decimal.RequireFromString(balance), FreeToPlay: freeToPlay},
		metrics: &countingMetrics{rejected: map[string]int{}},
	}
	f.repo.users[f.user.ID] = f.user

	homeTeam, awayTeam := uuid.New(), uuid.New()
	game := models.Game{ID: uuid.New(), HomeTeamID: homeTeam, AwayTeamID: awayTeam, StartsAt: today.Add(19 * time.Hour)}
	for i := 0; i < 5; i++ {
		f.home = append(f.home, f.addSubline(homeTeam, game, "20.5"))
		f.away = append(f.away, f.addSubline(awayTeam, game, "20.5"))
	}

	f.app = NewApp(f.repo, fakeSystemDate{today: today}, settlement.NewEngine(nil), wallet.DefaultPolicy(), f.clock, f.metrics)
	return f
}

func (f *fixture) addSubline(teamID uuid.UUID, game models.Game, projected string) uuid.UUID {
	line := models.Line{ID: uuid.New(), GameID: game.ID}
	sub := models.Subline{ID: uuid.New(), LineID: line.ID, ProjectedValue: decimal.RequireFromString(projected), Visible: true}
	f.repo.sublines[sub.ID] = models.OfferedSubline{
		Subline: sub,
		Line:    line,
		Player:  models.Player{ID: uuid.New(), TeamID: teamID},
		Game:    game,
	}
	return sub.ID
}

func (f *fixture) setActual(sublineID uuid.UUID, value string) {
	o := f.repo.sublines[sublineID]
	d := decimal.RequireFromString(value)
	o.Line.ActualValue = &d
	f.repo.sublines[sublineID] = o
}

func (f *fixture) request(entry int, ids ...uuid.UUID) CreateSlipRequest {
	req := CreateSlipRequest{EntryAmount: entry}
	for _, id := range ids {
		req.Picks = append(req.Picks, PickRequest{SublineID: id})
	}
	return req
}

func TestCreateSlipDebitsAndEchoesTier(t *testing.T) {
	for _, freeToPlay := range []bool{false, true} {
		f := newFixture("100", freeToPlay)
		res, err := f.app.CreateSlip(context.Background(), f.user.ID, f.request(20, f.home[0], f.away[0]))
		if err != nil {
			t.Fatalf("CreateSlip() error: %v", err)
		}
		if res.FreeToPlay != freeToPlay {
			t.Errorf("free_to_play = %v, want %v", res.FreeToPlay, freeToPlay)
		}
		if !f.user.WalletBalance.Equal(decimal.NewFromInt(80)) {
			t.Errorf("balance = %s, want 80", f.user.WalletBalance)
		}
		if len(f.repo.slips) != 1 || len(f.repo.slips[0].Picks) != 2 || f.repo.slips[0].ID != res.SlipID {
			t.Fatalf("stored slips = %+v", f.repo.slips)
		}
		if !f.repo.slips[0].Picks[0].ProjectedValue.Equal(decimal.RequireFromString("20.5")) {
			t.Errorf("pick projected value = %s, want 20.5", f.repo.slips[0].Picks[0].ProjectedValue)
		}
	}
}

func TestCreateSlipEnforcesDailyStakeCap(t *testing.T) {
	f := newFixture("500", false)
	ctx := context.Background()

	for _, entry := range []int{50, 25} {
		if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(entry, f.home[0], f.away[0])); err != nil {
			t.Fatalf("CreateSlip(%d) error: %v", entry, err)
		}
	}

	_, err := f.app.CreateSlip(ctx, f.user.ID, f.request(10, f.home[1], f.away[1]))
	if !apperr.IsValidation(err, apperr.CodeStakeCapExceeded) {
		t.Fatalf("75+10 error = %v, want stake_cap_exceeded", err)
	}
	if len(f.repo.slips) != 2 || !f.user.WalletBalance.Equal(decimal.NewFromInt(425)) {
		t.Errorf("rejected slip changed state: %d slips, balance %s", len(f.repo.slips), f.user.WalletBalance)
	}

	if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(5, f.home[1], f.away[1])); err != nil {
		t.Fatalf("75+5 error = %v, want accepted", err)
	}
	if f.metrics.rejected[string(apperr.CodeStakeCapExceeded)] != 1 || f.metrics.created != 3 {
		t.Errorf("metrics = %d created, %v rejected", f.metrics.created, f.metrics.rejected)
	}
}

func TestStakesCountTowardTheirBusinessDate(t *testing.T) {
	f := newFixture("500", false)
	ctx := context.Background()
	yesterday := f.today.AddDate(0, 0, -1)

	// Placed yesterday, including one written after midnight wall time.
	f.repo.slips = append(f.repo.slips,
		models.Slip{ID: uuid.New(), UserID: f.user.ID, EntryAmount: 50, BusinessDate: yesterday, CreatedAt: yesterday.Add(20 * time.Hour)},
		models.Slip{ID: uuid.New(), UserID: f.user.ID, EntryAmount: 50, BusinessDate: yesterday, CreatedAt: f.today.Add(30 * time.Minute)},
		models.Slip{ID: uuid.New(), UserID: f.user.ID, EntryAmount: 30, BusinessDate: f.today, CreatedAt: f.today.Add(8 * time.Hour)},
	)

	if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(50, f.home[0], f.away[0])); err != nil {
		t.Fatalf("CreateSlip() error = %v, want only the 30 staked today counted", err)
	}
	_, err := f.app.CreateSlip(ctx, f.user.ID, f.request(5, f.home[1], f.away[1]))
	if !apperr.IsValidation(err, apperr.CodeStakeCapExceeded) {
		t.Errorf("80+5 error = %v, want stake_cap_exceeded", err)
	}

	placed := f.repo.slips[len(f.repo.slips)-1]
	if !sameDate(placed.BusinessDate, f.today) {
		t.Errorf("business date = %v, want %v", placed.BusinessDate, f.today)
	}
}

func TestCreateSlipOutsideBusinessHours(t *testing.T) {
	f := newFixture("1000", false)
	ctx := context.Background()

	// A late game keeps the sublines offerable after the window closes.
	late := models.Game{ID: uuid.New(), HomeTeamID: uuid.New(), AwayTeamID: uuid.New(), StartsAt: f.today.Add(23*time.Hour + 50*time.Minute)}
	home := f.addSubline(late.HomeTeamID, late, "10.5")
	away := f.addSubline(late.AwayTeamID, late, "10.5")

	for _, at := range []time.Duration{23*time.Hour + 30*time.Minute, 6*time.Hour + 30*time.Minute} {
		f.clock = clockwork.NewFakeClockAt(f.today.Add(at))
		f.app = NewApp(f.repo, fakeSystemDate{today: f.today}, settlement.NewEngine(nil), wallet.DefaultPolicy(), f.clock, f.metrics)

		for i := 0; i < 4; i++ {
			_, err := f.app.CreateSlip(ctx, f.user.ID, f.request(50, home, away))
			if !apperr.IsValidation(err, apperr.CodeOutsideBusinessDay) {
				t.Fatalf("slip at %s error = %v, want outside_business_day", f.clock.Now().Format(time.Kitchen), err)
			}
		}
	}
	if len(f.repo.slips) != 0 || !f.user.WalletBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("rejected slips changed state: %d slips, balance %s", len(f.repo.slips), f.user.WalletBalance)
	}
	if f.metrics.rejected[string(apperr.CodeOutsideBusinessDay)] != 8 {
		t.Errorf("rejections = %v", f.metrics.rejected)
	}

	// Just before close the cap still binds on the whole day's stakes.
	f.clock = clockwork.NewFakeClockAt(f.today.Add(22*time.Hour + 59*time.Minute))
	f.app = NewApp(f.repo, fakeSystemDate{today: f.today}, settlement.NewEngine(nil), wallet.DefaultPolicy(), f.clock, f.metrics)
	if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(50, home, away)); err != nil {
		t.Fatalf("slip before close error: %v", err)
	}
	if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(50, home, away)); !apperr.IsValidation(err, apperr.CodeStakeCapExceeded) {
		t.Errorf("second slip error = %v, want stake_cap_exceeded", err)
	}
}

func TestCreatorCodeIsStoredTrimmed(t *testing.T) {
	f := newFixture("500", false)
	padded := "  streamer42\t"
	req := f.request(10, f.home[0], f.away[0])
	req.CreatorCode = &padded

	if _, err := f.app.CreateSlip(context.Background(), f.user.ID, req); err != nil {
		t.Fatalf("CreateSlip() error: %v", err)
	}
	got := f.repo.slips[0].CreatorCode
	if got == nil || *got != "streamer42" {
		t.Errorf("creator code = %v, want streamer42", got)
	}
	if padded != "  streamer42\t" {
		t.Error("caller's creator code was modified")
	}

	blank := "   "
	req.CreatorCode = &blank
	if _, err := f.app.CreateSlip(context.Background(), f.user.ID, req); !apperr.IsValidation(err, apperr.CodeInvalidInput) {
		t.Errorf("blank creator code error = %v, want invalid input", err)
	}
}

func TestCreateSlipValidation(t *testing.T) {
	f := newFixture("500", false)
	long := strings.Repeat("x", MaxCreatorCodeLength+1)

	tests := []struct {
		name string
		req  CreateSlipRequest
		code apperr.Code
	}{
		{"one pick", f.request(10, f.home[0]), apperr.CodeInvalidPickCount},
		{"six picks", f.request(10, f.home[0], f.home[1], f.home[2], f.away[0], f.away[1], f.away[2]), apperr.CodeInvalidPickCount},
		{"zero entry", f.request(0, f.home[0], f.away[0]), apperr.CodeInvalidInput},
		{"entry too large", f.request(51, f.home[0], f.away[0]), apperr.CodeEntryTooLarge},
		{"duplicate subline", f.request(10, f.home[0], f.home[0]), apperr.CodeDuplicatePick},
		{"single team", f.request(10, f.home[0], f.home[1], f.home[2]), apperr.CodeSingleTeam},
		{"creator code too long", func() CreateSlipRequest {
			r := f.request(10, f.home[0], f.away[0])
			r.CreatorCode = &long
			return r
		}(), apperr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.CreateSlip(context.Background(), f.user.ID, tt.req)
			if !apperr.IsValidation(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
	if len(f.repo.slips) != 0 {
		t.Errorf("invalid requests stored %d slips", len(f.repo.slips))
	}
}

func TestCreateSlipRejectsUnavailableSublines(t *testing.T) {
	f := newFixture("500", false)
	ctx := context.Background()

	hidden := f.repo.sublines[f.home[0]]
	hidden.Subline.Visible = false
	f.repo.sublines[f.home[0]] = hidden

	invalid := f.repo.sublines[f.home[1]]
	invalid.Line.Invalidated = true
	f.repo.sublines[f.home[1]] = invalid

	for _, id := range []uuid.UUID{f.home[0], f.home[1]} {
		_, err := f.app.CreateSlip(ctx, f.user.ID, f.request(10, id, f.away[0]))
		if !apperr.IsValidation(err, apperr.CodeSublineUnavailable) {
			t.Errorf("error = %v, want subline_unavailable", err)
		}
	}

	if _, err := f.app.CreateSlip(ctx, f.user.ID, f.request(10, uuid.New(), f.away[0])); !apperr.IsNotFound(err) {
		t.Errorf("unknown subline error = %v, want not found", err)
	}

	f.clock.Advance(10 * time.Hour)
	_, err := f.app.CreateSlip(ctx, f.user.ID, f.request(10, f.home[2], f.away[2]))
	if !apperr.IsValidation(err, apperr.CodeSublineUnavailable) {
		t.Errorf("started game error = %v, want subline_unavailable", err)
	}
}

func TestCreateSlipInsufficientFunds(t *testing.T) {
	f := newFixture("9.99", false)
	_, err := f.app.CreateSlip(context.Background(), f.user.ID, f.request(10, f.home[0], f.away[0]))
	if !apperr.IsValidation(err, apperr.CodeInsufficientFunds) {
		t.Errorf("error = %v, want insufficient_funds", err)
	}
	if len(f.repo.slips) != 0 {
		t.Error("slip stored despite insufficient funds")
	}
}

func TestConcurrentCreatesRespectCap(t *testing.T) {
	f := newFixture("1000", false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.app.CreateSlip(ctx, f.user.ID, f.request(10, f.home[0], f.away[0]))
		}()
	}
	wg.Wait()

	total := 0
	for _, s := range f.repo.slips {
		total += s.EntryAmount
	}
	if total != 80 || len(f.repo.slips) != 8 {
		t.Errorf("stored %d slips totalling %d, want 8 totalling 80", len(f.repo.slips), total)
	}
	if !f.user.WalletBalance.Equal(decimal.NewFromInt(920)) {
		t.Errorf("balance = %s, want 920", f.user.WalletBalance)
	}
}

func TestPendingAndSettledSlips(t *testing.T) {
	f := newFixture("500", false)
	ctx := context.Background()

	won, _ := f.app.CreateSlip(ctx, f.user.ID, CreateSlipRequest{EntryAmount: 10, Picks: []PickRequest{
		{SublineID: f.home[0]}, {SublineID: f.away[0], Under: true},
	}})
	pending, _ := f.app.CreateSlip(ctx, f.user.ID, f.request(10, f.home[1], f.away[1]))
	invalidated, _ := f.app.CreateSlip(ctx, f.user.ID, f.request(10, f.home[2], f.away[2]))

	f.setActual(f.home[0], "25")
	f.setActual(f.away[0], "18")
	f.setActual(f.home[1], "30")
	o := f.repo.sublines[f.away[2]]
	o.Line.Invalidated = true
	f.repo.sublines[f.away[2]] = o

	open, err := f.app.PendingSlips(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("PendingSlips() error: %v", err)
	}
	if len(open) != 1 || open[0].Slip.ID != pending.SlipID || open[0].Evaluation.Won != settlement.OutcomePending {
		t.Errorf("pending = %+v, want only %s", open, pending.SlipID)
	}

	settled, err := f.app.SettledSlips(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("SettledSlips() error: %v", err)
	}
	states := map[uuid.UUID]settlement.State{}
	for _, v := range settled {
		states[v.Slip.ID] = v.Evaluation.State
	}
	if states[won.SlipID] != settlement.StateSettledWon || states[invalidated.SlipID] != settlement.StateInvalidated || len(states) != 2 {
		t.Errorf("settled states = %v", states)
	}
	for _, v := range settled {
		if v.Slip.ID == won.SlipID && !v.Evaluation.PayoutAmount.Equal(decimal.NewFromInt(30)) {
			t.Errorf("payout = %s, want 30", v.Evaluation.PayoutAmount)
		}
	}

	day, err := f.app.SlipsForDay(ctx, f.today)
	if err != nil {
		t.Fatalf("SlipsForDay() error: %v", err)
	}
	if len(day) != 3 {
		t.Errorf("slips for day = %d, want 3", len(day))
	}
	if other, _ := f.app.SlipsForDay(ctx, f.today.AddDate(0, 0, 1)); len(other) != 0 {
		t.Errorf("slips for next day = %d, want 0", len(other))
	}

	// Grouping follows the business date even when the wall date differs.
	f.repo.slips = append(f.repo.slips, models.Slip{ID: uuid.New(), UserID: f.user.ID, EntryAmount: 5,
		BusinessDate: f.today, CreatedAt: f.today.AddDate(0, 0, 3),
		Picks: []models.Pick{{ID: uuid.New(), SublineID: f.home[3]}, {ID: uuid.New(), SublineID: f.away[3]}}})
	if day, _ := f.app.SlipsForDay(ctx, f.today); len(day) != 4 {
		t.Errorf("slips for day after backfilled slip = %d, want 4", len(day))
	}
}
