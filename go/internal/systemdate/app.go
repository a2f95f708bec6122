package systemdate

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SystemDateRepository defines what the app layer needs from the repository
type SystemDateRepository interface {
	GetSystemDate(ctx context.Context) (*models.SystemDate, error)
	SetSystemDate(ctx context.Context, date time.Time) (*models.SystemDate, error)
}

// App owns the business "today". Every windowing query asks it for the date
// rather than reading the wall clock.
type App struct {
	repo      SystemDateRepository
	loc       *time.Location
	startHour int
	endHour   int
}

// NewApp creates a new system date App. startHour and endHour bound the
// business day used for stake counting.
func NewApp(repo SystemDateRepository, loc *time.Location, startHour, endHour int) *App {
	return &App{
		repo:      repo,
		loc:       loc,
		startHour: startHour,
		endHour:   endHour,
	}
}

// Location returns the reference zone.
func (a *App) Location() *time.Location {
	return a.loc
}

// Get returns the stored record.
func (a *App) Get(ctx context.Context) (*models.SystemDate, error) {
	sd, err := a.repo.GetSystemDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get system date: %w", err)
	}
	sd.Date = a.midnight(sd.Date)
	return sd, nil
}

// Today returns the system date as midnight in the reference zone.
func (a *App) Today(ctx context.Context) (time.Time, error) {
	sd, err := a.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return sd.Date, nil
}

// Previous returns the day before the system date.
func (a *App) Previous(ctx context.Context) (time.Time, error) {
	today, err := a.Today(ctx)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := today.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, a.loc), nil
}

// Set moves the system date. Only the calendar day of date is kept.
func (a *App) Set(ctx context.Context, date time.Time) (*models.SystemDate, error) {
	if date.IsZero() {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "date", "date is required")
	}

	sd, err := a.repo.SetSystemDate(ctx, a.midnight(date))
	if err != nil {
		return nil, fmt.Errorf("failed to set system date: %w", err)
	}
	sd.Date = a.midnight(sd.Date)

	log.Info().Str("date", sd.Date.Format(DateLayout)).Msg("system date updated")
	return sd, nil
}

// Parse reads a YYYY-MM-DD date in the reference zone.
func (a *App) Parse(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, a.loc)
	if err != nil {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidInput, "date", "expected %s, got %q", DateLayout, s)
	}
	return d, nil
}

// DayWindow spans the calendar day of date in the reference zone.
func (a *App) DayWindow(date time.Time) Window {
	return DayWindow(date, a.loc)
}

// BusinessDay returns the stake-counting window on date.
func (a *App) BusinessDay(date time.Time) Window {
	return BusinessDay(date, a.loc, a.startHour, a.endHour)
}

// midnight keeps the calendar day as written, whatever zone it carries.
func (a *App) midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
}
