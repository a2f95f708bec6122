package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/underline/go/internal/apperr"
	"github.com/mcdev12/underline/go/internal/jobs"
	"github.com/mcdev12/underline/go/internal/lines"
	"github.com/mcdev12/underline/go/internal/slips"
	"github.com/mcdev12/underline/go/internal/systemdate"
	"github.com/mcdev12/underline/go/internal/users"
	"github.com/mcdev12/underline/go/internal/wallet"
)

type systemDateResponse struct {
	Date string `json:"date"`
}

type setSystemDateRequest struct {
	Date string `json:"date"`
}

func (s *Server) getSystemDate(w http.ResponseWriter, r *http.Request) {
	sd, err := s.deps.SystemDate.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, systemDateResponse{Date: sd.Date.Format(systemdate.DateLayout)})
}

func (s *Server) setSystemDate(w http.ResponseWriter, r *http.Request) {
	var req setSystemDateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := s.deps.SystemDate.Parse(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sd, err := s.deps.SystemDate.Set(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, systemDateResponse{Date: sd.Date.Format(systemdate.DateLayout)})
}

func (s *Server) todaysSublines(w http.ResponseWriter, r *http.Request) {
	offered, err := s.deps.Lines.TodaysSublines(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offered)
}

func (s *Server) lineCategories(w http.ResponseWriter, r *http.Request) {
	league := r.URL.Query().Get("league")
	if league == "" {
		writeError(w, r, apperr.Validation(apperr.CodeInvalidInput, "league", "league is required"))
		return
	}
	cats, err := s.deps.Categories.ListLineCategories(r.Context(), league)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) listLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.deps.Leagues.ListLeagues(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leagues))
}

func (s *Server) leaguePositions(w http.ResponseWriter, r *http.Request) {
	league, err := s.deps.Leagues.GetLeagueByAcronym(r.Context(), r.PathValue("acronym"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	positions, err := s.deps.Leagues.ListPositions(r.Context(), league.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(positions))
}

func (s *Server) leagueTeams(w http.ResponseWriter, r *http.Request) {
	league, err := s.deps.Leagues.GetLeagueByAcronym(r.Context(), r.PathValue("acronym"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	teams, err := s.deps.Teams.ListTeamsByLeague(r.Context(), league.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(teams))
}

func (s *Server) leagueTeam(w http.ResponseWriter, r *http.Request) {
	league, err := s.deps.Leagues.GetLeagueByAcronym(r.Context(), r.PathValue("acronym"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.deps.Teams.GetTeamByAbbreviation(r.Context(), league.ID, r.PathValue("abbreviation"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// gamesOnDate lists the games of ?date=YYYY-MM-DD, defaulting to the system date.
func (s *Server) gamesOnDate(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := s.deps.SystemDate.Parse(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = d
	} else {
		sd, err := s.deps.SystemDate.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = sd.Date
	}
	games, err := s.deps.Games.GamesOnDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(games))
}

type payoutRow struct {
	Picks      int `json:"picks"`
	Multiplier int `json:"multiplier"`
}

func (s *Server) payouts(w http.ResponseWriter, r *http.Request) {
	table := s.deps.Payouts.Table()
	rows := make([]payoutRow, 0, len(table))
	for picks, m := range table {
		rows = append(rows, payoutRow{Picks: picks, Multiplier: m})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Picks < rows[j].Picks })
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) createSlip(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req slips.CreateSlipRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Slips.CreateSlip(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) pendingSlips(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	views, err := s.deps.Slips.PendingSlips(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(views))
}

func (s *Server) settledSlips(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	views, err := s.deps.Slips.SettledSlips(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(views))
}

func (s *Server) recordDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req wallet.RecordDepositRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dep, err := s.deps.Wallet.RecordDeposit(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	u, err := s.deps.Users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req users.UpdateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.Users.UpdateUser(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// createUser provisions an account. Sign-up itself happens at the identity
// provider; this only mirrors the profile and tier flags locally.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.Users.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func (s *Server) adjustWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, apperr.Validation(apperr.CodeInvalidInput, "id", "user id must be a UUID"))
		return
	}
	var req wallet.AdjustRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.deps.Wallet.Adjust(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance.StringFixed(2)})
}

func (s *Server) createLine(w http.ResponseWriter, r *http.Request) {
	var req lines.CreateLineRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	line, err := s.deps.Lines.CreateLine(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (s *Server) createSubline(w http.ResponseWriter, r *http.Request) {
	var req lines.CreateSublineRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Lines.CreateSubline(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) invalidateLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, apperr.Validation(apperr.CodeInvalidInput, "id", "invalid line id"))
		return
	}
	if err := s.deps.Lines.InvalidateLine(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ingestStatistics(w http.ResponseWriter, r *http.Request) {
	var records []lines.StatRecord
	if err := readJSON(r, &records); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Lines.IngestFinalStatistics(r.Context(), records)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) triggerJob(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Jobs.Trigger(r.Context(), r.PathValue("name"))
	if errors.Is(err, jobs.ErrJobRunning) {
		writeMessage(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
