package lines

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lobby event types published when the offer board changes.
const (
	EventSublinesHidden     = "sublines_hidden"
	EventSublineOffered     = "subline_offered"
	EventStatisticsIngested = "statistics_ingested"
)

// CreateLineRequest represents the (player, game, category) triple a line tracks
type CreateLineRequest struct {
	PlayerID   uuid.UUID `json:"player_id"`
	GameID     uuid.UUID `json:"game_id"`
	CategoryID uuid.UUID `json:"category_id"`
}

// CreateSublineRequest represents a new projection offered against a line
type CreateSublineRequest struct {
	LineID         uuid.UUID       `json:"line_id"`
	ProjectedValue decimal.Decimal `json:"projected_value"`
}

// StatRecord is one final statistic from the statistics feed.
type StatRecord struct {
	PlayerName  string           `json:"name"`
	Category    string           `json:"category"`
	ActualValue *decimal.Decimal `json:"actual_value,omitempty"`
	DidNotPlay  bool             `json:"did_not_play,omitempty"`
}

// RecordError ties an ingestion failure to the record that caused it.
type RecordError struct {
	Index      int    `json:"index"`
	PlayerName string `json:"name"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s, %s): %v", e.Index, e.PlayerName, e.Category, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Date           time.Time      `json:"date"`
	TotalProcessed int            `json:"total_processed"`
	Updated        int            `json:"updated"`
	Invalidated    int            `json:"invalidated"`
	Unchanged      int            `json:"unchanged"`
	Errors         []*RecordError `json:"errors,omitempty"`
}

// SweepResult lists the sublines one hide sweep took off the board.
type SweepResult struct {
	Cutoff time.Time   `json:"cutoff"`
	Hidden []uuid.UUID `json:"hidden"`
}
