package models

import "time"

// SystemDate is the business "today" for the whole system. Windowing reads
// this value, never the wall clock.
type SystemDate struct {
	Date      time.Time `json:"date"` // midnight in the reference zone
	UpdatedAt time.Time `json:"updated_at"`
}
