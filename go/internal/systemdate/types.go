package systemdate

import "time"

// ReferenceZone is the zone every calendar comparison is made in.
const ReferenceZone = "America/Los_Angeles"

// DateLayout is the wire format for system dates.
const DateLayout = "2006-01-02"

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow spans the whole calendar day of date in loc. DST days are 23 or
// 25 hours long.
func DayWindow(date time.Time, loc *time.Location) Window {
	y, m, d := date.In(loc).Date()
	return Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}
}

// BusinessDay is the stake-counting window on date: from startHour to endHour
// local time in loc.
func BusinessDay(date time.Time, loc *time.Location, startHour, endHour int) Window {
	y, m, d := date.In(loc).Date()
	return Window{
		Start: time.Date(y, m, d, startHour, 0, 0, 0, loc),
		End:   time.Date(y, m, d, endHour, 0, 0, 0, loc),
	}
}

// LoadLocation loads the zone by name, falling back to ReferenceZone when
// name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = ReferenceZone
	}
	return time.LoadLocation(name)
}
