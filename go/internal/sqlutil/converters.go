package sqlutil

import (
	"time"

	"github.com/shopspring/decimal"
)

// Helper functions for converting between Go types and nullable column types

// ToNullDecimal converts a decimal pointer to decimal.NullDecimal
func ToNullDecimal(val *decimal.Decimal) decimal.NullDecimal {
	if val == nil {
		return decimal.NullDecimal{Valid: false}
	}
	return decimal.NullDecimal{Decimal: *val, Valid: true}
}

// FromNullDecimal converts decimal.NullDecimal to a decimal pointer
func FromNullDecimal(val decimal.NullDecimal) *decimal.Decimal {
	if !val.Valid {
		return nil
	}
	d := val.Decimal
	return &d
}

// DateIn reinterprets a DATE column value (scanned as UTC midnight) as
// midnight of the same calendar day in loc.
func DateIn(val time.Time, loc *time.Location) time.Time {
	y, m, d := val.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CalendarDate strips a time down to its calendar day in UTC so it binds to a
// DATE parameter without zone drift.
func CalendarDate(val time.Time) time.Time {
	y, m, d := val.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
