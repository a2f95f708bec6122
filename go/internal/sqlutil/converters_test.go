package sqlutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNullDecimalRoundTrip(t *testing.T) {
	if got := FromNullDecimal(ToNullDecimal(nil)); got != nil {
		t.Fatalf("FromNullDecimal(ToNullDecimal(nil)) = %v, want nil", got)
	}

	d := decimal.RequireFromString("22.5")
	got := FromNullDecimal(ToNullDecimal(&d))
	if got == nil || !got.Equal(d) {
		t.Fatalf("round trip = %v, want %s", got, d)
	}
}

func TestDateIn(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	scanned := time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)
	got := DateIn(scanned, loc)
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
	if y, m, d := got.Date(); y != 2021 || m != 3 || d != 14 || got.Hour() != 0 {
		t.Errorf("DateIn() = %v, want 2021-03-14 00:00 in %v", got, loc)
	}

	if back := CalendarDate(got); !back.Equal(scanned) {
		t.Errorf("CalendarDate() = %v, want %v", back, scanned)
	}
}
