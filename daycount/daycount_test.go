package daycount_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/isdacds/daycount"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		dc    daycount.DayCount
		start time.Time
		end   time.Time
		want  float64
	}{
		{"act360 quarter", daycount.ACT360, date(2011, 3, 21), date(2011, 6, 20), 91.0 / 360.0},
		{"act365f year", daycount.ACT365F, date(2011, 6, 13), date(2012, 6, 13), 366.0 / 365.0},
		{"30/360 month end", daycount.Thirty360, date(2011, 1, 31), date(2011, 3, 31), 60.0 / 360.0},
		{"30E/360 feb", daycount.ThirtyE360, date(2011, 2, 28), date(2011, 8, 31), 182.0 / 360.0},
		{"same date", daycount.ACT360, date(2011, 6, 13), date(2011, 6, 13), 0},
		{"negative", daycount.ACT365F, date(2011, 6, 13), date(2011, 6, 3), -10.0 / 365.0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.dc.YearFraction(tc.start, tc.end)
			if math.Abs(got-tc.want) > 1e-15 {
				t.Fatalf("%s: got %.16f want %.16f", tc.dc.Name(), got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"ACT/360", "act/365f", "30/360", "30E/360"} {
		if _, err := daycount.Parse(name); err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
	}
	if _, err := daycount.Parse("BUS/252"); err == nil {
		t.Fatalf("expected error for unsupported convention")
	}
}

func TestDaysAcrossDST(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	start := time.Date(2011, 3, 12, 0, 0, 0, 0, loc)
	end := time.Date(2011, 3, 14, 0, 0, 0, 0, loc)
	if got := daycount.WholeDays(start, end); got != 2 {
		t.Fatalf("WholeDays across DST: got %d want 2", got)
	}
}
