package daycount

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DayCount converts a pair of dates into a year fraction.
//
// Implementations must satisfy YearFraction(d, d) == 0 and be monotone in the
// second argument.
type DayCount interface {
	YearFraction(start, end time.Time) float64
	Name() string
}

type act360 struct{}

func (act360) YearFraction(start, end time.Time) float64 { return Days(start, end) / 360.0 }
func (act360) Name() string                                { return "ACT/360" }

type act365F struct{}

func (act365F) YearFraction(start, end time.Time) float64 { return Days(start, end) / 365.0 }
func (act365F) Name() string                                { return "ACT/365F" }

// thirty360 is the US (bond basis) 30/360 rule; european selects 30E/360.
type thirty360 struct {
	european bool
}

func (c thirty360) YearFraction(start, end time.Time) float64 {
	d1 := start.Day()
	d2 := end.Day()
	if c.european {
		// D1 and D2 are capped at 30
		if d1 > 30 {
			d1 = 30
		}
		if d2 > 30 {
			d2 = 30
		}
	} else {
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
	}
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

func (c thirty360) Name() string {
	if c.european {
		return "30E/360"
	}
	return "30/360"
}

var (
	// ACT360 is actual days over 360. ISDA premium-leg accrual uses it.
	ACT360 DayCount = act360{}
	// ACT365F is actual days over 365. ISDA curve time uses it.
	ACT365F DayCount = act365F{}
	// Thirty360 is 30/360 (bond basis).
	Thirty360 DayCount = thirty360{}
	// ThirtyE360 is 30E/360 (Eurobond basis).
	ThirtyE360 DayCount = thirty360{european: true}
)

// Parse maps a convention name onto a DayCount.
// Supported conventions: ACT/360, ACT/365F, 30/360, 30E/360
func Parse(name string) (DayCount, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ACT/360", "A360":
		return ACT360, nil
	case "ACT/365F", "ACT/365", "A365F":
		return ACT365F, nil
	case "30/360", "30U/360":
		return Thirty360, nil
	case "30E/360":
		return ThirtyE360, nil
	default:
		return nil, fmt.Errorf("daycount: unknown convention %q", name)
	}
}

// Days returns the number of calendar days between two dates, which may be
// negative.
func Days(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours() / 24)
}

// WholeDays returns Days as an int.
func WholeDays(start, end time.Time) int {
	return int(Days(start, end))
}
