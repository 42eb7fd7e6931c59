package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tenor is a period expressed in months plus days ("1W" is 7 days).
type Tenor struct {
	Months int
	Days   int
}

// Months returns a month-only tenor.
func Months(n int) Tenor { return Tenor{Months: n} }

// Years returns a year tenor.
func Years(n int) Tenor { return Tenor{Months: 12 * n} }

// ParseTenor converts strings like "1W", "3M", "10Y", "2D" to a Tenor.
func ParseTenor(s string) (Tenor, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid tenor %q", s)
	}
	v, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid tenor %q: %w", s, err)
	}
	switch s[len(s)-1] {
	case 'D':
		return Tenor{Days: v}, nil
	case 'W':
		return Tenor{Days: 7 * v}, nil
	case 'M':
		return Tenor{Months: v}, nil
	case 'Y':
		return Tenor{Months: 12 * v}, nil
	}
	return Tenor{}, fmt.Errorf("ParseTenor: invalid tenor unit in %q", s)
}

// AddTo rolls t forward by the tenor using EDATE month arithmetic.
func (p Tenor) AddTo(t time.Time) time.Time {
	return AddMonth(t, p.Months).AddDate(0, 0, p.Days)
}

// YearFraction is the nominal length in years (months/12, days/365).
func (p Tenor) YearFraction() float64 {
	return float64(p.Months)/12.0 + float64(p.Days)/365.0
}

func (p Tenor) String() string {
	switch {
	case p.Days == 0 && p.Months%12 == 0 && p.Months != 0:
		return fmt.Sprintf("%dY", p.Months/12)
	case p.Days == 0:
		return fmt.Sprintf("%dM", p.Months)
	case p.Months == 0 && p.Days%7 == 0:
		return fmt.Sprintf("%dW", p.Days/7)
	case p.Months == 0:
		return fmt.Sprintf("%dD", p.Days)
	}
	return fmt.Sprintf("%dM%dD", p.Months, p.Days)
}
