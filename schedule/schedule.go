// Package schedule generates CDS premium-leg accrual schedules.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/utils"
)

// ErrInvalidArgument is returned for inconsistent schedule inputs.
var ErrInvalidArgument = errors.New("schedule: invalid argument")

// StubType places the irregular period of a schedule.
type StubType string

const (
	FrontShort StubType = "FRONTSHORT"
	FrontLong  StubType = "FRONTLONG"
	BackShort  StubType = "BACKSHORT"
	BackLong   StubType = "BACKLONG"
)

// ParseStubType maps "FRONTSHORT", "front_short", "f/s" style names.
func ParseStubType(s string) (StubType, error) {
	r := strings.NewReplacer("_", "", "-", "", "/", "", " ", "")
	switch r.Replace(strings.ToUpper(s)) {
	case "", "FRONTSHORT", "FS", "SHORTFRONT":
		return FrontShort, nil
	case "FRONTLONG", "FL", "LONGFRONT":
		return FrontLong, nil
	case "BACKSHORT", "BS", "SHORTBACK":
		return BackShort, nil
	case "BACKLONG", "BL", "LONGBACK":
		return BackLong, nil
	}
	return "", fmt.Errorf("ParseStubType: %w: unknown stub type %q", ErrInvalidArgument, s)
}

func (s StubType) front() bool { return s == FrontShort || s == FrontLong }
func (s StubType) long() bool  { return s == FrontLong || s == BackLong }

// Period is one accrual period of the premium leg.
type Period struct {
	AccStart time.Time
	AccEnd   time.Time
	PayDate  time.Time
}

// Params describes a premium leg.
type Params struct {
	// Start is the accrual start; it is never adjusted.
	Start time.Time
	// End is the unadjusted maturity.
	End          time.Time
	Tenor        utils.Tenor
	Stub         StubType
	Convention   calendar.BusinessDayConvention
	Calendar     calendar.Calendar
	ProtectStart bool
}

// PremiumLegSchedule is an immutable list of accrual periods.
type PremiumLegSchedule struct {
	periods      []Period
	protectStart bool
}

// New generates the schedule. Front stubs roll backward from the maturity,
// back stubs roll forward from the start. A long stub absorbs the
// neighbouring regular period.
func New(p Params) (*PremiumLegSchedule, error) {
	start, end := utils.Normalize(p.Start), utils.Normalize(p.End)
	if !end.After(start) {
		return nil, fmt.Errorf("New: %w: end %s not after start %s", ErrInvalidArgument, end.Format(utils.DateLayout), start.Format(utils.DateLayout))
	}
	if p.Tenor.Days != 0 || p.Tenor.Months <= 0 {
		return nil, fmt.Errorf("New: %w: payment tenor %s must be whole months", ErrInvalidArgument, p.Tenor)
	}
	stub := p.Stub
	if stub == "" {
		stub = FrontShort
	}
	bdc := p.Convention
	if bdc == "" {
		bdc = calendar.Following
	}
	cal := p.Calendar
	if cal == nil {
		cal = calendar.Default()
	}

	var dates []time.Time
	if stub.front() {
		dates = rollBackward(start, end, p.Tenor.Months, stub.long())
	} else {
		dates = rollForward(start, end, p.Tenor.Months, stub.long())
	}

	n := len(dates) - 1
	periods := make([]Period, n)
	for i := 0; i < n; i++ {
		accStart := dates[i]
		if i > 0 {
			accStart = bdc.Adjust(dates[i], cal)
		}
		periods[i] = Period{AccStart: accStart}
		if i > 0 {
			periods[i-1].AccEnd = accStart
			periods[i-1].PayDate = accStart
		}
	}
	periods[n-1].PayDate = bdc.Adjust(end, cal)
	periods[n-1].AccEnd = end
	if p.ProtectStart {
		periods[n-1].AccEnd = end.AddDate(0, 0, 1)
	}
	return &PremiumLegSchedule{periods: periods, protectStart: p.ProtectStart}, nil
}

// rollBackward returns start, the roll dates end-k*months after start, and
// end, in ascending order.
func rollBackward(start, end time.Time, months int, long bool) []time.Time {
	dates := []time.Time{end}
	var d time.Time
	for k := 1; ; k++ {
		d = utils.AddMonth(end, -k*months)
		if !d.After(start) {
			break
		}
		dates = append([]time.Time{d}, dates...)
	}
	// a long front stub merges the short stub into the first regular period
	if long && len(dates) > 1 && !d.Equal(start) {
		dates = dates[1:]
	}
	return append([]time.Time{start}, dates...)
}

func rollForward(start, end time.Time, months int, long bool) []time.Time {
	dates := []time.Time{start}
	var d time.Time
	for k := 1; ; k++ {
		d = utils.AddMonth(start, k*months)
		if !d.Before(end) {
			break
		}
		dates = append(dates, d)
	}
	if long && len(dates) > 1 && !d.Equal(end) {
		dates = dates[:len(dates)-1]
	}
	return append(dates, end)
}

// NumPeriods returns the number of accrual periods.
func (s *PremiumLegSchedule) NumPeriods() int { return len(s.periods) }

// Period returns period i.
func (s *PremiumLegSchedule) Period(i int) Period { return s.periods[i] }

// Periods returns a copy of all periods.
func (s *PremiumLegSchedule) Periods() []Period { return append([]Period(nil), s.periods...) }

// ProtectStart reports whether protection starts at the beginning of the
// step-in day.
func (s *PremiumLegSchedule) ProtectStart() bool { return s.protectStart }

// AccStart is the first accrual start.
func (s *PremiumLegSchedule) AccStart() time.Time { return s.periods[0].AccStart }

// Truncate drops periods whose accrual end is on or before stepin.
func (s *PremiumLegSchedule) Truncate(stepin time.Time) (*PremiumLegSchedule, error) {
	stepin = utils.Normalize(stepin)
	for i, p := range s.periods {
		if p.AccEnd.After(stepin) {
			return &PremiumLegSchedule{periods: append([]Period(nil), s.periods[i:]...), protectStart: s.protectStart}, nil
		}
	}
	return nil, fmt.Errorf("Truncate: %w: every period ends on or before %s", ErrInvalidArgument, stepin.Format(utils.DateLayout))
}
