package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// Calendar decides whether a date is a good business day.
type Calendar interface {
	IsBusinessDay(t time.Time) bool
}

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	// Weekends treats every Saturday and Sunday as a holiday and nothing else.
	// The ISDA standard model is usually run on this calendar.
	Weekends CalendarID = "WEEKENDS"
	USNY     CalendarID = "USNY"
	GBLO     CalendarID = "GBLO"
)

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

type weekendCalendar struct{}

func (weekendCalendar) IsBusinessDay(t time.Time) bool { return !isWeekend(t) }

// staticCalendar is a weekend calendar plus an explicit list of holiday dates.
type staticCalendar struct {
	holidays map[string]struct{}
}

// NewStaticCalendar returns a calendar that treats weekends and the given
// dates as holidays.
func NewStaticCalendar(holidays []time.Time) Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Format("2006-01-02")] = struct{}{}
	}
	return staticCalendar{holidays: set}
}

func (c staticCalendar) IsBusinessDay(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	_, ok := c.holidays[t.Format("2006-01-02")]
	return !ok
}

// holidayCalendar delegates to a rule-based rickar/cal business calendar.
type holidayCalendar struct {
	bc *cal.BusinessCalendar
}

// NewHolidayCalendar builds a calendar from rule-based holiday definitions.
func NewHolidayCalendar(holidays ...*cal.Holiday) Calendar {
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(holidays...)
	return holidayCalendar{bc: bc}
}

func (c holidayCalendar) IsBusinessDay(t time.Time) bool {
	return c.bc.IsWorkday(t)
}

var registry = map[CalendarID]Calendar{
	Weekends: weekendCalendar{},
	USNY:     NewHolidayCalendar(us.Holidays...),
	GBLO:     NewHolidayCalendar(gb.Holidays...),
}

// Lookup returns a registered calendar. An empty id means Weekends.
func Lookup(id CalendarID) (Calendar, error) {
	if id == "" {
		return registry[Weekends], nil
	}
	c, ok := registry[CalendarID(strings.ToUpper(string(id)))]
	if !ok {
		return nil, fmt.Errorf("calendar: unknown calendar %q", id)
	}
	return c, nil
}

// Default is the weekend-only calendar.
func Default() Calendar {
	return registry[Weekends]
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(c Calendar, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}
