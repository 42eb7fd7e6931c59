package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/utils"
)

func d(y int, m time.Month, day int) time.Time { return utils.Date(y, m, day) }

func TestIMMSchedule(t *testing.T) {
	t.Parallel()

	s, err := New(Params{
		Start:        d(2011, time.March, 21),
		End:          d(2016, time.June, 20),
		Tenor:        utils.Months(3),
		Stub:         FrontShort,
		Convention:   calendar.Following,
		Calendar:     calendar.Default(),
		ProtectStart: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.NumPeriods() != 21 {
		t.Fatalf("periods = %d, want 21", s.NumPeriods())
	}
	first := s.Period(0)
	if !first.AccStart.Equal(d(2011, time.March, 21)) || !first.AccEnd.Equal(d(2011, time.June, 20)) {
		t.Fatalf("first period %+v", first)
	}
	// 20 Sep 2014 is a Saturday
	for _, p := range s.Periods() {
		if p.AccEnd.Year() == 2014 && p.AccEnd.Month() == time.September {
			if !p.AccEnd.Equal(d(2014, time.September, 22)) || !p.PayDate.Equal(p.AccEnd) {
				t.Fatalf("weekend roll not adjusted: %+v", p)
			}
		}
	}
	last := s.Period(s.NumPeriods() - 1)
	if !last.AccEnd.Equal(d(2016, time.June, 21)) {
		t.Fatalf("last accrual end = %s, want maturity + 1 day", last.AccEnd.Format(utils.DateLayout))
	}
	if !last.PayDate.Equal(d(2016, time.June, 20)) {
		t.Fatalf("last payment = %s, want adjusted maturity", last.PayDate.Format(utils.DateLayout))
	}
	for i := 1; i < s.NumPeriods(); i++ {
		if !s.Period(i).AccStart.Equal(s.Period(i - 1).AccEnd) {
			t.Fatalf("period %d does not start where %d ends", i, i-1)
		}
	}
}

func TestStubPlacement(t *testing.T) {
	t.Parallel()

	start, end := d(2011, time.January, 10), d(2011, time.December, 20)
	cases := []struct {
		stub      StubType
		n         int
		firstEnd  time.Time
		lastStart time.Time
	}{
		{FrontShort, 4, d(2011, time.March, 20), d(2011, time.September, 20)},
		{FrontLong, 3, d(2011, time.June, 20), d(2011, time.September, 20)},
		{BackShort, 4, d(2011, time.April, 10), d(2011, time.October, 10)},
		{BackLong, 3, d(2011, time.April, 10), d(2011, time.July, 10)},
	}
	for _, tc := range cases {
		s, err := New(Params{Start: start, End: end, Tenor: utils.Months(3), Stub: tc.stub, Convention: calendar.None})
		if err != nil {
			t.Fatalf("%s: New: %v", tc.stub, err)
		}
		if s.NumPeriods() != tc.n {
			t.Fatalf("%s: periods = %d, want %d", tc.stub, s.NumPeriods(), tc.n)
		}
		if got := s.Period(0).AccEnd; !got.Equal(tc.firstEnd) {
			t.Fatalf("%s: first end = %s, want %s", tc.stub, got.Format(utils.DateLayout), tc.firstEnd.Format(utils.DateLayout))
		}
		if got := s.Period(tc.n - 1).AccStart; !got.Equal(tc.lastStart) {
			t.Fatalf("%s: last start = %s, want %s", tc.stub, got.Format(utils.DateLayout), tc.lastStart.Format(utils.DateLayout))
		}
		if got := s.Period(tc.n - 1).AccEnd; !got.Equal(end) {
			t.Fatalf("%s: last end = %s", tc.stub, got.Format(utils.DateLayout))
		}
	}
}

func TestLongStubWithoutStubIsRegular(t *testing.T) {
	t.Parallel()

	s, err := New(Params{Start: d(2011, time.March, 20), End: d(2011, time.December, 20), Tenor: utils.Months(3), Stub: FrontLong, Convention: calendar.None})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.NumPeriods() != 3 {
		t.Fatalf("periods = %d, want 3", s.NumPeriods())
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	s, err := New(Params{Start: d(2011, time.March, 21), End: d(2012, time.June, 20), Tenor: utils.Months(3), ProtectStart: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr, err := s.Truncate(d(2011, time.September, 20))
	if err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if !tr.AccStart().Equal(d(2011, time.September, 20)) {
		t.Fatalf("truncated start = %s", tr.AccStart().Format(utils.DateLayout))
	}
	if tr.NumPeriods() != s.NumPeriods()-2 {
		t.Fatalf("truncated periods = %d, want %d", tr.NumPeriods(), s.NumPeriods()-2)
	}
	if _, err := s.Truncate(d(2013, time.January, 1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestInvalidParams(t *testing.T) {
	t.Parallel()

	if _, err := New(Params{Start: d(2012, 1, 1), End: d(2011, 1, 1), Tenor: utils.Months(3)}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("end before start: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := New(Params{Start: d(2011, 1, 1), End: d(2012, 1, 1), Tenor: utils.Tenor{Days: 7}}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("weekly tenor: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ParseStubType("front_long"); err != nil {
		t.Fatalf("ParseStubType: %v", err)
	}
	if _, err := ParseStubType("middle"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ParseStubType: expected ErrInvalidArgument, got %v", err)
	}
}
