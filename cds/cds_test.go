package cds

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/isdacds/utils"
)

var tradeDate = utils.Date(2011, time.June, 13)

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func TestStandardIMMContract(t *testing.T) {
	t.Parallel()

	c, err := NewFactory().MakeIMMCDS(tradeDate, utils.Years(5))
	if err != nil {
		t.Fatalf("MakeIMMCDS: %v", err)
	}
	if c.NumPayments() != 21 {
		t.Fatalf("payments = %d, want 21", c.NumPayments())
	}
	if c.LGD() != 0.6 {
		t.Fatalf("LGD = %g, want 0.6", c.LGD())
	}
	if c.EffectiveProtectionStart() != 0 {
		t.Fatalf("protection start = %g, want 0", c.EffectiveProtectionStart())
	}
	if got, want := c.ProtectionEnd(), 1834.0/365; !closeTo(got, want, 1e-15) {
		t.Fatalf("protection end = %.17g, want %.17g", got, want)
	}
	if got, want := c.CashSettleTime(), 3.0/365; !closeTo(got, want, 1e-15) {
		t.Fatalf("cash settle = %g, want %g", got, want)
	}
	if c.AccruedDays() != 85 {
		t.Fatalf("accrued days = %d, want 85", c.AccruedDays())
	}
	if got, want := c.AccruedYearFraction(), 85.0/360; !closeTo(got, want, 1e-15) {
		t.Fatalf("accrued = %g, want %g", got, want)
	}

	first := c.Coupon(0)
	want := Coupon{EffStart: -85.0 / 365, EffEnd: 6.0 / 365, PaymentTime: 7.0 / 365, YearFrac: 91.0 / 360, YFRatio: 365.0 / 360}
	for _, f := range []struct {
		name      string
		got, want float64
	}{
		{"EffStart", first.EffStart, want.EffStart},
		{"EffEnd", first.EffEnd, want.EffEnd},
		{"PaymentTime", first.PaymentTime, want.PaymentTime},
		{"YearFrac", first.YearFrac, want.YearFrac},
		{"YFRatio", first.YFRatio, want.YFRatio},
	} {
		if !closeTo(f.got, f.want, 1e-15) {
			t.Fatalf("first coupon %s = %.17g, want %.17g", f.name, f.got, f.want)
		}
	}

	last := c.Coupon(c.NumPayments() - 1)
	if !closeTo(last.EffEnd, c.ProtectionEnd(), 1e-15) {
		t.Fatalf("last effective end %g, want protection end %g", last.EffEnd, c.ProtectionEnd())
	}
	for i := 1; i < c.NumPayments(); i++ {
		if c.Coupon(i).PaymentTime <= c.Coupon(i-1).PaymentTime {
			t.Fatalf("coupons not sorted at %d", i)
		}
	}
}

func TestAccruedOnAccrualDate(t *testing.T) {
	t.Parallel()

	// trading on an IMM date: step-in is the next day, so one day accrues
	c, err := NewFactory().MakeIMMCDS(utils.Date(2011, time.June, 20), utils.Years(5))
	if err != nil {
		t.Fatalf("MakeIMMCDS: %v", err)
	}
	if c.AccruedDays() != 1 {
		t.Fatalf("accrued days = %d, want 1", c.AccruedDays())
	}
	if got := c.AccruedYearFraction(); !closeTo(got, 1.0/360, 1e-15) {
		t.Fatalf("accrued = %g, want 1/360", got)
	}
}

func TestForwardStartEquivalence(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	later := utils.Date(2011, time.August, 2)
	direct, err := f.MakeIMMCDS(later, utils.Years(5))
	if err != nil {
		t.Fatalf("MakeIMMCDS: %v", err)
	}
	fwd, err := f.MakeForwardStartingIMMCDS(tradeDate, later, utils.Years(5))
	if err != nil {
		t.Fatalf("MakeForwardStartingIMMCDS: %v", err)
	}
	shifted, err := fwd.WithOffset(f.CurveDayCount.YearFraction(tradeDate, later))
	if err != nil {
		t.Fatalf("WithOffset: %v", err)
	}

	const tol = 1e-15
	if shifted.NumPayments() != direct.NumPayments() {
		t.Fatalf("payments %d vs %d", shifted.NumPayments(), direct.NumPayments())
	}
	if shifted.LGD() != direct.LGD() || shifted.AccruedYearFraction() != direct.AccruedYearFraction() {
		t.Fatalf("LGD or accrued changed under offset")
	}
	if !closeTo(shifted.EffectiveProtectionStart(), direct.EffectiveProtectionStart(), tol) ||
		!closeTo(shifted.ProtectionEnd(), direct.ProtectionEnd(), tol) ||
		!closeTo(shifted.CashSettleTime(), direct.CashSettleTime(), tol) {
		t.Fatalf("protection window differs: %+v vs %+v", shifted, direct)
	}
	for i := 0; i < direct.NumPayments(); i++ {
		a, b := shifted.Coupon(i), direct.Coupon(i)
		if !closeTo(a.EffStart, b.EffStart, tol) || !closeTo(a.EffEnd, b.EffEnd, tol) ||
			!closeTo(a.PaymentTime, b.PaymentTime, tol) || a.YearFrac != b.YearFrac || a.YFRatio != b.YFRatio {
			t.Fatalf("coupon %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestMultiMatchesSingleContracts(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	tenors := []utils.Tenor{utils.Months(6), utils.Years(1), utils.Years(3), utils.Years(5), utils.Years(10)}
	multi, err := f.MakeMultiIMMCDS(tradeDate, tenors)
	if err != nil {
		t.Fatalf("MakeMultiIMMCDS: %v", err)
	}
	if multi.NumMaturities() != len(tenors) {
		t.Fatalf("maturities = %d", multi.NumMaturities())
	}
	for k, tenor := range tenors {
		single, err := f.MakeIMMCDS(tradeDate, tenor)
		if err != nil {
			t.Fatalf("MakeIMMCDS: %v", err)
		}
		fromMulti, err := multi.ToCDS(k)
		if err != nil {
			t.Fatalf("ToCDS(%d): %v", k, err)
		}
		if fromMulti.NumPayments() != single.NumPayments() {
			t.Fatalf("%s: payments %d vs %d", tenor, fromMulti.NumPayments(), single.NumPayments())
		}
		for i := 0; i < single.NumPayments(); i++ {
			if fromMulti.Coupon(i) != single.Coupon(i) {
				t.Fatalf("%s coupon %d: %+v vs %+v", tenor, i, fromMulti.Coupon(i), single.Coupon(i))
			}
		}
		if fromMulti.ProtectionEnd() != single.ProtectionEnd() ||
			fromMulti.EffectiveProtectionStart() != single.EffectiveProtectionStart() ||
			fromMulti.AccruedDays() != single.AccruedDays() {
			t.Fatalf("%s: contract terms differ", tenor)
		}
	}
	if _, err := multi.ToCDS(len(tenors)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestInvalidContracts(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	if _, err := f.WithRecoveryRate(1.2).MakeIMMCDS(tradeDate, utils.Years(5)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("recovery 1.2: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.MakeCDS(tradeDate, utils.Date(2011, time.March, 21), utils.Date(2011, time.June, 14)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("maturity on step-in: expected ErrInvalidArgument, got %v", err)
	}
	p := f.params(tradeDate, utils.Date(2011, time.March, 21), utils.Date(2016, time.June, 20))
	p.StepinDate = tradeDate.AddDate(0, 0, -1)
	if _, err := New(p); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("step-in before trade: expected ErrInvalidArgument, got %v", err)
	}
	c, err := f.MakeIMMCDS(tradeDate, utils.Years(1))
	if err != nil {
		t.Fatalf("MakeIMMCDS: %v", err)
	}
	if _, err := c.WithOffset(-0.5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative offset: expected ErrInvalidArgument, got %v", err)
	}
	expired, err := c.WithOffset(2)
	if err != nil {
		t.Fatalf("WithOffset: %v", err)
	}
	if !expired.Expired() {
		t.Fatalf("contract shifted past maturity should be expired")
	}
}
