package quotes

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/utils"
)

var tradeDate = utils.Date(2011, time.June, 13)

func setup(t *testing.T) (*Converter, *curve.YieldCurve, []*cds.CDSAnalytic) {
	t.Helper()
	pillars, err := cds.NewFactory().MakeIMMCDSs(tradeDate, []utils.Tenor{utils.Years(1), utils.Years(3), utils.Years(5), utils.Years(7)})
	if err != nil {
		t.Fatalf("MakeIMMCDSs: %v", err)
	}
	b := calibrate.NewFastBuilder(pricer.MarkitFix, calibrate.DefaultOptions())
	return NewConverter(b), curve.NewFlatYieldCurve(0.03), pillars
}

func TestQuotedSpreadRoundTrip(t *testing.T) {
	t.Parallel()

	conv, yc, pillars := setup(t)
	c := pillars[2]
	for _, spread := range []float64{0.0040, 0.0100, 0.0250, 0.0800} {
		puf, err := conv.PUFFromQuotedSpread(c, 0.01, spread, yc)
		if err != nil {
			t.Fatalf("PUFFromQuotedSpread(%g): %v", spread, err)
		}
		if (spread > 0.01) != (puf > 0) {
			t.Fatalf("spread %g gave upfront %g with the wrong sign", spread, puf)
		}
		back, err := conv.QuotedSpreadFromPUF(c, 0.01, puf, yc)
		if err != nil {
			t.Fatalf("QuotedSpreadFromPUF: %v", err)
		}
		if math.Abs(back-spread) > 1e-12 {
			t.Fatalf("round trip %g -> %g -> %g", spread, puf, back)
		}
	}
}

func TestToPointsUpFront(t *testing.T) {
	t.Parallel()

	conv, yc, pillars := setup(t)
	p, err := conv.ToPointsUpFront(pillars[1], ParSpread{Spread: 0.012}, yc)
	if err != nil || p != (PointsUpFront{Coupon: 0.012}) {
		t.Fatalf("par spread: %+v, %v", p, err)
	}
	in := PointsUpFront{Coupon: 0.05, PUF: -0.02}
	if p, err := conv.ToPointsUpFront(pillars[1], in, yc); err != nil || p != in {
		t.Fatalf("points upfront: %+v, %v", p, err)
	}
	q, err := conv.ToQuotedSpread(pillars[1], in, 0.01, yc)
	if err != nil {
		t.Fatalf("ToQuotedSpread: %v", err)
	}
	p, err = conv.ToPointsUpFront(pillars[1], QuotedSpread{Coupon: 0.05, Spread: q.Spread}, yc)
	if err != nil || math.Abs(p.PUF-in.PUF) > 1e-12 {
		t.Fatalf("quoted spread at coupon change: %+v, %v", p, err)
	}
}

type otherQuote struct{}

func (otherQuote) RunningCoupon() float64 { return 0 }
func (otherQuote) String() string         { return "other" }

func TestCalibrateMixedQuotes(t *testing.T) {
	t.Parallel()

	conv, yc, pillars := setup(t)
	qs := []Quote{
		ParSpread{Spread: 0.0060},
		QuotedSpread{Coupon: 0.01, Spread: 0.0085},
		PointsUpFront{Coupon: 0.01, PUF: 0.0010},
		ParSpread{Spread: 0.0110},
	}
	cc, err := conv.CalibrateCurve(pillars, qs, yc)
	if err != nil {
		t.Fatalf("CalibrateCurve: %v", err)
	}
	p := pricer.NewAnalyticPricer(pricer.MarkitFix)
	for i, q := range qs {
		want, err := conv.ToPointsUpFront(pillars[i], q, yc)
		if err != nil {
			t.Fatalf("ToPointsUpFront: %v", err)
		}
		if pv := p.PV(pillars[i], yc, cc, q.RunningCoupon(), cds.Clean); math.Abs(pv-want.PUF) > 1e-12 {
			t.Fatalf("%s: PV %g, want %g", q, pv, want.PUF)
		}
	}

	if _, err := conv.CalibrateCurve(pillars[:1], []Quote{otherQuote{}}, yc); !errors.Is(err, ErrUnknownQuote) {
		t.Fatalf("expected ErrUnknownQuote, got %v", err)
	}
	if _, err := conv.CalibrateCurve(pillars, qs[:2], yc); !errors.Is(err, calibrate.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCashSettlement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		notional, puf, accrued float64
		want                   string
	}{
		{10_000_000, 0.0123, 0.0025, "98000"},
		{10_000_000, -0.0345, 0.01 * 85 / 360, "-368611.11"},
		{5_000_000, 0, 0, "0"},
	}
	for _, tc := range tests {
		got := CashSettlement(tc.notional, tc.puf, tc.accrued)
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Fatalf("CashSettlement(%g, %g, %g) = %s, want %s", tc.notional, tc.puf, tc.accrued, got, want)
		}
	}
	if got := Price(0.0123); !got.Equal(decimal.RequireFromString("98.77")) {
		t.Fatalf("Price = %s", got)
	}
}
