package curve

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/utils"
)

func isdaYieldSpec(t *testing.T) YieldCurveSpec {
	t.Helper()
	types := []InstrumentType{MoneyMarket, MoneyMarket, MoneyMarket, MoneyMarket, Swap, Swap, Swap, Swap, Swap}
	names := []string{"1M", "2M", "3M", "6M", "1Y", "2Y", "3Y", "5Y", "10Y"}
	tenors := make([]utils.Tenor, len(names))
	for i, n := range names {
		p, err := utils.ParseTenor(n)
		if err != nil {
			t.Fatalf("ParseTenor: %v", err)
		}
		tenors[i] = p
	}
	return YieldCurveSpec{
		TradeDate: utils.Date(2011, time.June, 13),
		SpotDate:  utils.Date(2011, time.June, 15),
		Types:     types,
		Tenors:    tenors,
		Calendar:  calendar.Default(),
	}
}

var isdaYieldRates = []float64{0.00445, 0.00949, 0.01234, 0.01776, 0.01935, 0.02084, 0.02410, 0.02895, 0.03539}

func TestYieldCurveBuilderReprices(t *testing.T) {
	t.Parallel()

	spec := isdaYieldSpec(t)
	b, err := NewYieldCurveBuilder(spec)
	if err != nil {
		t.Fatalf("NewYieldCurveBuilder: %v", err)
	}
	yc, err := b.Build(isdaYieldRates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if yc.NumberOfKnots() != len(isdaYieldRates) {
		t.Fatalf("knots = %d, want %d", yc.NumberOfKnots(), len(isdaYieldRates))
	}

	// reprice against the spot-date discount factor
	dfSpot := yc.DiscountFactor(b.offset)
	for i, typ := range b.types {
		switch typ {
		case MoneyMarket:
			df := yc.DiscountFactor(b.times[i]+b.offset) / dfSpot
			if want := 1 / (1 + isdaYieldRates[i]*b.mmYF[i]); math.Abs(df-want) > 1e-14 {
				t.Fatalf("deposit %d: DF %.16g, want %.16g", i, df, want)
			}
		case Swap:
			leg := b.swaps[i]
			var annuity float64
			for j, p := range leg.payTimes {
				annuity += leg.yearFracs[j] * yc.DiscountFactor(p+b.offset) / dfSpot
			}
			last := leg.payTimes[len(leg.payTimes)-1]
			pv := isdaYieldRates[i]*annuity + yc.DiscountFactor(last+b.offset)/dfSpot - 1
			if math.Abs(pv) > 1e-14 {
				t.Fatalf("swap %d: par PV %g, want 0", i, pv)
			}
		}
	}
}

func TestYieldCurveBuilderFlatRates(t *testing.T) {
	t.Parallel()

	spec := isdaYieldSpec(t)
	spec.SpotDate = time.Time{}
	spec.MoneyMarketDayCount = daycount.ACT365F
	spec.SwapDayCount = daycount.ACT365F
	spec.SwapFrequency = utils.Months(12)
	spec.Convention = calendar.None
	b, err := NewYieldCurveBuilder(spec)
	if err != nil {
		t.Fatalf("NewYieldCurveBuilder: %v", err)
	}
	rates := make([]float64, len(spec.Types))
	for i := range rates {
		rates[i] = 0.03
	}
	yc, err := b.Build(rates)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// simple 3% deposits give continuously compounded rates just below 3%
	for i := 0; i < yc.NumberOfKnots(); i++ {
		r := yc.ZeroRateAt(i)
		if r > 0.03 || r < 0.029 {
			t.Fatalf("knot %d zero rate %g outside (2.9%%, 3%%]", i, r)
		}
	}
}

func TestYieldCurveBuilderErrors(t *testing.T) {
	t.Parallel()

	spec := isdaYieldSpec(t)
	spec.Tenors = spec.Tenors[:3]
	if _, err := NewYieldCurveBuilder(spec); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("mismatched tenors: expected ErrInvalidArgument, got %v", err)
	}

	spec = isdaYieldSpec(t)
	spec.Tenors[1], spec.Tenors[2] = spec.Tenors[2], spec.Tenors[1]
	if _, err := NewYieldCurveBuilder(spec); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unsorted tenors: expected ErrInvalidArgument, got %v", err)
	}

	b, err := NewYieldCurveBuilder(isdaYieldSpec(t))
	if err != nil {
		t.Fatalf("NewYieldCurveBuilder: %v", err)
	}
	if _, err := b.Build([]float64{0.01}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("short rates: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ParseInstrumentType("X"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ParseInstrumentType: expected ErrInvalidArgument, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	cc, err := NewCreditCurve(testTimes, testRates)
	if err != nil {
		t.Fatalf("NewCreditCurve: %v", err)
	}
	raw, err := json.Marshal(cc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back CreditCurve
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, tt := range []float64{0.1, 1.5, 9, 11} {
		if back.SurvivalProbability(tt) != cc.SurvivalProbability(tt) {
			t.Fatalf("survival at %g differs after round trip", tt)
		}
	}

	var yc YieldCurve
	if err := json.Unmarshal(raw, &yc); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("credit snapshot as yield curve: expected ErrInvalidArgument, got %v", err)
	}
	bad := Snapshot{Version: 99, Kind: KindCredit, Times: testTimes, Rates: testRates}
	if _, err := bad.CreditCurve(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown version: expected ErrInvalidArgument, got %v", err)
	}
}
