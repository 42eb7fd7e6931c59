package curve

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/rootfind"
	"github.com/meenmo/isdacds/utils"
)

// InstrumentType distinguishes money-market deposits from par swaps.
type InstrumentType string

const (
	MoneyMarket InstrumentType = "M"
	Swap        InstrumentType = "S"
)

// ParseInstrumentType accepts "M"/"MM"/"MONEY_MARKET" and "S"/"SWAP".
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MM", "MONEY_MARKET":
		return MoneyMarket, nil
	case "S", "SWAP":
		return Swap, nil
	}
	return "", fmt.Errorf("ParseInstrumentType: %w: unknown instrument type %q", ErrInvalidArgument, s)
}

// YieldCurveSpec describes the instruments of an ISDA yield curve. Zero
// values are replaced by the ISDA standard conventions in
// NewYieldCurveBuilder.
type YieldCurveSpec struct {
	TradeDate time.Time
	// SpotDate is the start of every instrument. Defaults to TradeDate.
	SpotDate time.Time
	Types    []InstrumentType
	Tenors   []utils.Tenor

	MoneyMarketDayCount daycount.DayCount
	SwapDayCount        daycount.DayCount
	SwapFrequency       utils.Tenor
	CurveDayCount       daycount.DayCount
	Convention          calendar.BusinessDayConvention
	Calendar            calendar.Calendar
	Solver              *rootfind.Options
}

type swapLeg struct {
	payTimes  []float64
	yearFracs []float64
}

// YieldCurveBuilder bootstraps a piecewise-flat-forward yield curve from
// money-market and swap rates. The instrument schedule is fixed at
// construction so Build can be called repeatedly with bumped rates.
type YieldCurveBuilder struct {
	types  []InstrumentType
	times  []float64 // knot times from the spot date
	mmYF   []float64
	swaps  []swapLeg
	offset float64 // curve time from trade date to spot date
	solver rootfind.Options
}

// NewYieldCurveBuilder resolves instrument maturities and swap schedules.
func NewYieldCurveBuilder(spec YieldCurveSpec) (*YieldCurveBuilder, error) {
	n := len(spec.Types)
	if n == 0 {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: no instruments", ErrInvalidArgument)
	}
	if len(spec.Tenors) != n {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: %d types but %d tenors", ErrInvalidArgument, n, len(spec.Tenors))
	}
	if spec.TradeDate.IsZero() {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: trade date is required", ErrInvalidArgument)
	}
	trade := utils.Normalize(spec.TradeDate)
	spot := trade
	if !spec.SpotDate.IsZero() {
		spot = utils.Normalize(spec.SpotDate)
	}
	if spot.Before(trade) {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: spot date %s before trade date %s", ErrInvalidArgument, spot.Format(utils.DateLayout), trade.Format(utils.DateLayout))
	}
	mmDC := orDayCount(spec.MoneyMarketDayCount, daycount.ACT360)
	swapDC := orDayCount(spec.SwapDayCount, daycount.Thirty360)
	curveDC := orDayCount(spec.CurveDayCount, daycount.ACT365F)
	freq := spec.SwapFrequency
	if freq == (utils.Tenor{}) {
		freq = utils.Months(6)
	}
	if freq.Days != 0 || freq.Months <= 0 {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: swap frequency %s must be whole months", ErrInvalidArgument, freq)
	}
	bdc := spec.Convention
	if bdc == "" {
		bdc = calendar.ModifiedFollowing
	}
	cal := spec.Calendar
	if cal == nil {
		cal = calendar.Default()
	}
	solver := rootfind.DefaultOptions
	if spec.Solver != nil {
		solver = *spec.Solver
	}

	b := &YieldCurveBuilder{
		types:  append([]InstrumentType(nil), spec.Types...),
		times:  make([]float64, n),
		mmYF:   make([]float64, n),
		swaps:  make([]swapLeg, n),
		offset: curveDC.YearFraction(trade, spot),
		solver: solver,
	}
	for i, typ := range spec.Types {
		unadj := spec.Tenors[i].AddTo(spot)
		maturity := bdc.Adjust(unadj, cal)
		b.times[i] = curveDC.YearFraction(spot, maturity)
		if i > 0 && b.times[i] <= b.times[i-1] {
			return nil, fmt.Errorf("NewYieldCurveBuilder: %w: instrument %d (%s) does not mature after instrument %d", ErrInvalidArgument, i, spec.Tenors[i], i-1)
		}
		switch typ {
		case MoneyMarket:
			b.mmYF[i] = mmDC.YearFraction(spot, maturity)
		case Swap:
			b.swaps[i] = swapSchedule(spot, unadj, freq.Months, bdc, cal, swapDC, curveDC)
		default:
			return nil, fmt.Errorf("NewYieldCurveBuilder: %w: unknown instrument type %q", ErrInvalidArgument, typ)
		}
	}
	if b.times[0] <= 0 {
		return nil, fmt.Errorf("NewYieldCurveBuilder: %w: first instrument matures on the spot date", ErrInvalidArgument)
	}
	return b, nil
}

func orDayCount(dc, fallback daycount.DayCount) daycount.DayCount {
	if dc == nil {
		return fallback
	}
	return dc
}

// swapSchedule rolls the fixed leg backward from the unadjusted maturity, so
// any stub sits at the front.
func swapSchedule(spot, maturity time.Time, months int, bdc calendar.BusinessDayConvention, cal calendar.Calendar, swapDC, curveDC daycount.DayCount) swapLeg {
	var unadjusted []time.Time
	for k := 0; ; k++ {
		d := utils.AddMonth(maturity, -k*months)
		if !d.After(spot) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	leg := swapLeg{
		payTimes:  make([]float64, len(unadjusted)),
		yearFracs: make([]float64, len(unadjusted)),
	}
	prev := spot
	for j, d := range unadjusted {
		pay := bdc.Adjust(d, cal)
		leg.payTimes[j] = curveDC.YearFraction(spot, pay)
		leg.yearFracs[j] = swapDC.YearFraction(prev, pay)
		prev = pay
	}
	return leg
}

// NumberOfInstruments returns the instrument count.
func (b *YieldCurveBuilder) NumberOfInstruments() int { return len(b.types) }

// Build bootstraps the curve for the given instrument rates (decimals). The
// result has one knot per instrument, measured from the trade date.
func (b *YieldCurveBuilder) Build(rates []float64) (*YieldCurve, error) {
	if len(rates) != len(b.types) {
		return nil, fmt.Errorf("YieldCurveBuilder.Build: %w: %d rates for %d instruments", ErrInvalidArgument, len(rates), len(b.types))
	}
	c, err := New(b.times, rates)
	if err != nil {
		return nil, fmt.Errorf("YieldCurveBuilder.Build: %w", err)
	}
	for i, typ := range b.types {
		switch typ {
		case MoneyMarket:
			df := 1 / (1 + rates[i]*b.mmYF[i])
			c, err = c.WithDiscountFactor(df, i)
		case Swap:
			c, err = b.solveSwap(c, i, rates[i])
		}
		if err != nil {
			return nil, fmt.Errorf("YieldCurveBuilder.Build: instrument %d: %w", i, err)
		}
	}
	if b.offset > 0 {
		c, err = shiftOrigin(c, b.offset)
		if err != nil {
			return nil, fmt.Errorf("YieldCurveBuilder.Build: %w", err)
		}
	}
	return &YieldCurve{c}, nil
}

func (b *YieldCurveBuilder) solveSwap(c *Curve, i int, rate float64) (*Curve, error) {
	leg := b.swaps[i]
	last := len(leg.payTimes) - 1
	fn := func(x float64) (float64, float64) {
		trial, err := c.WithRate(x, i)
		if err != nil {
			return math.NaN(), math.NaN()
		}
		var annuity, dAnnuity float64
		for j, p := range leg.payTimes {
			df := trial.DiscountFactor(p)
			annuity += leg.yearFracs[j] * df
			dAnnuity -= leg.yearFracs[j] * df * trial.SingleNodeRTSensitivity(p, i)
		}
		p := leg.payTimes[last]
		dfEnd := trial.DiscountFactor(p)
		f := rate*annuity + dfEnd - 1
		df := rate*dAnnuity - dfEnd*trial.SingleNodeRTSensitivity(p, i)
		return f, df
	}
	value := func(x float64) float64 {
		f, _ := fn(x)
		return f
	}

	guess := rate
	if i > 0 {
		guess = c.ZeroRateAt(i - 1)
	}
	lo, hi, err := rootfind.Bracket(value, guess-0.01, guess+0.01, math.Inf(-1), b.solver)
	if err != nil {
		return nil, err
	}
	root, err := rootfind.Newton(fn, guess, lo, hi, b.solver)
	if err != nil {
		return nil, err
	}
	return c.WithRate(root, i)
}

// shiftOrigin moves the curve origin back by offset, extending the first
// zero rate flat over the gap.
func shiftOrigin(c *Curve, offset float64) (*Curve, error) {
	eta := c.r[0] * offset
	times := make([]float64, len(c.t))
	rt := make([]float64, len(c.t))
	for i := range c.t {
		times[i] = c.t[i] + offset
		rt[i] = c.rt[i] + eta
	}
	return FromRT(times, rt)
}
