package sensitivity

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
)

func bumpYield(yc *curve.YieldCurve, h float64, only int) (*curve.YieldCurve, error) {
	return yc.WithRates(shifted(yc.Rates(), h, only))
}

// ParallelIR01 bumps every yield-curve zero rate together. The credit curve
// is recalibrated to the unchanged spreads.
func (c *Calculator) ParallelIR01(target *cds.CDSAnalytic, coupon float64, m Market) (float64, error) {
	if err := m.validate(); err != nil {
		return 0, fmt.Errorf("ParallelIR01: %w", err)
	}
	v, err := c.difference(func(h float64) (float64, error) {
		yc, err := bumpYield(m.Yield, h, -1)
		if err != nil {
			return 0, err
		}
		return c.pv(target, coupon, yc, m.Spreads, m.Pillars)
	})
	if err != nil {
		return 0, fmt.Errorf("ParallelIR01: %w", err)
	}
	return v, nil
}

// BucketedIR01 bumps one yield-curve zero rate at a time.
func (c *Calculator) BucketedIR01(target *cds.CDSAnalytic, coupon float64, m Market) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("BucketedIR01: %w", err)
	}
	out := make([]float64, m.Yield.NumberOfKnots())
	for j := range out {
		v, err := c.difference(func(h float64) (float64, error) {
			yc, err := bumpYield(m.Yield, h, j)
			if err != nil {
				return 0, err
			}
			return c.pv(target, coupon, yc, m.Spreads, m.Pillars)
		})
		if err != nil {
			return nil, fmt.Errorf("BucketedIR01: node %d: %w", j, err)
		}
		out[j] = v
	}
	return out, nil
}

// AnalyticBucketedIR01 adds the direct yield sensitivity of the target to
// the response of the recalibrated credit curve:
// dPV/dy_m + sum_i dPV/dr_i * dr_i/dy_m.
func (c *Calculator) AnalyticBucketedIR01(target *cds.CDSAnalytic, coupon float64, m Market) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("AnalyticBucketedIR01: %w", err)
	}
	cal, err := c.builder.CalibrateParSpreadsDetailed(m.Pillars, m.Spreads, m.Yield)
	if err != nil {
		return nil, fmt.Errorf("AnalyticBucketedIR01: %w", err)
	}
	cc := cal.Curve
	jac, err := c.builder.YieldJacobian(m.Pillars, m.Spreads, m.Yield, cc, cal.Clamped)
	if err != nil {
		return nil, fmt.Errorf("AnalyticBucketedIR01: %w", err)
	}
	p := c.builder.Pricer()
	credit := mat.NewVecDense(cc.NumberOfKnots(), p.PVCreditSensitivities(target, m.Yield, cc, coupon))
	out := mat.NewVecDense(m.Yield.NumberOfKnots(), p.PVYieldSensitivities(target, m.Yield, cc, coupon))
	var response mat.VecDense
	response.MulVec(jac.T(), credit)
	out.AddVec(out, &response)
	return out.RawVector().Data, nil
}

// AnalyticParallelIR01 is the sum of the analytic buckets.
func (c *Calculator) AnalyticParallelIR01(target *cds.CDSAnalytic, coupon float64, m Market) (float64, error) {
	b, err := c.AnalyticBucketedIR01(target, coupon, m)
	if err != nil {
		return 0, err
	}
	return floats.Sum(b), nil
}

// MarketIR01 bumps the market rates of the yield-curve instruments and
// rebuilds the yield curve before recalibrating. m.Yield is ignored. It
// returns the parallel figure and one bucket per instrument.
func (c *Calculator) MarketIR01(target *cds.CDSAnalytic, coupon float64, m Market, yb *curve.YieldCurveBuilder, rates []float64) (float64, []float64, error) {
	if len(m.Pillars) == 0 || len(m.Pillars) != len(m.Spreads) {
		return 0, nil, fmt.Errorf("MarketIR01: %w: %d pillars, %d spreads", ErrInvalidArgument, len(m.Pillars), len(m.Spreads))
	}
	if len(rates) != yb.NumberOfInstruments() {
		return 0, nil, fmt.Errorf("MarketIR01: %w: %d rates for %d instruments", ErrInvalidArgument, len(rates), yb.NumberOfInstruments())
	}
	pvAt := func(only int) func(h float64) (float64, error) {
		return func(h float64) (float64, error) {
			yc, err := yb.Build(shifted(rates, h, only))
			if err != nil {
				return 0, err
			}
			return c.pv(target, coupon, yc, m.Spreads, m.Pillars)
		}
	}
	parallel, err := c.difference(pvAt(-1))
	if err != nil {
		return 0, nil, fmt.Errorf("MarketIR01: %w", err)
	}
	buckets := make([]float64, len(rates))
	for j := range buckets {
		v, err := c.difference(pvAt(j))
		if err != nil {
			return 0, nil, fmt.Errorf("MarketIR01: instrument %d: %w", j, err)
		}
		buckets[j] = v
	}
	return parallel, buckets, nil
}
