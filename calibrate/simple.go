package calibrate

import (
	"fmt"
	"time"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/utils"
)

// SimpleBuilder works from dates: it builds every pillar through a
// cds.Factory and reprices with the generic pricer on each iteration.
// It is slower than FastBuilder and lands on the same curve.
type SimpleBuilder struct {
	factory cds.Factory
	pricer  *pricer.AnalyticPricer
	opts    Options
}

// NewSimpleBuilder returns a builder using factory conventions.
func NewSimpleBuilder(factory cds.Factory, formula pricer.AccrualOnDefaultFormula, opts Options) *SimpleBuilder {
	return &SimpleBuilder{factory: factory, pricer: pricer.NewAnalyticPricer(formula), opts: opts}
}

// Pillars builds the standard IMM pillar contracts for maturities.
func (b *SimpleBuilder) Pillars(trade time.Time, maturities []time.Time) ([]*cds.CDSAnalytic, error) {
	accStart := b.factory.IMMAccrualStart(trade)
	out := make([]*cds.CDSAnalytic, len(maturities))
	for i, m := range maturities {
		c, err := b.factory.MakeCDS(trade, accStart, m)
		if err != nil {
			return nil, fmt.Errorf("SimpleBuilder.Pillars: maturity %s: %w", m.Format(utils.DateLayout), err)
		}
		out[i] = c
	}
	return out, nil
}

// Calibrate builds pillars maturing on maturities and solves each node
// against the generic pricer.
func (b *SimpleBuilder) Calibrate(trade time.Time, maturities []time.Time, coupons, pufs []float64, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	pillars, err := b.Pillars(trade, maturities)
	if err != nil {
		return nil, err
	}
	times, err := validate(pillars, coupons, pufs)
	if err != nil {
		return nil, fmt.Errorf("SimpleBuilder.Calibrate: %w", err)
	}
	obj := func(i int) objective {
		c, coupon, puf := pillars[i], coupons[i], pufs[i]
		return func(trial *curve.CreditCurve) (float64, float64) {
			pv := b.pricer.PV(c, yc, trial, coupon, cds.Clean) - puf
			dpv, err := b.pricer.PVCreditSensitivity(c, yc, trial, coupon, i)
			if err != nil {
				return pv, 0
			}
			return pv, dpv
		}
	}
	cal, err := bootstrap(times, pillars, coupons, pufs, obj, b.opts)
	if err != nil {
		return nil, fmt.Errorf("SimpleBuilder.Calibrate: %w", err)
	}
	return cal.Curve, nil
}

// CalibrateTenors is Calibrate with standard IMM maturities.
func (b *SimpleBuilder) CalibrateTenors(trade time.Time, tenors []utils.Tenor, coupons, pufs []float64, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	maturities := make([]time.Time, len(tenors))
	for i, tn := range tenors {
		maturities[i] = b.factory.IMMMaturity(trade, tn)
	}
	return b.Calibrate(trade, maturities, coupons, pufs, yc)
}
