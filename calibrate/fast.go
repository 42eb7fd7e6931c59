package calibrate

import (
	"fmt"
	"math"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
)

// FastBuilder calibrates on pre-built pillar contracts. Everything that
// depends only on the yield curve (integration points, discount factors)
// is computed once per pillar before the node solve.
type FastBuilder struct {
	pricer *pricer.AnalyticPricer
	opts   Options
}

// NewFastBuilder returns a builder pricing with formula.
func NewFastBuilder(formula pricer.AccrualOnDefaultFormula, opts Options) *FastBuilder {
	return &FastBuilder{pricer: pricer.NewAnalyticPricer(formula), opts: opts}
}

// Pricer returns the pricer used for repricing and Jacobians.
func (b *FastBuilder) Pricer() *pricer.AnalyticPricer { return b.pricer }

// Options returns the builder options.
func (b *FastBuilder) Options() Options { return b.opts }

// Calibrate returns the credit curve that reprices every pillar to its
// upfront: clean PV at cash settle equals pufs[i] at coupon coupons[i].
func (b *FastBuilder) Calibrate(pillars []*cds.CDSAnalytic, coupons, pufs []float64, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	cal, err := b.CalibrateDetailed(pillars, coupons, pufs, yc)
	if err != nil {
		return nil, err
	}
	return cal.Curve, nil
}

// CalibrateDetailed is Calibrate reporting which nodes ZeroHazardRate
// clamped. Pass the mask to the Jacobians.
func (b *FastBuilder) CalibrateDetailed(pillars []*cds.CDSAnalytic, coupons, pufs []float64, yc *curve.YieldCurve) (*Calibration, error) {
	times, err := validate(pillars, coupons, pufs)
	if err != nil {
		return nil, fmt.Errorf("FastBuilder.Calibrate: %w", err)
	}
	data := make([]*fastPillar, len(pillars))
	for i, c := range pillars {
		data[i] = newFastPillar(c, yc, times)
	}
	formula := b.pricer.Formula()
	obj := func(i int) objective {
		d, coupon, puf := data[i], coupons[i], pufs[i]
		return func(trial *curve.CreditCurve) (float64, float64) {
			return d.pv(trial.Curve, i, formula, coupon, puf)
		}
	}
	cal, err := bootstrap(times, pillars, coupons, pufs, obj, b.opts)
	if err != nil {
		return nil, fmt.Errorf("FastBuilder.Calibrate: %w", err)
	}
	return cal, nil
}

// CalibrateParSpreads calibrates to par spreads: each pillar pays its own
// spread with no upfront.
func (b *FastBuilder) CalibrateParSpreads(pillars []*cds.CDSAnalytic, spreads []float64, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	return b.Calibrate(pillars, spreads, make([]float64, len(spreads)), yc)
}

// CalibrateParSpreadsDetailed is CalibrateParSpreads with the clamp mask.
func (b *FastBuilder) CalibrateParSpreadsDetailed(pillars []*cds.CDSAnalytic, spreads []float64, yc *curve.YieldCurve) (*Calibration, error) {
	return b.CalibrateDetailed(pillars, spreads, make([]float64, len(spreads)), yc)
}

// segments are integration points with the yield curve's rt at each.
type segments struct {
	pts, yrt []float64
}

func newSegments(start, end float64, yc *curve.YieldCurve, creditTimes []float64) segments {
	if end <= start {
		return segments{}
	}
	pts := pricer.IntegrationPoints(start, end, yc.Times(), creditTimes)
	yrt := make([]float64, len(pts))
	for k, p := range pts {
		yrt[k] = yc.RT(p)
	}
	return segments{pts: pts, yrt: yrt}
}

type fastCoupon struct {
	yfDF     float64 // year fraction times discount factor to payment
	effStart float64
	effEnd   float64
	yfRatio  float64
	aod      segments
}

type fastPillar struct {
	lgd, df, accrued float64
	payAoD           bool
	prot             segments
	coupons          []fastCoupon
}

func newFastPillar(c *cds.CDSAnalytic, yc *curve.YieldCurve, creditTimes []float64) *fastPillar {
	protStart := math.Max(c.EffectiveProtectionStart(), 0)
	d := &fastPillar{
		lgd:     c.LGD(),
		df:      yc.DiscountFactor(c.CashSettleTime()),
		accrued: c.AccruedYearFraction(),
		payAoD:  c.PayAccOnDefault(),
		prot:    newSegments(protStart, c.ProtectionEnd(), yc, creditTimes),
		coupons: make([]fastCoupon, c.NumPayments()),
	}
	for i, cp := range c.Coupons() {
		fc := fastCoupon{
			yfDF:     cp.YearFrac * yc.DiscountFactor(cp.PaymentTime),
			effStart: cp.EffStart,
			effEnd:   cp.EffEnd,
			yfRatio:  cp.YFRatio,
		}
		if d.payAoD {
			fc.aod = newSegments(math.Max(cp.EffStart, protStart), cp.EffEnd, yc, creditTimes)
		}
		d.coupons[i] = fc
	}
	return d
}

// pv is the clean PV at cash settle less the upfront, and its derivative
// with respect to the zero rate of node.
func (d *fastPillar) pv(cc *curve.Curve, node int, formula pricer.AccrualOnDefaultFormula, coupon, puf float64) (float64, float64) {
	prot, dProt := d.protection(cc, node)
	ann, dAnn := d.annuity(cc, node, formula)
	a := ann / d.df
	a -= d.accrued
	return prot/d.df - coupon*a - puf, (dProt - coupon*dAnn) / d.df
}

func (d *fastPillar) protection(cc *curve.Curve, node int) (float64, float64) {
	s := d.prot
	if len(s.pts) == 0 {
		return 0, 0
	}
	ht0 := cc.RT(s.pts[0])
	b0 := math.Exp(-ht0 - s.yrt[0])
	sens0 := cc.SingleNodeRTSensitivity(s.pts[0], node)
	pv, dpv := 0.0, 0.0
	for k := 1; k < len(s.pts); k++ {
		ht1 := cc.RT(s.pts[k])
		b1 := math.Exp(-ht1 - s.yrt[k])
		sens1 := cc.SingleNodeRTSensitivity(s.pts[k], node)
		dht := ht1 - ht0
		dd := dht + s.yrt[k] - s.yrt[k-1]
		e := pricer.Epsilon(-dd)
		seg := dht * b0 * e
		pv += seg
		h1 := b0*e - dht*b0*pricer.EpsilonP(-dd)
		dpv += h1*sens1 + (-h1-seg)*sens0
		ht0, b0, sens0 = ht1, b1, sens1
	}
	return d.lgd * pv, d.lgd * dpv
}

func (d *fastPillar) annuity(cc *curve.Curve, node int, formula pricer.AccrualOnDefaultFormula) (float64, float64) {
	pv, dpv := 0.0, 0.0
	for _, fc := range d.coupons {
		v := fc.yfDF * cc.DiscountFactor(fc.effEnd)
		pv += v
		dpv -= v * cc.SingleNodeRTSensitivity(fc.effEnd, node)
	}
	if !d.payAoD {
		return pv, dpv
	}
	omega := formula.Omega()
	for _, fc := range d.coupons {
		s := fc.aod
		if len(s.pts) == 0 {
			continue
		}
		ht0 := cc.RT(s.pts[0])
		b0 := math.Exp(-ht0 - s.yrt[0])
		sens0 := cc.SingleNodeRTSensitivity(s.pts[0], node)
		v, dv := 0.0, 0.0
		for k := 1; k < len(s.pts); k++ {
			ht1 := cc.RT(s.pts[k])
			b1 := math.Exp(-ht1 - s.yrt[k])
			sens1 := cc.SingleNodeRTSensitivity(s.pts[k], node)
			dht := ht1 - ht0
			dd := dht + s.yrt[k] - s.yrt[k-1]
			t0 := s.pts[k-1] - fc.effStart + omega
			kern, dk := formula.Kernel(t0, s.pts[k]-s.pts[k-1], dd)
			seg := dht * b0 * kern
			v += seg
			h1 := b0*kern + dht*b0*dk
			dv += h1*sens1 + (-h1-seg)*sens0
			ht0, b0, sens0 = ht1, b1, sens1
		}
		pv += fc.yfRatio * v
		dpv += fc.yfRatio * dv
	}
	return pv, dpv
}
