// Package pricer implements the ISDA Standard Model analytic CDS pricer.
//
// Both curves are piecewise flat in their forward rates, so between the
// union of their knots the protection and accrual-on-default integrals have
// closed forms. All values are per unit notional.
package pricer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
)

// ErrExpired is returned for quantities undefined once protection has ended.
var ErrExpired = errors.New("pricer: contract has expired")

// AnalyticPricer prices CDS contracts with a fixed accrual-on-default
// formula. It holds no mutable state.
type AnalyticPricer struct {
	formula AccrualOnDefaultFormula
}

// NewAnalyticPricer returns a pricer using formula. A nil formula panics:
// the formula changes prices and must be chosen explicitly.
func NewAnalyticPricer(formula AccrualOnDefaultFormula) *AnalyticPricer {
	if formula == nil {
		panic("pricer: nil accrual-on-default formula")
	}
	return &AnalyticPricer{formula: formula}
}

// Formula returns the accrual-on-default formula.
func (p *AnalyticPricer) Formula() AccrualOnDefaultFormula { return p.formula }

// legs holds the undiscounted (trade-date) protection leg and dirty annuity
// with optional gradients to every node of each curve.
type legs struct {
	prot, annuity                              float64
	protCredit, protYield, annCredit, annYield []float64
}

func (p *AnalyticPricer) compute(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, withGrad bool) legs {
	var l legs
	if withGrad {
		l.protCredit = make([]float64, cc.NumberOfKnots())
		l.protYield = make([]float64, yc.NumberOfKnots())
		l.annCredit = make([]float64, cc.NumberOfKnots())
		l.annYield = make([]float64, yc.NumberOfKnots())
	}
	yt, ct := yc.Times(), cc.Times()
	l.prot = p.protectionLeg(c, yc.Curve, cc.Curve, yt, ct, l.protCredit, l.protYield)
	l.annuity = p.dirtyAnnuity(c, yc.Curve, cc.Curve, yt, ct, l.annCredit, l.annYield)
	return l
}

func (p *AnalyticPricer) protectionLeg(c *cds.CDSAnalytic, yc, cc *curve.Curve, yt, ct, dCredit, dYield []float64) float64 {
	start := math.Max(c.EffectiveProtectionStart(), 0)
	end := c.ProtectionEnd()
	if end <= start {
		return 0
	}
	pts := IntegrationPoints(start, end, yt, ct)
	ht0, rt0 := cc.RT(pts[0]), yc.RT(pts[0])
	b0 := math.Exp(-ht0 - rt0)
	pv := 0.0
	for k := 1; k < len(pts); k++ {
		ht1, rt1 := cc.RT(pts[k]), yc.RT(pts[k])
		b1 := math.Exp(-ht1 - rt1)
		dht := ht1 - ht0
		d := dht + rt1 - rt0
		e := Epsilon(-d)
		seg := dht * b0 * e
		pv += seg
		if dCredit != nil {
			ep := -EpsilonP(-d)
			h1 := b0*e + dht*b0*ep
			r1 := dht * b0 * ep
			addRTSensitivity(dCredit, cc, pts[k], h1)
			addRTSensitivity(dCredit, cc, pts[k-1], -h1-seg)
			addRTSensitivity(dYield, yc, pts[k], r1)
			addRTSensitivity(dYield, yc, pts[k-1], -r1-seg)
		}
		ht0, rt0, b0 = ht1, rt1, b1
	}
	lgd := c.LGD()
	scale(dCredit, lgd)
	scale(dYield, lgd)
	return lgd * pv
}

func (p *AnalyticPricer) dirtyAnnuity(c *cds.CDSAnalytic, yc, cc *curve.Curve, yt, ct, dCredit, dYield []float64) float64 {
	pv := 0.0
	for i := 0; i < c.NumPayments(); i++ {
		cp := c.Coupon(i)
		v := cp.YearFrac * yc.DiscountFactor(cp.PaymentTime) * cc.DiscountFactor(cp.EffEnd)
		pv += v
		if dCredit != nil {
			addRTSensitivity(dCredit, cc, cp.EffEnd, -v)
			addRTSensitivity(dYield, yc, cp.PaymentTime, -v)
		}
	}
	if !c.PayAccOnDefault() {
		return pv
	}
	protStart := math.Max(c.EffectiveProtectionStart(), 0)
	for i := 0; i < c.NumPayments(); i++ {
		pv += p.accrualOnDefault(c.Coupon(i), protStart, yc, cc, yt, ct, dCredit, dYield)
	}
	return pv
}

func (p *AnalyticPricer) accrualOnDefault(cp cds.Coupon, protStart float64, yc, cc *curve.Curve, yt, ct, dCredit, dYield []float64) float64 {
	start := math.Max(cp.EffStart, protStart)
	if start >= cp.EffEnd {
		return 0
	}
	pts := IntegrationPoints(start, cp.EffEnd, yt, ct)
	omega := p.formula.Omega()
	ht0, rt0 := cc.RT(pts[0]), yc.RT(pts[0])
	b0 := math.Exp(-ht0 - rt0)
	pv := 0.0
	var gc, gy []float64
	if dCredit != nil {
		gc = make([]float64, len(dCredit))
		gy = make([]float64, len(dYield))
	}
	for k := 1; k < len(pts); k++ {
		ht1, rt1 := cc.RT(pts[k]), yc.RT(pts[k])
		b1 := math.Exp(-ht1 - rt1)
		dht := ht1 - ht0
		d := dht + rt1 - rt0
		t0 := pts[k-1] - cp.EffStart + omega
		kern, dk := p.formula.Kernel(t0, pts[k]-pts[k-1], d)
		seg := dht * b0 * kern
		pv += seg
		if gc != nil {
			h1 := b0*kern + dht*b0*dk
			r1 := dht * b0 * dk
			addRTSensitivity(gc, cc, pts[k], h1)
			addRTSensitivity(gc, cc, pts[k-1], -h1-seg)
			addRTSensitivity(gy, yc, pts[k], r1)
			addRTSensitivity(gy, yc, pts[k-1], -r1-seg)
		}
		ht0, rt0, b0 = ht1, rt1, b1
	}
	if gc != nil {
		for j := range gc {
			dCredit[j] += cp.YFRatio * gc[j]
		}
		for j := range gy {
			dYield[j] += cp.YFRatio * gy[j]
		}
	}
	return cp.YFRatio * pv
}

// IntegrationPoints returns start, every knot of a or b strictly inside
// (start, end), and end, sorted and without duplicates.
func IntegrationPoints(start, end float64, a, b []float64) []float64 {
	pts := make([]float64, 0, len(a)+len(b)+2)
	pts = append(pts, start)
	i := sort.SearchFloat64s(a, start)
	j := sort.SearchFloat64s(b, start)
	last := start
	for {
		next := end
		if i < len(a) && a[i] < next {
			next = a[i]
		}
		if j < len(b) && b[j] < next {
			next = b[j]
		}
		if next >= end {
			break
		}
		if next > last {
			pts = append(pts, next)
			last = next
		}
		if i < len(a) && a[i] == next {
			i++
		}
		if j < len(b) && b[j] == next {
			j++
		}
	}
	return append(pts, end)
}

func addRTSensitivity(dst []float64, c *curve.Curve, t, coeff float64) {
	if dst == nil || coeff == 0 {
		return
	}
	for j := range dst {
		dst[j] += coeff * c.SingleNodeRTSensitivity(t, j)
	}
}

func scale(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}

// ProtectionLeg is the protection leg value at the trade date.
func (p *AnalyticPricer) ProtectionLeg(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve) float64 {
	return p.ProtectionLegAt(c, yc, cc, 0)
}

// ProtectionLegAt is the protection leg value rolled forward to valuationTime.
func (p *AnalyticPricer) ProtectionLegAt(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	return p.protectionLeg(c, yc.Curve, cc.Curve, yc.Times(), cc.Times(), nil, nil) / yc.DiscountFactor(valuationTime)
}

// Annuity is the premium leg per unit coupon at the trade date.
func (p *AnalyticPricer) Annuity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, pt cds.PriceType) float64 {
	return p.AnnuityAt(c, yc, cc, pt, 0)
}

// AnnuityAt is the premium leg per unit coupon rolled forward to
// valuationTime. The clean annuity excludes the accrued premium.
func (p *AnalyticPricer) AnnuityAt(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, pt cds.PriceType, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	a := p.dirtyAnnuity(c, yc.Curve, cc.Curve, yc.Times(), cc.Times(), nil, nil) / yc.DiscountFactor(valuationTime)
	if pt == cds.Clean {
		a -= c.AccruedYearFraction()
	}
	return a
}

// PV is the value to the protection buyer at the cash-settle date for a
// contract paying coupon.
func (p *AnalyticPricer) PV(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64, pt cds.PriceType) float64 {
	return p.pvAt(c, yc, cc, coupon, pt, c.CashSettleTime())
}

// PVAtTradeDate is PV without rolling to the cash-settle date.
func (p *AnalyticPricer) PVAtTradeDate(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64, pt cds.PriceType) float64 {
	return p.pvAt(c, yc, cc, coupon, pt, 0)
}

func (p *AnalyticPricer) pvAt(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64, pt cds.PriceType, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	l := p.compute(c, yc, cc, false)
	return p.pvFromLegs(c, l, yc.DiscountFactor(valuationTime), coupon, pt)
}

func (p *AnalyticPricer) pvFromLegs(c *cds.CDSAnalytic, l legs, df, coupon float64, pt cds.PriceType) float64 {
	a := l.annuity / df
	if pt == cds.Clean {
		a -= c.AccruedYearFraction()
	}
	return l.prot/df - coupon*a
}

// ParSpread is the coupon for which the clean PV is zero.
func (p *AnalyticPricer) ParSpread(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve) (float64, error) {
	if c.Expired() {
		return 0, fmt.Errorf("ParSpread: %w", ErrExpired)
	}
	l := p.compute(c, yc, cc, false)
	df := yc.DiscountFactor(c.CashSettleTime())
	return (l.prot / df) / (l.annuity/df - c.AccruedYearFraction()), nil
}

// Result collects the standard outputs for one contract.
type Result struct {
	ProtectionLeg float64 `json:"protection_leg"`
	// PremiumLeg is coupon times the clean annuity.
	PremiumLeg   float64 `json:"premium_leg"`
	CleanPV      float64 `json:"clean_pv"`
	DirtyPV      float64 `json:"dirty_pv"`
	ParSpread    float64 `json:"par_spread"`
	Accrued      float64 `json:"accrued"`
	AccruedDays  int     `json:"accrued_days"`
	CleanAnnuity float64 `json:"clean_annuity"`
}

// Price evaluates every Result field with one pass over the legs. All
// values are at the cash-settle date.
func (p *AnalyticPricer) Price(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64) (Result, error) {
	if c.Expired() {
		return Result{}, fmt.Errorf("Price: %w", ErrExpired)
	}
	l := p.compute(c, yc, cc, false)
	df := yc.DiscountFactor(c.CashSettleTime())
	prot := l.prot / df
	dirty := l.annuity / df
	clean := dirty - c.AccruedYearFraction()
	return Result{
		ProtectionLeg: prot,
		PremiumLeg:    coupon * clean,
		CleanPV:       prot - coupon*clean,
		DirtyPV:       prot - coupon*dirty,
		ParSpread:     prot / clean,
		Accrued:       c.AccruedPremium(coupon),
		AccruedDays:   c.AccruedDays(),
		CleanAnnuity:  clean,
	}, nil
}
