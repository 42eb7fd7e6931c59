package pricer

import (
	"fmt"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
)

func checkNode(n, node int) error {
	if node < 0 || node >= n {
		return fmt.Errorf("node %d out of range [0,%d): %w", node, n, curve.ErrInvalidArgument)
	}
	return nil
}

// ProtectionLegCreditSensitivity is the derivative of the trade-date
// protection leg with respect to the zero hazard rate of credit node.
func (p *AnalyticPricer) ProtectionLegCreditSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(cc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("ProtectionLegCreditSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, nil
	}
	return p.compute(c, yc, cc, true).protCredit[node], nil
}

// ProtectionLegYieldSensitivity is the derivative of the trade-date
// protection leg with respect to the zero rate of yield node.
func (p *AnalyticPricer) ProtectionLegYieldSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(yc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("ProtectionLegYieldSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, nil
	}
	return p.compute(c, yc, cc, true).protYield[node], nil
}

// AnnuityCreditSensitivity is the derivative of the trade-date annuity with
// respect to credit node. Clean and dirty annuities share it.
func (p *AnalyticPricer) AnnuityCreditSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(cc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("AnnuityCreditSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, nil
	}
	return p.compute(c, yc, cc, true).annCredit[node], nil
}

// AnnuityYieldSensitivity is the derivative of the trade-date annuity with
// respect to yield node.
func (p *AnalyticPricer) AnnuityYieldSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(yc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("AnnuityYieldSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, nil
	}
	return p.compute(c, yc, cc, true).annYield[node], nil
}

// PVCreditSensitivities returns dPV/dh_j for every credit node; PV is the
// cash-settle value of PV. The price type does not change it.
func (p *AnalyticPricer) PVCreditSensitivities(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64) []float64 {
	out := make([]float64, cc.NumberOfKnots())
	if c.Expired() {
		return out
	}
	l := p.compute(c, yc, cc, true)
	df := yc.DiscountFactor(c.CashSettleTime())
	for j := range out {
		out[j] = (l.protCredit[j] - coupon*l.annCredit[j]) / df
	}
	return out
}

// PVYieldSensitivities returns dPV/dr_j for every yield node, including the
// roll to the cash-settle date.
func (p *AnalyticPricer) PVYieldSensitivities(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64) []float64 {
	out := make([]float64, yc.NumberOfKnots())
	if c.Expired() {
		return out
	}
	l := p.compute(c, yc, cc, true)
	cs := c.CashSettleTime()
	df := yc.DiscountFactor(cs)
	v := l.prot - coupon*l.annuity
	for j := range out {
		out[j] = (l.protYield[j] - coupon*l.annYield[j] + v*yc.SingleNodeRTSensitivity(cs, j)) / df
	}
	return out
}

// PVCreditSensitivity is one element of PVCreditSensitivities.
func (p *AnalyticPricer) PVCreditSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64, node int) (float64, error) {
	if err := checkNode(cc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("PVCreditSensitivity: %w", err)
	}
	return p.PVCreditSensitivities(c, yc, cc, coupon)[node], nil
}

// PVYieldSensitivity is one element of PVYieldSensitivities.
func (p *AnalyticPricer) PVYieldSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, coupon float64, node int) (float64, error) {
	if err := checkNode(yc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("PVYieldSensitivity: %w", err)
	}
	return p.PVYieldSensitivities(c, yc, cc, coupon)[node], nil
}

// ParSpreadCreditSensitivity is the derivative of ParSpread with respect to
// credit node.
func (p *AnalyticPricer) ParSpreadCreditSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(cc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("ParSpreadCreditSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, fmt.Errorf("ParSpreadCreditSensitivity: %w", ErrExpired)
	}
	l := p.compute(c, yc, cc, true)
	df := yc.DiscountFactor(c.CashSettleTime())
	prot := l.prot / df
	ann := l.annuity/df - c.AccruedYearFraction()
	s := prot / ann
	return (l.protCredit[node]/df - s*l.annCredit[node]/df) / ann, nil
}

// ParSpreadYieldSensitivity is the derivative of ParSpread with respect to
// yield node.
func (p *AnalyticPricer) ParSpreadYieldSensitivity(c *cds.CDSAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, node int) (float64, error) {
	if err := checkNode(yc.NumberOfKnots(), node); err != nil {
		return 0, fmt.Errorf("ParSpreadYieldSensitivity: %w", err)
	}
	if c.Expired() {
		return 0, fmt.Errorf("ParSpreadYieldSensitivity: %w", ErrExpired)
	}
	l := p.compute(c, yc, cc, true)
	cs := c.CashSettleTime()
	df := yc.DiscountFactor(cs)
	rts := yc.SingleNodeRTSensitivity(cs, node)
	prot := l.prot / df
	ann := l.annuity/df - c.AccruedYearFraction()
	s := prot / ann
	dProt := (l.protYield[node] + l.prot*rts) / df
	dAnn := (l.annYield[node] + l.annuity*rts) / df
	return (dProt - s*dAnn) / ann, nil
}
