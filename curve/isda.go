package curve

import "fmt"

// YieldCurve is a discount curve: DiscountFactor(t) is the risk-free
// discount factor to curve time t.
type YieldCurve struct {
	*Curve
}

// CreditCurve is a survival curve: DiscountFactor(t) is the survival
// probability to t and ZeroRate(t) the average hazard rate.
type CreditCurve struct {
	*Curve
}

// NewYieldCurve builds a yield curve from knot times and zero rates.
func NewYieldCurve(times, rates []float64) (*YieldCurve, error) {
	c, err := New(times, rates)
	if err != nil {
		return nil, fmt.Errorf("NewYieldCurve: %w", err)
	}
	return &YieldCurve{c}, nil
}

// NewFlatYieldCurve returns a yield curve with a constant zero rate.
func NewFlatYieldCurve(r float64) *YieldCurve {
	return &YieldCurve{NewFlat(r)}
}

// NewCreditCurve builds a credit curve from knot times and zero hazard rates.
func NewCreditCurve(times, rates []float64) (*CreditCurve, error) {
	c, err := New(times, rates)
	if err != nil {
		return nil, fmt.Errorf("NewCreditCurve: %w", err)
	}
	return &CreditCurve{c}, nil
}

// NewFlatCreditCurve returns a credit curve with a constant hazard rate.
func NewFlatCreditCurve(h float64) *CreditCurve {
	return &CreditCurve{NewFlat(h)}
}

// SurvivalProbability is an alias of DiscountFactor.
func (c *CreditCurve) SurvivalProbability(t float64) float64 {
	return c.DiscountFactor(t)
}

// HazardRate is an alias of ForwardRate.
func (c *CreditCurve) HazardRate(t float64) float64 {
	return c.ForwardRate(t)
}

func (c *YieldCurve) WithRate(rate float64, i int) (*YieldCurve, error) {
	return wrapYield(c.Curve.WithRate(rate, i))
}

func (c *YieldCurve) WithRates(rates []float64) (*YieldCurve, error) {
	return wrapYield(c.Curve.WithRates(rates))
}

func (c *YieldCurve) WithDiscountFactor(df float64, i int) (*YieldCurve, error) {
	return wrapYield(c.Curve.WithDiscountFactor(df, i))
}

func (c *YieldCurve) WithOffset(offset float64) (*YieldCurve, error) {
	return wrapYield(c.Curve.WithOffset(offset))
}

func (c *CreditCurve) WithRate(rate float64, i int) (*CreditCurve, error) {
	return wrapCredit(c.Curve.WithRate(rate, i))
}

func (c *CreditCurve) WithRates(rates []float64) (*CreditCurve, error) {
	return wrapCredit(c.Curve.WithRates(rates))
}

func (c *CreditCurve) WithDiscountFactor(df float64, i int) (*CreditCurve, error) {
	return wrapCredit(c.Curve.WithDiscountFactor(df, i))
}

func (c *CreditCurve) WithOffset(offset float64) (*CreditCurve, error) {
	return wrapCredit(c.Curve.WithOffset(offset))
}

func wrapYield(c *Curve, err error) (*YieldCurve, error) {
	if err != nil {
		return nil, err
	}
	return &YieldCurve{c}, nil
}

func wrapCredit(c *Curve, err error) (*CreditCurve, error) {
	if err != nil {
		return nil, err
	}
	return &CreditCurve{c}, nil
}
