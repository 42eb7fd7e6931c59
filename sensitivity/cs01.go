// Package sensitivity computes CS01 and IR01 of a CDS priced off a
// calibrated credit curve. Finite-difference figures recalibrate the curve
// under bumped inputs; analytic figures chain the pricer's node
// sensitivities through the calibration Jacobian.
//
// All figures are derivatives of the clean PV at cash settle per unit of
// the bumped quantity. Multiply by 1e-4 for a one-basis-point move.
package sensitivity

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
)

// ErrInvalidArgument reports a bad bump size or mismatched inputs.
var ErrInvalidArgument = errors.New("sensitivity: invalid argument")

// Differencing selects the finite-difference scheme.
type Differencing int

const (
	Central Differencing = iota
	Forward
	Backward
)

func (d Differencing) String() string {
	switch d {
	case Central:
		return "Central"
	case Forward:
		return "Forward"
	case Backward:
		return "Backward"
	}
	return fmt.Sprintf("Differencing(%d)", int(d))
}

// ParseDifferencing accepts Central, Forward and Backward in any case.
func ParseDifferencing(s string) (Differencing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "central":
		return Central, nil
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	}
	return Central, fmt.Errorf("ParseDifferencing: %w: unknown scheme %q", ErrInvalidArgument, s)
}

// Calculator holds the calibrator and the bump settings.
type Calculator struct {
	builder *calibrate.FastBuilder
	bump    float64
	diff    Differencing
}

// NewCalculator returns a calculator bumping by bump under diff.
func NewCalculator(builder *calibrate.FastBuilder, bump float64, diff Differencing) (*Calculator, error) {
	if !(bump > 0) {
		return nil, fmt.Errorf("NewCalculator: %w: bump %g must be positive", ErrInvalidArgument, bump)
	}
	return &Calculator{builder: builder, bump: bump, diff: diff}, nil
}

// Market is a par-spread calibration: the pillar contracts, their spreads
// and the yield curve they were calibrated on.
type Market struct {
	Pillars []*cds.CDSAnalytic
	Spreads []float64
	Yield   *curve.YieldCurve
}

func (m Market) validate() error {
	if len(m.Pillars) == 0 || len(m.Pillars) != len(m.Spreads) {
		return fmt.Errorf("%w: %d pillars, %d spreads", ErrInvalidArgument, len(m.Pillars), len(m.Spreads))
	}
	if m.Yield == nil {
		return fmt.Errorf("%w: no yield curve", ErrInvalidArgument)
	}
	return nil
}

func (c *Calculator) pv(target *cds.CDSAnalytic, coupon float64, yc *curve.YieldCurve, spreads []float64, pillars []*cds.CDSAnalytic) (float64, error) {
	cc, err := c.builder.CalibrateParSpreads(pillars, spreads, yc)
	if err != nil {
		return 0, err
	}
	return c.builder.Pricer().PV(target, yc, cc, coupon, cds.Clean), nil
}

// difference applies the scheme to a function of the bump size; f(0) is
// the base value.
func (c *Calculator) difference(f func(h float64) (float64, error)) (float64, error) {
	h := c.bump
	switch c.diff {
	case Forward:
		up, err := f(h)
		if err != nil {
			return 0, err
		}
		base, err := f(0)
		if err != nil {
			return 0, err
		}
		return (up - base) / h, nil
	case Backward:
		base, err := f(0)
		if err != nil {
			return 0, err
		}
		dn, err := f(-h)
		if err != nil {
			return 0, err
		}
		return (base - dn) / h, nil
	default:
		up, err := f(h)
		if err != nil {
			return 0, err
		}
		dn, err := f(-h)
		if err != nil {
			return 0, err
		}
		return (up - dn) / (2 * h), nil
	}
}

func shifted(base []float64, h float64, only int) []float64 {
	out := append([]float64(nil), base...)
	for i := range out {
		if only < 0 || i == only {
			out[i] += h
		}
	}
	return out
}

// ParallelCS01 bumps every pillar spread together and recalibrates.
func (c *Calculator) ParallelCS01(target *cds.CDSAnalytic, coupon float64, m Market) (float64, error) {
	if err := m.validate(); err != nil {
		return 0, fmt.Errorf("ParallelCS01: %w", err)
	}
	v, err := c.difference(func(h float64) (float64, error) {
		return c.pv(target, coupon, m.Yield, shifted(m.Spreads, h, -1), m.Pillars)
	})
	if err != nil {
		return 0, fmt.Errorf("ParallelCS01: %w", err)
	}
	return v, nil
}

// BucketedCS01 bumps one pillar spread at a time.
func (c *Calculator) BucketedCS01(target *cds.CDSAnalytic, coupon float64, m Market) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("BucketedCS01: %w", err)
	}
	out := make([]float64, len(m.Spreads))
	for j := range out {
		v, err := c.difference(func(h float64) (float64, error) {
			return c.pv(target, coupon, m.Yield, shifted(m.Spreads, h, j), m.Pillars)
		})
		if err != nil {
			return nil, fmt.Errorf("BucketedCS01: pillar %d: %w", j, err)
		}
		out[j] = v
	}
	return out, nil
}

// AnalyticBucketedCS01 is dPV/ds_j = sum_i dPV/dr_i * dr_i/ds_j.
func (c *Calculator) AnalyticBucketedCS01(target *cds.CDSAnalytic, coupon float64, m Market) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("AnalyticBucketedCS01: %w", err)
	}
	cal, err := c.builder.CalibrateParSpreadsDetailed(m.Pillars, m.Spreads, m.Yield)
	if err != nil {
		return nil, fmt.Errorf("AnalyticBucketedCS01: %w", err)
	}
	cc := cal.Curve
	jac, err := c.builder.Jacobian(m.Pillars, m.Spreads, m.Yield, cc, cal.Clamped)
	if err != nil {
		return nil, fmt.Errorf("AnalyticBucketedCS01: %w", err)
	}
	grad := mat.NewVecDense(cc.NumberOfKnots(), c.builder.Pricer().PVCreditSensitivities(target, m.Yield, cc, coupon))
	var out mat.VecDense
	out.MulVec(jac.T(), grad)
	return out.RawVector().Data, nil
}

// AnalyticParallelCS01 is the sum of the analytic buckets.
func (c *Calculator) AnalyticParallelCS01(target *cds.CDSAnalytic, coupon float64, m Market) (float64, error) {
	b, err := c.AnalyticBucketedCS01(target, coupon, m)
	if err != nil {
		return 0, err
	}
	return floats.Sum(b), nil
}
