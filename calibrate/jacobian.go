package calibrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
)

// The Jacobians below take the clamp mask of the calibration (nil when no
// node was clamped). Row i of the implicit system is pillar i's repricing
// equation, or for a clamped node the constraint
// dr[i] - t[i-1]/t[i] * dr[i-1] = 0, which has no quote dependence.

func isClamped(clamped []bool, i int) bool {
	return clamped != nil && clamped[i]
}

// repricingMatrix is A[i][k] = dPV_i/dr_k, the sensitivity of pillar i's
// clean PV at its coupon to credit node k. It is lower triangular because
// pillar i only sees nodes up to its own maturity.
func (b *FastBuilder) repricingMatrix(pillars []*cds.CDSAnalytic, coupons []float64, yc *curve.YieldCurve, cc *curve.CreditCurve, clamped []bool) (*mat.TriDense, error) {
	n := len(pillars)
	if cc.NumberOfKnots() != n || len(coupons) != n {
		return nil, fmt.Errorf("%w: %d pillars, %d coupons, %d credit nodes", ErrInvalidArgument, n, len(coupons), cc.NumberOfKnots())
	}
	if clamped != nil && len(clamped) != n {
		return nil, fmt.Errorf("%w: clamp mask of %d for %d nodes", ErrInvalidArgument, len(clamped), n)
	}
	a := mat.NewTriDense(n, mat.Lower, nil)
	for i, c := range pillars {
		if isClamped(clamped, i) {
			a.SetTri(i, i, 1)
			if i > 0 {
				a.SetTri(i, i-1, -cc.TimeAt(i-1)/cc.TimeAt(i))
			}
			continue
		}
		row := b.pricer.PVCreditSensitivities(c, yc, cc, coupons[i])
		for k := 0; k <= i; k++ {
			a.SetTri(i, k, row[k])
		}
	}
	return a, nil
}

// Jacobian returns dr_i/ds_j for a curve calibrated to par spreads. Moving
// spread j leaves nodes before j untouched, so the result is lower
// triangular.
func (b *FastBuilder) Jacobian(pillars []*cds.CDSAnalytic, spreads []float64, yc *curve.YieldCurve, cc *curve.CreditCurve, clamped []bool) (*mat.TriDense, error) {
	a, err := b.repricingMatrix(pillars, spreads, yc, cc, clamped)
	if err != nil {
		return nil, fmt.Errorf("Jacobian: %w", err)
	}
	var inv mat.TriDense
	if err := inv.InverseTri(a); err != nil {
		return nil, fmt.Errorf("Jacobian: singular repricing matrix: %w", err)
	}
	// dPV_i/ds_i is minus the clean annuity at cash settle
	n := len(pillars)
	rhs := mat.NewTriDense(n, mat.Lower, nil)
	for i, c := range pillars {
		if isClamped(clamped, i) {
			continue
		}
		ann := b.pricer.AnnuityAt(c, yc, cc, cds.Clean, c.CashSettleTime())
		rhs.SetTri(i, i, ann)
	}
	var jac mat.TriDense
	jac.MulTri(&inv, rhs)
	return &jac, nil
}

// UpfrontJacobian returns dr_i/dpuf_j: the inverse of the repricing
// matrix, since dPV_i/dpuf_i is -1, with the columns of clamped pillars
// zeroed.
func (b *FastBuilder) UpfrontJacobian(pillars []*cds.CDSAnalytic, coupons []float64, yc *curve.YieldCurve, cc *curve.CreditCurve, clamped []bool) (*mat.TriDense, error) {
	a, err := b.repricingMatrix(pillars, coupons, yc, cc, clamped)
	if err != nil {
		return nil, fmt.Errorf("UpfrontJacobian: %w", err)
	}
	var inv mat.TriDense
	if err := inv.InverseTri(a); err != nil {
		return nil, fmt.Errorf("UpfrontJacobian: singular repricing matrix: %w", err)
	}
	n := len(pillars)
	for j := 0; j < n; j++ {
		if !isClamped(clamped, j) {
			continue
		}
		for i := j; i < n; i++ {
			inv.SetTri(i, j, 0)
		}
	}
	return &inv, nil
}

// YieldJacobian returns dr_i/dy_m, the response of credit node i to yield
// node m with every pillar quote held fixed. Rows are credit nodes.
func (b *FastBuilder) YieldJacobian(pillars []*cds.CDSAnalytic, coupons []float64, yc *curve.YieldCurve, cc *curve.CreditCurve, clamped []bool) (*mat.Dense, error) {
	a, err := b.repricingMatrix(pillars, coupons, yc, cc, clamped)
	if err != nil {
		return nil, fmt.Errorf("YieldJacobian: %w", err)
	}
	n, m := len(pillars), yc.NumberOfKnots()
	rhs := mat.NewDense(n, m, nil)
	for i, c := range pillars {
		if isClamped(clamped, i) {
			continue
		}
		row := b.pricer.PVYieldSensitivities(c, yc, cc, coupons[i])
		for j, v := range row {
			rhs.Set(i, j, -v)
		}
	}
	var jac mat.Dense
	if err := jac.Solve(a, rhs); err != nil {
		return nil, fmt.Errorf("YieldJacobian: %w", err)
	}
	return &jac, nil
}
