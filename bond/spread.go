package bond

import (
	"fmt"

	"github.com/meenmo/isdacds/curve"
)

// ASWResult is an asset swap spread with the quantities behind it.
type ASWResult struct {
	SpreadBP float64
	// PVRiskFree is the bond discounted on the yield curve alone.
	PVRiskFree float64
	// PV01 is the value of 1bp a year paid on the bond's payment dates.
	PV01 float64
}

// AssetSwapSpread approximates the par asset swap spread in basis points:
//
//	ASW = (PV_riskfree - P_dirty) / PV01
//
// The floating leg is taken to reset on the bond's own payment dates.
func AssetSwapSpread(b *BondAnalytic, yc *curve.YieldCurve, dirty float64) (ASWResult, error) {
	pvRF := 0.0
	pv01 := 0.0
	prev := 0.0
	for i, t := range b.paymentTimes {
		df := yc.DiscountFactor(t)
		pvRF += b.amounts[i] * df
		pv01 += (t - prev) * 1e-4 * df
		prev = t
	}
	if pv01 == 0 {
		return ASWResult{}, fmt.Errorf("AssetSwapSpread: %w: PV01 is zero", ErrInvalidArgument)
	}
	return ASWResult{
		SpreadBP:   (pvRF - dirty) / pv01,
		PVRiskFree: pvRF,
		PV01:       pv01,
	}, nil
}
