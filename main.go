package main

import (
	"fmt"
	"os"
	"time"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/utils"
)

func main() {
	tradeDate := utils.Date(2011, time.June, 13)
	tenors := []utils.Tenor{
		utils.Months(6), utils.Years(1), utils.Years(2), utils.Years(3),
		utils.Years(5), utils.Years(7), utils.Years(10),
	}
	spreads := []float64{0.0050, 0.0070, 0.0080, 0.0095, 0.0100, 0.0095, 0.0080}

	factory := cds.NewFactory()
	pillars, err := factory.MakeIMMCDSs(tradeDate, tenors)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	yc := curve.NewFlatYieldCurve(0.05)

	builder := calibrate.NewFastBuilder(pricer.OriginalISDA, calibrate.DefaultOptions())
	cc, err := builder.CalibrateParSpreads(pillars, spreads, yc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Credit curve:")
	for i := 0; i < cc.NumberOfKnots(); i++ {
		fmt.Printf("  %-4s t=%.6f  z=%.8f  Q=%.8f\n", tenors[i], cc.TimeAt(i), cc.ZeroRateAt(i), cc.DiscountFactor(cc.TimeAt(i)))
	}

	c, err := factory.MakeIMMCDS(tradeDate, utils.Years(5))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	res, err := builder.Pricer().Price(c, yc, cc, 0.01)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("5Y contract, 100bp coupon:")
	fmt.Printf("  Protection leg: %.10f\n", res.ProtectionLeg)
	fmt.Printf("  Premium leg:    %.10f\n", res.PremiumLeg)
	fmt.Printf("  Clean PV:       %.3e\n", res.CleanPV)
	fmt.Printf("  Par spread:     %.4fbp\n", res.ParSpread*1e4)
	fmt.Printf("  Accrued:        %d days\n", res.AccruedDays)
}
