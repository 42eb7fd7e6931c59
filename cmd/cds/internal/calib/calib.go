package calib

import (
	"fmt"
	"io"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/cmd/cds/internal/common"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/logger"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/utils"
)

// Input is the calibrate request. credit_curve.quotes is required.
type Input struct {
	common.MarketInput
}

// Pillar reports how one calibration instrument reprices.
type Pillar struct {
	Tenor     string  `json:"tenor"`
	Maturity  string  `json:"maturity"`
	Quote     string  `json:"quote"`
	ParSpread float64 `json:"par_spread"`
	// Residual is the clean PV at the quote's running coupon less its
	// upfront; zero up to solver tolerance.
	Residual float64 `json:"residual"`
}

type Output struct {
	TradeDate   string         `json:"trade_date"`
	YieldCurve  curve.Snapshot `json:"yield_curve"`
	CreditCurve curve.Snapshot `json:"credit_curve"`
	Pillars     []Pillar       `json:"pillars"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := common.NewFlags("calibrate", stderr)
	if stop, code := flags.Parse(args, stdin, usage, stderr); stop {
		return code
	}
	env, err := flags.Open(stderr)
	if err != nil {
		return common.WriteError(stdout, err.Error())
	}
	defer env.Close()

	b, err := flags.ReadInput(stdin)
	if err != nil {
		return common.WriteError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}
	var in Input
	if err := common.Decode(b, &in); err != nil {
		return common.WriteError(stdout, err.Error())
	}
	if len(in.Credit.Quotes) == 0 {
		return common.WriteError(stdout, "credit_curve.quotes is required")
	}
	out, err := calibrate(env, in)
	if err != nil {
		env.Log.Error("calibration failed", logger.Error(err))
		return common.WriteError(stdout, err.Error())
	}
	env.Log.Info("calibrated credit curve", logger.Int("pillars", len(out.Pillars)))
	return common.WriteJSON(stdout, out)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds calibrate < input.json")
	fmt.Fprintln(w, "  cds calibrate -input input.json [-config cds.yaml] [-metrics cds.prom]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bootstrap a credit curve from pillar quotes and report how each pillar reprices.")
}

func calibrate(env *common.Env, in Input) (*Output, error) {
	m, err := in.MarketInput.Build(env)
	if err != nil {
		return nil, err
	}
	formula, err := env.Config.Formula()
	if err != nil {
		return nil, err
	}
	p := pricer.NewAnalyticPricer(formula)

	out := &Output{
		TradeDate:   m.TradeDate.Format(utils.DateLayout),
		YieldCurve:  m.Yield.Snapshot(),
		CreditCurve: m.Credit.Snapshot(),
		Pillars:     make([]Pillar, len(m.Pillars)),
	}
	for i, c := range m.Pillars {
		tenor, err := utils.ParseTenor(in.Credit.Quotes[i].Tenor)
		if err != nil {
			return nil, err
		}
		par, err := p.ParSpread(c, m.Yield, m.Credit)
		if err != nil {
			return nil, fmt.Errorf("pillar %d: %w", i, err)
		}
		q := m.Quotes[i]
		coupon := q.RunningCoupon()
		want, err := m.Converter.ToPointsUpFront(c, q, m.Yield)
		if err != nil {
			return nil, fmt.Errorf("pillar %d: %w", i, err)
		}
		out.Pillars[i] = Pillar{
			Tenor:     tenor.String(),
			Maturity:  m.Factory.IMMMaturity(m.TradeDate, tenor).Format(utils.DateLayout),
			Quote:     q.String(),
			ParSpread: par,
			Residual:  p.PV(c, m.Yield, m.Credit, coupon, cds.Clean) - want.PUF,
		}
	}
	return out, nil
}
