package risk

import (
	"fmt"
	"io"

	"github.com/meenmo/isdacds/cmd/cds/internal/common"
	"github.com/meenmo/isdacds/logger"
	"github.com/meenmo/isdacds/sensitivity"
)

type TradeInput struct {
	Tenor    string  `json:"tenor" validate:"required_without=Maturity"`
	Maturity string  `json:"maturity"`
	Coupon   float64 `json:"coupon" default:"0.01" validate:"gte=0"`
	Notional float64 `json:"notional" default:"10000000" validate:"gt=0"`
}

// Input needs credit_curve.quotes: the curve is recalibrated under each bump.
type Input struct {
	common.MarketInput
	Trade TradeInput `json:"trade"`
}

// Bucket holds one risk figure in currency per basis point.
type Bucket struct {
	Label    string  `json:"label"`
	Bumped   float64 `json:"bumped"`
	Analytic float64 `json:"analytic"`
}

type Output struct {
	Notional     float64  `json:"notional"`
	ParallelCS01 Bucket   `json:"parallel_cs01"`
	BucketedCS01 []Bucket `json:"bucketed_cs01"`
	ParallelIR01 Bucket   `json:"parallel_ir01"`
	BucketedIR01 []Bucket `json:"bucketed_ir01"`
	// MarketIR01 bumps the yield instruments; only with instrument quotes.
	MarketIR01 []Bucket `json:"market_ir01,omitempty"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := common.NewFlags("cs01", stderr)
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
	var out *Output
	err = env.Metrics.Time("cs01", func() error {
		var rerr error
		out, rerr = compute(env, in)
		return rerr
	})
	if err != nil {
		env.Metrics.RecordError(err)
		env.Log.Error("risk failed", logger.Error(err))
		return common.WriteError(stdout, err.Error())
	}
	return common.WriteJSON(stdout, out)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds cs01 < input.json")
	fmt.Fprintln(w, "  cds cs01 -input input.json [-config cds.yaml] [-metrics cds.prom]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bucketed and parallel CS01 and IR01 of one trade, bumped and analytic.")
}

func compute(env *common.Env, in Input) (*Output, error) {
	m, err := in.MarketInput.Build(env)
	if err != nil {
		return nil, err
	}
	target, err := m.Contract(in.Trade.Tenor, in.Trade.Maturity)
	if err != nil {
		return nil, err
	}
	calc, err := env.Config.Calculator(env.Log.Zerolog())
	if err != nil {
		return nil, err
	}
	formula, err := env.Config.Formula()
	if err != nil {
		return nil, err
	}

	// the pillars' par spreads under the calibrated curve form an
	// equivalent par-spread market whatever the quote types were
	spreads, err := parSpreads(m, formula)
	if err != nil {
		return nil, err
	}
	mkt := sensitivity.Market{Pillars: m.Pillars, Spreads: spreads, Yield: m.Yield}
	coupon := in.Trade.Coupon
	scale := 1e-4 * in.Trade.Notional

	fdCS, err := calc.BucketedCS01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}
	anCS, err := calc.AnalyticBucketedCS01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}
	parCS, err := calc.ParallelCS01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}
	fdIR, err := calc.BucketedIR01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}
	anIR, err := calc.AnalyticBucketedIR01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}
	parIR, err := calc.ParallelIR01(target, coupon, mkt)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Notional:     in.Trade.Notional,
		ParallelCS01: Bucket{Label: "parallel", Bumped: parCS * scale, Analytic: sum(anCS) * scale},
		BucketedCS01: make([]Bucket, len(fdCS)),
		ParallelIR01: Bucket{Label: "parallel", Bumped: parIR * scale, Analytic: sum(anIR) * scale},
		BucketedIR01: make([]Bucket, len(fdIR)),
	}
	for i := range fdCS {
		out.BucketedCS01[i] = Bucket{Label: in.Credit.Quotes[i].Tenor, Bumped: fdCS[i] * scale, Analytic: anCS[i] * scale}
	}
	for i := range fdIR {
		out.BucketedIR01[i] = Bucket{Label: fmt.Sprintf("%.4g", m.Yield.TimeAt(i)), Bumped: fdIR[i] * scale, Analytic: anIR[i] * scale}
	}

	if m.YieldBuilder != nil {
		_, buckets, err := calc.MarketIR01(target, coupon, mkt, m.YieldBuilder, m.YieldRates)
		if err != nil {
			return nil, err
		}
		out.MarketIR01 = make([]Bucket, len(buckets))
		for i, v := range buckets {
			out.MarketIR01[i] = Bucket{Label: in.Yield.Instruments[i].Tenor, Bumped: v * scale}
		}
	}
	env.Log.Info("computed risk",
		logger.Float("parallel_cs01", out.ParallelCS01.Bumped),
		logger.Float("parallel_ir01", out.ParallelIR01.Bumped),
	)
	return out, nil
}
