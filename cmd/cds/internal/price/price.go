package price

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/meenmo/isdacds/cmd/cds/internal/common"
	"github.com/meenmo/isdacds/logger"
	"github.com/meenmo/isdacds/portfolio"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/quotes"
)

// TradeInput is one contract: a standard IMM tenor, or an explicit
// maturity which wins when both are set. Coupon is a decimal.
type TradeInput struct {
	ID       string  `json:"id" validate:"required"`
	Tenor    string  `json:"tenor" validate:"required_without=Maturity"`
	Maturity string  `json:"maturity"`
	Coupon   float64 `json:"coupon" default:"0.01" validate:"gte=0"`
	Notional float64 `json:"notional" default:"10000000" validate:"gt=0"`
}

type Input struct {
	common.MarketInput
	Trades []TradeInput `json:"trades" validate:"required,min=1,dive"`
}

// Valuation adds the quoted price to the portfolio result.
type Valuation struct {
	portfolio.Valuation
	Price decimal.Decimal `json:"price"`
}

type Output struct {
	Valuations []Valuation     `json:"valuations"`
	TotalPV    decimal.Decimal `json:"total_pv"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := common.NewFlags("price", stderr)
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
	out, err := priceTrades(env, in)
	if err != nil {
		env.Metrics.RecordError(err)
		env.Log.Error("pricing failed", logger.Error(err))
		return common.WriteError(stdout, err.Error())
	}
	return common.WriteJSON(stdout, out)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds price < input.json")
	fmt.Fprintln(w, "  cds price -input input.json [-config cds.yaml] [-metrics cds.prom]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Price CDS trades off a credit curve given as a snapshot or as pillar quotes.")
}

func priceTrades(env *common.Env, in Input) (*Output, error) {
	m, err := in.MarketInput.Build(env)
	if err != nil {
		return nil, err
	}
	formula, err := env.Config.Formula()
	if err != nil {
		return nil, err
	}
	trades := make([]portfolio.Trade, len(in.Trades))
	for i, t := range in.Trades {
		c, err := m.Contract(t.Tenor, t.Maturity)
		if err != nil {
			return nil, fmt.Errorf("trade %q: %w", t.ID, err)
		}
		trades[i] = portfolio.Trade{ID: t.ID, Contract: c, Coupon: t.Coupon, Notional: t.Notional}
	}

	var vals []portfolio.Valuation
	err = env.Metrics.Time("price", func() error {
		var perr error
		vals, perr = portfolio.PriceAll(context.Background(), pricer.NewAnalyticPricer(formula), trades, m.Yield, m.Credit, env.Config.Portfolio.Workers)
		return perr
	})
	if err != nil {
		return nil, err
	}
	env.Metrics.RecordTrades(len(vals))
	env.Log.Info("priced trades", logger.Int("trades", len(vals)), logger.Int("workers", env.Config.Portfolio.Workers))

	out := &Output{Valuations: make([]Valuation, len(vals)), TotalPV: portfolio.TotalPV(trades, vals)}
	for i, v := range vals {
		out.Valuations[i] = Valuation{Valuation: v, Price: quotes.Price(v.CleanPV)}
	}
	return out, nil
}
