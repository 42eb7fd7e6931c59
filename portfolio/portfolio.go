// Package portfolio prices many CDS trades against one pair of curves.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/quotes"
)

var ErrInvalidArgument = errors.New("portfolio: invalid argument")

// Trade is one contract held with a running coupon and notional.
type Trade struct {
	ID       string
	Contract *cds.CDSAnalytic
	Coupon   float64
	Notional float64
}

// Valuation is the per-unit pricing result of a trade plus its cash
// settlement amount in currency units.
type Valuation struct {
	ID string `json:"id"`
	pricer.Result
	CashSettlement decimal.Decimal `json:"cash_settlement"`
}

// PriceAll prices trades on at most workers goroutines. The curves are
// shared read-only. The first failure cancels the rest and no results are
// returned.
func PriceAll(ctx context.Context, p *pricer.AnalyticPricer, trades []Trade, yc *curve.YieldCurve, cc *curve.CreditCurve, workers int) ([]Valuation, error) {
	if workers < 1 {
		return nil, fmt.Errorf("PriceAll: %w: %d workers", ErrInvalidArgument, workers)
	}
	if yc == nil || cc == nil {
		return nil, fmt.Errorf("PriceAll: %w: missing curve", ErrInvalidArgument)
	}
	out := make([]Valuation, len(trades))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, tr := range trades {
		i, tr := i, tr
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if tr.Contract == nil {
				return fmt.Errorf("trade %q: %w: no contract", tr.ID, ErrInvalidArgument)
			}
			res, err := p.Price(tr.Contract, yc, cc, tr.Coupon)
			if err != nil {
				return fmt.Errorf("trade %q: %w", tr.ID, err)
			}
			out[i] = Valuation{
				ID:             tr.ID,
				Result:         res,
				CashSettlement: quotes.CashSettlement(tr.Notional, res.CleanPV, res.Accrued),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("PriceAll: %w", err)
	}
	return out, nil
}

// TotalPV sums notional-weighted dirty PVs.
func TotalPV(trades []Trade, vals []Valuation) decimal.Decimal {
	total := decimal.Zero
	for i, v := range vals {
		total = total.Add(decimal.NewFromFloat(trades[i].Notional * v.DirtyPV))
	}
	return total.Round(2)
}
