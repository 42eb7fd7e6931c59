package portfolio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/utils"
)

var tradeDate = utils.Date(2011, time.June, 13)

func testTrades(t *testing.T, n int) []Trade {
	t.Helper()
	f := cds.NewFactory()
	trades := make([]Trade, n)
	for i := range trades {
		c, err := f.MakeIMMCDS(tradeDate, utils.Months(6*(i+1)))
		if err != nil {
			t.Fatalf("MakeIMMCDS: %v", err)
		}
		coupon := 0.01
		if i%2 == 1 {
			coupon = 0.05
		}
		trades[i] = Trade{ID: fmt.Sprintf("T%02d", i), Contract: c, Coupon: coupon, Notional: 10_000_000}
	}
	return trades
}

func TestPriceAllMatchesSequential(t *testing.T) {
	t.Parallel()

	trades := testTrades(t, 20)
	yc := curve.NewFlatYieldCurve(0.03)
	cc := curve.NewFlatCreditCurve(0.02)
	p := pricer.NewAnalyticPricer(pricer.MarkitFix)

	for _, workers := range []int{1, 3, 64} {
		vals, err := PriceAll(context.Background(), p, trades, yc, cc, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i, tr := range trades {
			want, err := p.Price(tr.Contract, yc, cc, tr.Coupon)
			if err != nil {
				t.Fatalf("Price: %v", err)
			}
			if vals[i].ID != tr.ID || vals[i].Result != want {
				t.Fatalf("workers=%d trade %s: got %+v, want %+v", workers, tr.ID, vals[i].Result, want)
			}
		}
	}
}

func TestPriceAllFailsWholeBatch(t *testing.T) {
	t.Parallel()

	trades := testTrades(t, 4)
	expired, err := trades[0].Contract.WithOffset(5)
	if err != nil {
		t.Fatalf("WithOffset: %v", err)
	}
	trades[2].Contract = expired
	p := pricer.NewAnalyticPricer(pricer.MarkitFix)
	yc, cc := curve.NewFlatYieldCurve(0.03), curve.NewFlatCreditCurve(0.02)

	vals, err := PriceAll(context.Background(), p, trades, yc, cc, 2)
	if !errors.Is(err, pricer.ErrExpired) || vals != nil {
		t.Fatalf("expected ErrExpired and no results, got %v, %v", vals, err)
	}
	if _, err := PriceAll(context.Background(), p, trades, yc, cc, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PriceAll(ctx, p, testTrades(t, 3), yc, cc, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTotalPV(t *testing.T) {
	t.Parallel()

	trades := testTrades(t, 3)
	p := pricer.NewAnalyticPricer(pricer.MarkitFix)
	yc, cc := curve.NewFlatYieldCurve(0.03), curve.NewFlatCreditCurve(0.02)
	vals, err := PriceAll(context.Background(), p, trades, yc, cc, 2)
	if err != nil {
		t.Fatalf("PriceAll: %v", err)
	}
	want := 0.0
	for i, v := range vals {
		want += trades[i].Notional * v.DirtyPV
	}
	got, _ := TotalPV(trades, vals).Float64()
	if d := got - want; d > 0.005 || d < -0.005 {
		t.Fatalf("TotalPV %v, want %.2f", got, want)
	}
}
