// Package bond prices fixed-coupon bonds issued by a CDS reference entity.
//
// A bond is priced on the CDS cash-flow engine: its payments are the
// coupons of a premium leg without accrual on default, and the recovery it
// pays on default is a protection leg whose loss given default is the
// recovery rate. Prices are per unit notional.
package bond

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/rootfind"
	"github.com/meenmo/isdacds/utils"
)

var (
	// ErrOutOfRangeQuote is wrapped by every *OutOfRangeError.
	ErrOutOfRangeQuote = errors.New("bond: quote out of range")
	ErrInvalidArgument = errors.New("bond: invalid argument")
)

// OutOfRangeError reports a price no hazard rate can produce.
type OutOfRangeError struct {
	// Price is the dirty price asked for.
	Price float64
	// Bound is the violated limit and Limit names it.
	Bound float64
	Limit string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("bond: dirty price %g is beyond the %s %g", e.Price, e.Limit, e.Bound)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRangeQuote }

// BondAnalytic is a bond in curve time from the trade date.
type BondAnalytic struct {
	paymentTimes []float64
	amounts      []float64
	recovery     float64
	accrued      float64
	engine       *cds.CDSAnalytic
}

// NewBondAnalytic builds a bond from payment times (increasing, positive)
// and amounts per unit notional. accrued is the accrued interest per unit
// notional at the trade date.
func NewBondAnalytic(paymentTimes, amounts []float64, recovery, accrued float64) (*BondAnalytic, error) {
	n := len(paymentTimes)
	if n == 0 || len(amounts) != n {
		return nil, fmt.Errorf("NewBondAnalytic: %w: %d payment times, %d amounts", ErrInvalidArgument, n, len(amounts))
	}
	if recovery < 0 || recovery > 1 || math.IsNaN(recovery) {
		return nil, fmt.Errorf("NewBondAnalytic: %w: recovery rate %g outside [0, 1]", ErrInvalidArgument, recovery)
	}
	coupons := make([]cds.Coupon, n)
	prev := 0.0
	for i, t := range paymentTimes {
		if t <= prev {
			return nil, fmt.Errorf("NewBondAnalytic: %w: payment %d at %g is not after %g", ErrInvalidArgument, i, t, prev)
		}
		// the amount rides in YearFrac so the annuity is sum(amount * P * Q)
		coupons[i] = cds.Coupon{EffStart: prev, EffEnd: t, PaymentTime: t, YearFrac: amounts[i], YFRatio: 1}
		prev = t
	}
	engine, err := cds.FromCoupons(coupons, recovery, 0, paymentTimes[n-1], 0, 0, 0, false)
	if err != nil {
		return nil, fmt.Errorf("NewBondAnalytic: %w", err)
	}
	return &BondAnalytic{
		paymentTimes: append([]float64(nil), paymentTimes...),
		amounts:      append([]float64(nil), amounts...),
		recovery:     recovery,
		accrued:      accrued,
		engine:       engine,
	}, nil
}

// FromCashflows converts dated cash flows in currency units. Flows on or
// before trade are dropped.
func FromCashflows(trade time.Time, cfs []Cashflow, notional, recovery, accrued float64, dc daycount.DayCount) (*BondAnalytic, error) {
	if notional <= 0 {
		return nil, fmt.Errorf("FromCashflows: %w: notional must be positive", ErrInvalidArgument)
	}
	var times, amounts []float64
	for _, cf := range cfs {
		if !cf.Date.After(trade) {
			continue
		}
		times = append(times, dc.YearFraction(trade, cf.Date))
		amounts = append(amounts, cf.Amount()/notional)
	}
	return NewBondAnalytic(times, amounts, recovery, accrued)
}

// FromCashflowCents is FromCashflows for flows in minor units. Each amount
// is divided by the notional in decimal, so the per-unit amounts carry a
// single rounding.
func FromCashflowCents(trade time.Time, cfs []CashflowCents, notionalCents int64, recovery, accrued float64, dc daycount.DayCount) (*BondAnalytic, error) {
	if notionalCents <= 0 {
		return nil, fmt.Errorf("FromCashflowCents: %w: notional must be positive", ErrInvalidArgument)
	}
	notional := decimal.New(notionalCents, -2)
	var times, amounts []float64
	for _, cf := range cfs {
		if !cf.Date.After(trade) {
			continue
		}
		amount, _ := cf.Amount().Div(notional).Float64()
		times = append(times, dc.YearFraction(trade, cf.Date))
		amounts = append(amounts, amount)
	}
	return NewBondAnalytic(times, amounts, recovery, accrued)
}

// FixedRateCashflows generates the remaining flows of a bullet bond paying
// couponRate (decimal) frequency times a year, rolled back from maturity.
// It also returns the accrued interest per unit notional at settlement,
// pro rata in actual days over the current period.
func FixedRateCashflows(settlement, maturity time.Time, couponRate float64, frequency int, notional float64) ([]Cashflow, float64, error) {
	if frequency <= 0 || 12%frequency != 0 {
		return nil, 0, fmt.Errorf("FixedRateCashflows: %w: frequency %d must divide 12", ErrInvalidArgument, frequency)
	}
	if !maturity.After(settlement) {
		return nil, 0, fmt.Errorf("FixedRateCashflows: %w: maturity %s not after settlement %s", ErrInvalidArgument, maturity.Format(utils.DateLayout), settlement.Format(utils.DateLayout))
	}
	monthsPerPeriod := 12 / frequency
	var dates []time.Time
	prevCoupon := maturity
	for k := 0; prevCoupon.After(settlement); k++ {
		dates = append([]time.Time{prevCoupon}, dates...)
		prevCoupon = utils.AddMonth(maturity, -(k+1)*monthsPerPeriod)
	}
	coupon := couponRate / float64(frequency)
	cfs := make([]Cashflow, len(dates))
	for i, d := range dates {
		cfs[i] = Cashflow{Date: d, Coupon: coupon * notional}
	}
	cfs[len(cfs)-1].Principal = notional

	daysAccrued := daycount.Days(prevCoupon, settlement)
	daysPeriod := daycount.Days(prevCoupon, dates[0])
	return cfs, coupon * daysAccrued / daysPeriod, nil
}

// NumPayments returns the number of remaining payments.
func (b *BondAnalytic) NumPayments() int { return len(b.paymentTimes) }

// PaymentTime returns the curve time of payment i.
func (b *BondAnalytic) PaymentTime(i int) float64 { return b.paymentTimes[i] }

// Amount returns payment i per unit notional.
func (b *BondAnalytic) Amount(i int) float64 { return b.amounts[i] }

// Recovery returns the recovery rate.
func (b *BondAnalytic) Recovery() float64 { return b.recovery }

// Accrued returns the accrued interest per unit notional.
func (b *BondAnalytic) Accrued() float64 { return b.accrued }

// Maturity returns the curve time of the final payment.
func (b *BondAnalytic) Maturity() float64 { return b.paymentTimes[len(b.paymentTimes)-1] }

// Pricer values bonds with an analytic CDS pricer.
type Pricer struct {
	analytic *pricer.AnalyticPricer
}

// NewPricer returns a bond pricer. The accrual-on-default formula only
// fixes the integration scheme; bonds accrue nothing on default.
func NewPricer(formula pricer.AccrualOnDefaultFormula) *Pricer {
	return &Pricer{analytic: pricer.NewAnalyticPricer(formula)}
}

// Price values the bond off a credit curve.
func (p *Pricer) Price(b *BondAnalytic, yc *curve.YieldCurve, cc *curve.CreditCurve, pt cds.PriceType) float64 {
	dirty := p.analytic.Annuity(b.engine, yc, cc, cds.Dirty) + p.analytic.ProtectionLeg(b.engine, yc, cc)
	if pt == cds.Clean {
		return dirty - b.accrued
	}
	return dirty
}

// PriceForHazardRate values the bond off a flat hazard rate h.
func (p *Pricer) PriceForHazardRate(b *BondAnalytic, yc *curve.YieldCurve, h float64, pt cds.PriceType) float64 {
	return p.Price(b, yc, curve.NewFlatCreditCurve(h), pt)
}

// priceAndDerivative returns the dirty price at flat hazard h and its
// derivative with respect to h.
func (p *Pricer) priceAndDerivative(b *BondAnalytic, yc *curve.YieldCurve, h float64) (float64, float64) {
	cc := curve.NewFlatCreditCurve(h)
	price := p.Price(b, yc, cc, cds.Dirty)
	dAnn, _ := p.analytic.AnnuityCreditSensitivity(b.engine, yc, cc, 0)
	dProt, _ := p.analytic.ProtectionLegCreditSensitivity(b.engine, yc, cc, 0)
	return price, dAnn + dProt
}

// HazardRate returns the flat hazard rate that reprices the bond to price.
// Attainable dirty prices lie strictly between the recovery rate and the
// risk-free price; anything else is an *OutOfRangeError.
func (p *Pricer) HazardRate(b *BondAnalytic, yc *curve.YieldCurve, price float64, pt cds.PriceType) (float64, error) {
	dirty := price
	if pt == cds.Clean {
		dirty += b.accrued
	}
	riskFree := p.PriceForHazardRate(b, yc, 0, cds.Dirty)
	if dirty >= riskFree {
		return 0, fmt.Errorf("HazardRate: %w", &OutOfRangeError{Price: dirty, Bound: riskFree, Limit: "risk-free price"})
	}
	if dirty <= b.recovery {
		return 0, fmt.Errorf("HazardRate: %w", &OutOfRangeError{Price: dirty, Bound: b.recovery, Limit: "recovery floor"})
	}

	fn := func(h float64) (float64, float64) {
		v, dv := p.priceAndDerivative(b, yc, h)
		return v - dirty, dv
	}
	value := func(h float64) float64 {
		v, _ := fn(h)
		return v
	}
	// first-order guess from the price drop over the loss-weighted duration
	guess := (riskFree - dirty) / ((1 - b.recovery) * b.Maturity() * riskFree)
	if !(guess > 0) || math.IsInf(guess, 0) {
		guess = 0.01
	}
	opts := rootfind.DefaultOptions
	lo, hi, err := rootfind.Bracket(value, 0, 2*guess, 0, opts)
	if err != nil {
		return 0, fmt.Errorf("HazardRate: %w", err)
	}
	h, err := rootfind.Newton(fn, guess, lo, hi, opts)
	if err != nil {
		return 0, fmt.Errorf("HazardRate: %w", err)
	}
	return h, nil
}
