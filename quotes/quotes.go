// Package quotes converts between the market quoting conventions of CDS:
// par spread, quoted (flat) spread and points upfront.
package quotes

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/pricer"
)

// ErrUnknownQuote is returned for Quote implementations outside this package.
var ErrUnknownQuote = errors.New("quotes: unknown quote type")

// Quote is a market quote for one pillar contract.
type Quote interface {
	// RunningCoupon is the spread paid on the premium leg.
	RunningCoupon() float64
	String() string
}

// ParSpread quotes the spread at which a contract has zero upfront.
type ParSpread struct {
	Spread float64 `json:"spread"`
}

// QuotedSpread is a standard-coupon contract quoted through the spread of a
// flat credit curve that reprices it.
type QuotedSpread struct {
	Coupon float64 `json:"coupon"`
	Spread float64 `json:"spread"`
}

// PointsUpFront is a standard-coupon contract quoted by its clean upfront
// fee per unit notional, paid by the protection buyer.
type PointsUpFront struct {
	Coupon float64 `json:"coupon"`
	PUF    float64 `json:"puf"`
}

func (q ParSpread) RunningCoupon() float64     { return q.Spread }
func (q QuotedSpread) RunningCoupon() float64  { return q.Coupon }
func (q PointsUpFront) RunningCoupon() float64 { return q.Coupon }

func (q ParSpread) String() string { return fmt.Sprintf("ParSpread(%.2fbp)", q.Spread*1e4) }
func (q QuotedSpread) String() string {
	return fmt.Sprintf("QuotedSpread(coupon %.2fbp, spread %.2fbp)", q.Coupon*1e4, q.Spread*1e4)
}
func (q PointsUpFront) String() string {
	return fmt.Sprintf("PointsUpFront(coupon %.2fbp, puf %.4f%%)", q.Coupon*1e4, q.PUF*100)
}

// Converter translates quotes with a calibrator and its pricer.
type Converter struct {
	builder *calibrate.FastBuilder
}

// NewConverter returns a converter on builder.
func NewConverter(builder *calibrate.FastBuilder) *Converter {
	return &Converter{builder: builder}
}

func (c *Converter) analytic() *pricer.AnalyticPricer { return c.builder.Pricer() }

// flatCurve is the single-node credit curve that prices contract at par
// spread.
func (c *Converter) flatCurve(contract *cds.CDSAnalytic, spread float64, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	return c.builder.CalibrateParSpreads([]*cds.CDSAnalytic{contract}, []float64{spread}, yc)
}

// PUFFromQuotedSpread is the clean upfront of contract paying coupon when
// the credit curve is flat at quotedSpread.
func (c *Converter) PUFFromQuotedSpread(contract *cds.CDSAnalytic, coupon, quotedSpread float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := c.flatCurve(contract, quotedSpread, yc)
	if err != nil {
		return 0, fmt.Errorf("PUFFromQuotedSpread: %w", err)
	}
	return c.analytic().PV(contract, yc, cc, coupon, cds.Clean), nil
}

// QuotedSpreadFromPUF inverts PUFFromQuotedSpread.
func (c *Converter) QuotedSpreadFromPUF(contract *cds.CDSAnalytic, coupon, puf float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := c.builder.Calibrate([]*cds.CDSAnalytic{contract}, []float64{coupon}, []float64{puf}, yc)
	if err != nil {
		return 0, fmt.Errorf("QuotedSpreadFromPUF: %w", err)
	}
	s, err := c.analytic().ParSpread(contract, yc, cc)
	if err != nil {
		return 0, fmt.Errorf("QuotedSpreadFromPUF: %w", err)
	}
	return s, nil
}

// ToPointsUpFront expresses q as points upfront on contract. A par spread
// becomes a zero upfront at a coupon equal to the spread.
func (c *Converter) ToPointsUpFront(contract *cds.CDSAnalytic, q Quote, yc *curve.YieldCurve) (PointsUpFront, error) {
	switch v := q.(type) {
	case ParSpread:
		return PointsUpFront{Coupon: v.Spread}, nil
	case PointsUpFront:
		return v, nil
	case QuotedSpread:
		puf, err := c.PUFFromQuotedSpread(contract, v.Coupon, v.Spread, yc)
		if err != nil {
			return PointsUpFront{}, err
		}
		return PointsUpFront{Coupon: v.Coupon, PUF: puf}, nil
	}
	return PointsUpFront{}, fmt.Errorf("ToPointsUpFront: %w: %T", ErrUnknownQuote, q)
}

// ToQuotedSpread expresses q as a quoted spread at coupon.
func (c *Converter) ToQuotedSpread(contract *cds.CDSAnalytic, q Quote, coupon float64, yc *curve.YieldCurve) (QuotedSpread, error) {
	if v, ok := q.(QuotedSpread); ok && v.Coupon == coupon {
		return v, nil
	}
	p, err := c.ToPointsUpFront(contract, q, yc)
	if err != nil {
		return QuotedSpread{}, err
	}
	if p.Coupon != coupon {
		// move the upfront onto the new coupon at the same flat curve
		cc, err := c.builder.Calibrate([]*cds.CDSAnalytic{contract}, []float64{p.Coupon}, []float64{p.PUF}, yc)
		if err != nil {
			return QuotedSpread{}, fmt.Errorf("ToQuotedSpread: %w", err)
		}
		p = PointsUpFront{Coupon: coupon, PUF: c.analytic().PV(contract, yc, cc, coupon, cds.Clean)}
	}
	s, err := c.QuotedSpreadFromPUF(contract, p.Coupon, p.PUF, yc)
	if err != nil {
		return QuotedSpread{}, err
	}
	return QuotedSpread{Coupon: coupon, Spread: s}, nil
}

// CalibrateCurve bootstraps a credit curve from mixed quotes. Quoted
// spreads are first turned into upfronts on their own flat curves.
func (c *Converter) CalibrateCurve(pillars []*cds.CDSAnalytic, qs []Quote, yc *curve.YieldCurve) (*curve.CreditCurve, error) {
	if len(pillars) != len(qs) {
		return nil, fmt.Errorf("CalibrateCurve: %w: %d pillars, %d quotes", calibrate.ErrInvalidArgument, len(pillars), len(qs))
	}
	coupons := make([]float64, len(qs))
	pufs := make([]float64, len(qs))
	for i, q := range qs {
		p, err := c.ToPointsUpFront(pillars[i], q, yc)
		if err != nil {
			return nil, fmt.Errorf("CalibrateCurve: pillar %d: %w", i, err)
		}
		coupons[i], pufs[i] = p.Coupon, p.PUF
	}
	return c.builder.Calibrate(pillars, coupons, pufs, yc)
}

// CashSettlement is the amount the protection buyer pays at cash settle:
// notional times the clean upfront, less the accrued premium the seller
// refunds. Rounded to cents.
func CashSettlement(notional, puf, accrued float64) decimal.Decimal {
	n := decimal.NewFromFloat(notional)
	return n.Mul(decimal.NewFromFloat(puf).Sub(decimal.NewFromFloat(accrued))).Round(2)
}

// Price is the bond-style quoted price 100*(1 - puf).
func Price(puf float64) decimal.Decimal {
	return decimal.NewFromInt(100).Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(puf)))
}
