package bond

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cashflow is a single dated cash payment for a bond.
//
// Amounts are in currency units, not price-per-100.
type Cashflow struct {
	Date      time.Time `json:"date"`
	Coupon    float64   `json:"coupon"`
	Principal float64   `json:"principal"`
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// CashflowCents is a cash flow in integer minor units, as paying-agent
// feeds report them.
type CashflowCents struct {
	Date           time.Time
	CouponCents    int64
	PrincipalCents int64
}

// Amount is the total payment in currency units, exact.
func (c CashflowCents) Amount() decimal.Decimal {
	return decimal.New(c.CouponCents+c.PrincipalCents, -2)
}

func (c CashflowCents) ToCashflow() Cashflow {
	return Cashflow{
		Date:      c.Date,
		Coupon:    float64(c.CouponCents) / 100,
		Principal: float64(c.PrincipalCents) / 100,
	}
}

func ToCashflows(in []CashflowCents) []Cashflow {
	out := make([]Cashflow, 0, len(in))
	for _, cf := range in {
		out = append(out, cf.ToCashflow())
	}
	return out
}
