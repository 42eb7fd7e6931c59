package cds

import (
	"time"

	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/schedule"
)

// Coupon is one premium payment expressed in curve time from the trade date.
type Coupon struct {
	// EffStart and EffEnd bound the protection of the period. EffStart is
	// negative when the period started before the trade date.
	EffStart float64
	EffEnd   float64
	// PaymentTime is the curve time of the payment date.
	PaymentTime float64
	// YearFrac is the accrual day-count fraction of the period.
	YearFrac float64
	// YFRatio converts curve time to accrual time over the period.
	YFRatio float64
}

// NewCoupon converts a schedule period. With protectStart, protection runs
// from the start of the accrual start day, so both effective boundaries sit
// one day before the accrual dates.
func NewCoupon(tradeDate time.Time, p schedule.Period, protectStart bool, accrualDC, curveDC daycount.DayCount) Coupon {
	effStart, effEnd := p.AccStart, p.AccEnd
	if protectStart {
		effStart = effStart.AddDate(0, 0, -1)
		effEnd = effEnd.AddDate(0, 0, -1)
	}
	yf := accrualDC.YearFraction(p.AccStart, p.AccEnd)
	return Coupon{
		EffStart:    signedTime(curveDC, tradeDate, effStart),
		EffEnd:      signedTime(curveDC, tradeDate, effEnd),
		PaymentTime: signedTime(curveDC, tradeDate, p.PayDate),
		YearFrac:    yf,
		YFRatio:     yf / curveDC.YearFraction(p.AccStart, p.AccEnd),
	}
}

// NewCoupons converts every period of a schedule.
func NewCoupons(tradeDate time.Time, s *schedule.PremiumLegSchedule, accrualDC, curveDC daycount.DayCount) []Coupon {
	out := make([]Coupon, s.NumPeriods())
	for i := range out {
		out[i] = NewCoupon(tradeDate, s.Period(i), s.ProtectStart(), accrualDC, curveDC)
	}
	return out
}

// WithOffset re-expresses the coupon relative to a trade date offset later.
func (c Coupon) WithOffset(offset float64) Coupon {
	return Coupon{
		EffStart:    c.EffStart - offset,
		EffEnd:      c.EffEnd - offset,
		PaymentTime: c.PaymentTime - offset,
		YearFrac:    c.YearFrac,
		YFRatio:     c.YFRatio,
	}
}

// signedTime is dc(from, to), negated when to is before from.
func signedTime(dc daycount.DayCount, from, to time.Time) float64 {
	if to.Before(from) {
		return -dc.YearFraction(to, from)
	}
	return dc.YearFraction(from, to)
}
