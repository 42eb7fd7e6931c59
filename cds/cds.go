// Package cds models CDS contracts as the time-based cash-flow description
// consumed by the analytic pricer and the credit-curve calibrators.
package cds

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/schedule"
	"github.com/meenmo/isdacds/utils"
)

// ErrInvalidArgument is returned for inconsistent contract terms.
var ErrInvalidArgument = errors.New("cds: invalid argument")

// PriceType selects clean (excluding accrued premium) or dirty prices.
type PriceType int

const (
	Clean PriceType = iota
	Dirty
)

func (p PriceType) String() string {
	if p == Dirty {
		return "DIRTY"
	}
	return "CLEAN"
}

// Params holds the dates and conventions of a single CDS.
type Params struct {
	TradeDate      time.Time
	StepinDate     time.Time
	CashSettleDate time.Time
	AccStartDate   time.Time
	EndDate        time.Time

	PayAccOnDefault bool
	PaymentInterval utils.Tenor
	Stub            schedule.StubType
	ProtectStart    bool
	RecoveryRate    float64

	Convention      calendar.BusinessDayConvention
	Calendar        calendar.Calendar
	AccrualDayCount daycount.DayCount
	CurveDayCount   daycount.DayCount
}

// CDSAnalytic is an immutable CDS expressed in curve time (ACT/365F by
// default) measured from the trade date.
type CDSAnalytic struct {
	lgd             float64
	effProtStart    float64
	protEnd         float64
	cashSettleTime  float64
	coupons         []Coupon
	payAccOnDefault bool
	accruedYF       float64
	accruedDays     int
}

// terms are Params with defaults applied and dates normalized.
type terms struct {
	Params
}

func resolve(p Params) (terms, error) {
	if p.TradeDate.IsZero() || p.StepinDate.IsZero() || p.CashSettleDate.IsZero() || p.AccStartDate.IsZero() {
		return terms{}, fmt.Errorf("%w: trade, step-in, cash-settle and accrual start dates are required", ErrInvalidArgument)
	}
	p.TradeDate = utils.Normalize(p.TradeDate)
	p.StepinDate = utils.Normalize(p.StepinDate)
	p.CashSettleDate = utils.Normalize(p.CashSettleDate)
	p.AccStartDate = utils.Normalize(p.AccStartDate)
	p.EndDate = utils.Normalize(p.EndDate)
	if p.StepinDate.Before(p.TradeDate) {
		return terms{}, fmt.Errorf("%w: step-in %s before trade date %s", ErrInvalidArgument, p.StepinDate.Format(utils.DateLayout), p.TradeDate.Format(utils.DateLayout))
	}
	if p.CashSettleDate.Before(p.TradeDate) {
		return terms{}, fmt.Errorf("%w: cash settle %s before trade date %s", ErrInvalidArgument, p.CashSettleDate.Format(utils.DateLayout), p.TradeDate.Format(utils.DateLayout))
	}
	if p.RecoveryRate < 0 || p.RecoveryRate > 1 || math.IsNaN(p.RecoveryRate) {
		return terms{}, fmt.Errorf("%w: recovery rate %g outside [0, 1]", ErrInvalidArgument, p.RecoveryRate)
	}
	if p.PaymentInterval == (utils.Tenor{}) {
		p.PaymentInterval = utils.Months(3)
	}
	if p.Stub == "" {
		p.Stub = schedule.FrontShort
	}
	if p.Convention == "" {
		p.Convention = calendar.Following
	}
	if p.Calendar == nil {
		p.Calendar = calendar.Default()
	}
	if p.AccrualDayCount == nil {
		p.AccrualDayCount = daycount.ACT360
	}
	if p.CurveDayCount == nil {
		p.CurveDayCount = daycount.ACT365F
	}
	return terms{p}, nil
}

// premiumLeg builds the premium leg to end, truncated at the step-in date.
func (t terms) premiumLeg(end time.Time) (*schedule.PremiumLegSchedule, error) {
	if !end.After(t.StepinDate) {
		return nil, fmt.Errorf("%w: maturity %s not after step-in %s", ErrInvalidArgument, end.Format(utils.DateLayout), t.StepinDate.Format(utils.DateLayout))
	}
	full, err := schedule.New(schedule.Params{
		Start:        t.AccStartDate,
		End:          end,
		Tenor:        t.PaymentInterval,
		Stub:         t.Stub,
		Convention:   t.Convention,
		Calendar:     t.Calendar,
		ProtectStart: t.ProtectStart,
	})
	if err != nil {
		return nil, err
	}
	return full.Truncate(t.StepinDate)
}

// protectionStart is max(step-in, accrual start), a day earlier with
// protect-start, as signed curve time.
func (t terms) protectionStart(accStart time.Time) float64 {
	d := utils.MaxDate(t.StepinDate, accStart)
	if t.ProtectStart {
		d = d.AddDate(0, 0, -1)
	}
	return signedTime(t.CurveDayCount, t.TradeDate, d)
}

// accrued returns the accrual fraction and whole ACT/360 days from the
// period start to step-in.
func (t terms) accrued(accStart time.Time) (float64, int) {
	if !t.StepinDate.After(accStart) {
		return 0, 0
	}
	yf := t.AccrualDayCount.YearFraction(accStart, t.StepinDate)
	days := int(math.Round(daycount.ACT360.YearFraction(accStart, t.StepinDate) * 360))
	return yf, days
}

// New builds a CDS from explicit dates.
func New(p Params) (*CDSAnalytic, error) {
	t, err := resolve(p)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	sched, err := t.premiumLeg(t.EndDate)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	accStart := sched.AccStart()
	yf, days := t.accrued(accStart)
	return &CDSAnalytic{
		lgd:             1 - t.RecoveryRate,
		effProtStart:    t.protectionStart(accStart),
		protEnd:         t.CurveDayCount.YearFraction(t.TradeDate, t.EndDate),
		cashSettleTime:  t.CurveDayCount.YearFraction(t.TradeDate, t.CashSettleDate),
		coupons:         NewCoupons(t.TradeDate, sched, t.AccrualDayCount, t.CurveDayCount),
		payAccOnDefault: t.PayAccOnDefault,
		accruedYF:       yf,
		accruedDays:     days,
	}, nil
}

// FromCoupons assembles a CDS directly in curve time.
func FromCoupons(coupons []Coupon, lgd, effProtStart, protEnd, cashSettleTime, accruedYF float64, accruedDays int, payAccOnDefault bool) (*CDSAnalytic, error) {
	if len(coupons) == 0 {
		return nil, fmt.Errorf("FromCoupons: %w: no coupons", ErrInvalidArgument)
	}
	if lgd < 0 || lgd > 1 {
		return nil, fmt.Errorf("FromCoupons: %w: loss given default %g outside [0, 1]", ErrInvalidArgument, lgd)
	}
	for i := 1; i < len(coupons); i++ {
		if coupons[i].PaymentTime < coupons[i-1].PaymentTime {
			return nil, fmt.Errorf("FromCoupons: %w: coupons not sorted by payment time", ErrInvalidArgument)
		}
	}
	return &CDSAnalytic{
		lgd:             lgd,
		effProtStart:    effProtStart,
		protEnd:         protEnd,
		cashSettleTime:  cashSettleTime,
		coupons:         append([]Coupon(nil), coupons...),
		payAccOnDefault: payAccOnDefault,
		accruedYF:       accruedYF,
		accruedDays:     accruedDays,
	}, nil
}

// LGD is one minus the recovery rate.
func (c *CDSAnalytic) LGD() float64 { return c.lgd }

// EffectiveProtectionStart is the curve time protection starts.
func (c *CDSAnalytic) EffectiveProtectionStart() float64 { return c.effProtStart }

// ProtectionEnd is the curve time of maturity.
func (c *CDSAnalytic) ProtectionEnd() float64 { return c.protEnd }

// CashSettleTime is the curve time of the cash settlement date.
func (c *CDSAnalytic) CashSettleTime() float64 { return c.cashSettleTime }

// NumPayments returns the number of premium payments.
func (c *CDSAnalytic) NumPayments() int { return len(c.coupons) }

// Coupon returns coupon i.
func (c *CDSAnalytic) Coupon(i int) Coupon { return c.coupons[i] }

// Coupons returns a copy of the coupons.
func (c *CDSAnalytic) Coupons() []Coupon { return append([]Coupon(nil), c.coupons...) }

// PayAccOnDefault reports whether accrued premium is paid on default.
func (c *CDSAnalytic) PayAccOnDefault() bool { return c.payAccOnDefault }

// AccruedYearFraction is the accrual fraction from the period start to step-in.
func (c *CDSAnalytic) AccruedYearFraction() float64 { return c.accruedYF }

// AccruedDays is the accrued period in whole days.
func (c *CDSAnalytic) AccruedDays() int { return c.accruedDays }

// AccruedPremium returns the accrued premium per unit notional.
func (c *CDSAnalytic) AccruedPremium(coupon float64) float64 { return c.accruedYF * coupon }

// Expired reports whether protection has ended.
func (c *CDSAnalytic) Expired() bool { return c.protEnd <= 0 }

// WithRecoveryRate returns a copy with a different recovery rate.
func (c *CDSAnalytic) WithRecoveryRate(r float64) (*CDSAnalytic, error) {
	if r < 0 || r > 1 || math.IsNaN(r) {
		return nil, fmt.Errorf("WithRecoveryRate: %w: recovery rate %g outside [0, 1]", ErrInvalidArgument, r)
	}
	out := *c
	out.lgd = 1 - r
	return &out, nil
}

// WithOffset shifts every time by -offset: the same contract seen from a
// trade date offset later. Year fractions, LGD and accrued are unchanged.
func (c *CDSAnalytic) WithOffset(offset float64) (*CDSAnalytic, error) {
	if offset < 0 || math.IsNaN(offset) {
		return nil, fmt.Errorf("WithOffset: %w: negative offset %g", ErrInvalidArgument, offset)
	}
	out := *c
	out.effProtStart = c.effProtStart - offset
	out.protEnd = c.protEnd - offset
	out.cashSettleTime = c.cashSettleTime - offset
	out.coupons = make([]Coupon, len(c.coupons))
	for i, cp := range c.coupons {
		out.coupons[i] = cp.WithOffset(offset)
	}
	return &out, nil
}
