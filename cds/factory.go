package cds

import (
	"fmt"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/daycount"
	"github.com/meenmo/isdacds/imm"
	"github.com/meenmo/isdacds/schedule"
	"github.com/meenmo/isdacds/utils"
)

// Factory builds standard contracts from a trade date. The zero value is
// not usable; start from NewFactory.
type Factory struct {
	// StepinDays is the calendar-day step-in lag (T+1).
	StepinDays int
	// CashSettleDays is the business-day settlement lag (T+3).
	CashSettleDays  int
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

// NewFactory returns the standard North American conventions: T+1 step-in,
// T+3 settlement, quarterly ACT/360 premium, protect-start, 40% recovery.
func NewFactory() Factory {
	return Factory{
		StepinDays:      1,
		CashSettleDays:  3,
		PayAccOnDefault: true,
		PaymentInterval: utils.Months(3),
		Stub:            schedule.FrontShort,
		ProtectStart:    true,
		RecoveryRate:    0.4,
		Convention:      calendar.Following,
		Calendar:        calendar.Default(),
		AccrualDayCount: daycount.ACT360,
		CurveDayCount:   daycount.ACT365F,
	}
}

// WithRecoveryRate returns a copy of the factory with recovery r.
func (f Factory) WithRecoveryRate(r float64) Factory {
	f.RecoveryRate = r
	return f
}

// WithCalendar returns a copy of the factory on calendar c.
func (f Factory) WithCalendar(c calendar.Calendar) Factory {
	f.Calendar = c
	return f
}

// StepinDate is the trade date plus the step-in lag.
func (f Factory) StepinDate(trade time.Time) time.Time {
	return utils.Normalize(trade).AddDate(0, 0, f.StepinDays)
}

// CashSettleDate is the trade date plus the settlement lag in business days.
func (f Factory) CashSettleDate(trade time.Time) time.Time {
	return calendar.AddBusinessDays(f.Calendar, utils.Normalize(trade), f.CashSettleDays)
}

// IMMAccrualStart is the adjusted IMM date strictly before step-in.
func (f Factory) IMMAccrualStart(trade time.Time) time.Time {
	return f.Convention.Adjust(imm.PrevIMMDate(f.StepinDate(trade)), f.Calendar)
}

// IMMMaturity is the first IMM date after trade plus tenor.
func (f Factory) IMMMaturity(trade time.Time, tenor utils.Tenor) time.Time {
	return tenor.AddTo(imm.NextIMMDate(utils.Normalize(trade)))
}

func (f Factory) params(trade, accStart, maturity time.Time) Params {
	return Params{
		TradeDate:       trade,
		StepinDate:      f.StepinDate(trade),
		CashSettleDate:  f.CashSettleDate(trade),
		AccStartDate:    accStart,
		EndDate:         maturity,
		PayAccOnDefault: f.PayAccOnDefault,
		PaymentInterval: f.PaymentInterval,
		Stub:            f.Stub,
		ProtectStart:    f.ProtectStart,
		RecoveryRate:    f.RecoveryRate,
		Convention:      f.Convention,
		Calendar:        f.Calendar,
		AccrualDayCount: f.AccrualDayCount,
		CurveDayCount:   f.CurveDayCount,
	}
}

// MakeCDS builds a contract with explicit accrual start and maturity.
func (f Factory) MakeCDS(trade, accStart, maturity time.Time) (*CDSAnalytic, error) {
	return New(f.params(trade, accStart, maturity))
}

// MakeIMMCDS builds a standard contract: accrual from the previous IMM date,
// maturity tenor after the next IMM date.
func (f Factory) MakeIMMCDS(trade time.Time, tenor utils.Tenor) (*CDSAnalytic, error) {
	c, err := f.MakeCDS(trade, f.IMMAccrualStart(trade), f.IMMMaturity(trade, tenor))
	if err != nil {
		return nil, fmt.Errorf("MakeIMMCDS %s: %w", tenor, err)
	}
	return c, nil
}

// MakeIMMCDSs builds one standard contract per tenor.
func (f Factory) MakeIMMCDSs(trade time.Time, tenors []utils.Tenor) ([]*CDSAnalytic, error) {
	out := make([]*CDSAnalytic, len(tenors))
	for i, tenor := range tenors {
		c, err := f.MakeIMMCDS(trade, tenor)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// MakeForwardStartingIMMCDS builds the standard contract as it will be
// traded on forwardDate, expressed in time from trade.
func (f Factory) MakeForwardStartingIMMCDS(trade, forwardDate time.Time, tenor utils.Tenor) (*CDSAnalytic, error) {
	trade, forwardDate = utils.Normalize(trade), utils.Normalize(forwardDate)
	if forwardDate.Before(trade) {
		return nil, fmt.Errorf("MakeForwardStartingIMMCDS: %w: forward date %s before trade date %s", ErrInvalidArgument, forwardDate.Format(utils.DateLayout), trade.Format(utils.DateLayout))
	}
	p := f.params(forwardDate, f.IMMAccrualStart(forwardDate), f.IMMMaturity(forwardDate, tenor))
	p.TradeDate = trade
	c, err := New(p)
	if err != nil {
		return nil, fmt.Errorf("MakeForwardStartingIMMCDS %s: %w", tenor, err)
	}
	return c, nil
}

// MakeMultiIMMCDS builds one multi-maturity contract for the given tenors,
// which must be whole multiples of the payment interval.
func (f Factory) MakeMultiIMMCDS(trade time.Time, tenors []utils.Tenor) (*MultiCDSAnalytic, error) {
	maturities := make([]time.Time, len(tenors))
	for i, tenor := range tenors {
		maturities[i] = f.IMMMaturity(trade, tenor)
	}
	return NewMulti(f.params(trade, f.IMMAccrualStart(trade), time.Time{}), maturities)
}
