package cds

import (
	"fmt"
	"time"

	"github.com/meenmo/isdacds/schedule"
	"github.com/meenmo/isdacds/utils"
)

// MultiCDSAnalytic is a strip of contracts that differ only in maturity.
// The premium schedule is generated once for the longest maturity; each
// shorter contract reuses its regular coupons and adds its own terminal
// coupon.
type MultiCDSAnalytic struct {
	lgd             float64
	effProtStart    float64
	cashSettleTime  float64
	payAccOnDefault bool
	accruedYF       float64
	accruedDays     int

	standard  []Coupon
	protEnds  []float64
	terminals []Coupon
	// terminalIndex[k] is the number of regular coupons before maturity k's
	// terminal coupon.
	terminalIndex []int
}

// NewMulti builds the strip. p.EndDate is ignored; maturities must be
// strictly increasing and lie on the front-stub roll grid of the longest.
func NewMulti(p Params, maturities []time.Time) (*MultiCDSAnalytic, error) {
	if len(maturities) == 0 {
		return nil, fmt.Errorf("NewMulti: %w: no maturities", ErrInvalidArgument)
	}
	t, err := resolve(p)
	if err != nil {
		return nil, fmt.Errorf("NewMulti: %w", err)
	}
	if t.Stub != schedule.FrontShort && t.Stub != schedule.FrontLong {
		return nil, fmt.Errorf("NewMulti: %w: stub %s not supported, front stubs only", ErrInvalidArgument, t.Stub)
	}
	mats := make([]time.Time, len(maturities))
	for k, m := range maturities {
		mats[k] = utils.Normalize(m)
		if k > 0 && !mats[k].After(mats[k-1]) {
			return nil, fmt.Errorf("NewMulti: %w: maturities not strictly increasing at %d", ErrInvalidArgument, k)
		}
		if !mats[k].After(t.StepinDate) {
			return nil, fmt.Errorf("NewMulti: %w: maturity %s not after step-in %s", ErrInvalidArgument, mats[k].Format(utils.DateLayout), t.StepinDate.Format(utils.DateLayout))
		}
	}

	sched, err := t.premiumLeg(mats[len(mats)-1])
	if err != nil {
		return nil, fmt.Errorf("NewMulti: %w", err)
	}
	accStart := sched.AccStart()
	yf, days := t.accrued(accStart)
	m := &MultiCDSAnalytic{
		lgd:             1 - t.RecoveryRate,
		effProtStart:    t.protectionStart(accStart),
		cashSettleTime:  t.CurveDayCount.YearFraction(t.TradeDate, t.CashSettleDate),
		payAccOnDefault: t.PayAccOnDefault,
		accruedYF:       yf,
		accruedDays:     days,
		standard:        NewCoupons(t.TradeDate, sched, t.AccrualDayCount, t.CurveDayCount),
		protEnds:        make([]float64, len(mats)),
		terminals:       make([]Coupon, len(mats)),
		terminalIndex:   make([]int, len(mats)),
	}

	n := sched.NumPeriods()
	for k, mat := range mats {
		pay := t.Convention.Adjust(mat, t.Calendar)
		j := n - 1
		if k < len(mats)-1 {
			j = -1
			for i := 0; i < n; i++ {
				if sched.Period(i).AccEnd.Equal(pay) {
					j = i
					break
				}
			}
			if j < 0 {
				return nil, fmt.Errorf("NewMulti: %w: maturity %s is not a roll date of the schedule", ErrInvalidArgument, mat.Format(utils.DateLayout))
			}
		}
		accEnd := mat
		if t.ProtectStart {
			accEnd = mat.AddDate(0, 0, 1)
		}
		period := schedule.Period{AccStart: sched.Period(j).AccStart, AccEnd: accEnd, PayDate: pay}
		m.terminals[k] = NewCoupon(t.TradeDate, period, t.ProtectStart, t.AccrualDayCount, t.CurveDayCount)
		m.terminalIndex[k] = j
		m.protEnds[k] = t.CurveDayCount.YearFraction(t.TradeDate, mat)
	}
	return m, nil
}

// NumMaturities returns the number of contracts in the strip.
func (m *MultiCDSAnalytic) NumMaturities() int { return len(m.protEnds) }

// ProtectionEnd returns the curve time of maturity k.
func (m *MultiCDSAnalytic) ProtectionEnd(k int) float64 { return m.protEnds[k] }

// LGD is one minus the recovery rate.
func (m *MultiCDSAnalytic) LGD() float64 { return m.lgd }

// EffectiveProtectionStart is shared by every maturity.
func (m *MultiCDSAnalytic) EffectiveProtectionStart() float64 { return m.effProtStart }

// AccruedYearFraction is shared by every maturity.
func (m *MultiCDSAnalytic) AccruedYearFraction() float64 { return m.accruedYF }

// ToCDS returns maturity k as a standalone contract.
func (m *MultiCDSAnalytic) ToCDS(k int) (*CDSAnalytic, error) {
	if k < 0 || k >= len(m.protEnds) {
		return nil, fmt.Errorf("ToCDS: %w: maturity index %d out of range [0,%d)", ErrInvalidArgument, k, len(m.protEnds))
	}
	j := m.terminalIndex[k]
	coupons := make([]Coupon, j+1)
	copy(coupons, m.standard[:j])
	coupons[j] = m.terminals[k]
	return &CDSAnalytic{
		lgd:             m.lgd,
		effProtStart:    m.effProtStart,
		protEnd:         m.protEnds[k],
		cashSettleTime:  m.cashSettleTime,
		coupons:         coupons,
		payAccOnDefault: m.payAccOnDefault,
		accruedYF:       m.accruedYF,
		accruedDays:     m.accruedDays,
	}, nil
}

// ToCDSs expands the whole strip.
func (m *MultiCDSAnalytic) ToCDSs() []*CDSAnalytic {
	out := make([]*CDSAnalytic, len(m.protEnds))
	for k := range out {
		out[k], _ = m.ToCDS(k)
	}
	return out
}
