package common

import (
	"fmt"
	"time"

	"github.com/meenmo/isdacds/calendar"
	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/quotes"
	"github.com/meenmo/isdacds/utils"
)

// Instrument is one yield-curve quote. Rate is a decimal.
type Instrument struct {
	Type  string  `json:"type" validate:"required"`
	Tenor string  `json:"tenor" validate:"required"`
	Rate  float64 `json:"rate"`
}

// YieldInput is either knot times and zero rates or instrument quotes.
type YieldInput struct {
	Times       []float64    `json:"times"`
	Rates       []float64    `json:"rates"`
	SpotDate    string       `json:"spot_date"`
	Instruments []Instrument `json:"instruments" validate:"dive"`
}

// QuoteInput is one pillar quote. Rates are decimals.
type QuoteInput struct {
	Tenor  string  `json:"tenor" validate:"required"`
	Type   string  `json:"type" default:"par_spread" validate:"oneof=par_spread quoted_spread points_upfront"`
	Spread float64 `json:"spread"`
	Coupon float64 `json:"coupon"`
	PUF    float64 `json:"puf"`
}

// CreditInput is either a saved curve snapshot or pillar quotes.
type CreditInput struct {
	Curve  *curve.Snapshot `json:"curve"`
	Quotes []QuoteInput    `json:"quotes" validate:"dive"`
}

// MarketInput is the market block shared by every subcommand. A zero
// recovery is read as unset and defaults to 40%.
type MarketInput struct {
	TradeDate string      `json:"trade_date" validate:"required"`
	Recovery  float64     `json:"recovery" default:"0.4" validate:"gte=0,lt=1"`
	Calendar  string      `json:"calendar" default:"WEEKENDS"`
	Yield     YieldInput  `json:"yield_curve"`
	Credit    CreditInput `json:"credit_curve"`
}

// Market is a resolved MarketInput.
type Market struct {
	TradeDate time.Time
	Factory   cds.Factory
	Yield     *curve.YieldCurve
	Credit    *curve.CreditCurve
	// Pillars and Quotes are set when the credit curve was calibrated.
	Pillars   []*cds.CDSAnalytic
	Quotes    []quotes.Quote
	Converter *quotes.Converter
	// YieldBuilder and YieldRates are set when the yield curve was
	// bootstrapped from instruments.
	YieldBuilder *curve.YieldCurveBuilder
	YieldRates   []float64
}

// Build resolves the input: it parses dates, builds the yield curve and
// loads or calibrates the credit curve.
func (in MarketInput) Build(env *Env) (*Market, error) {
	trade, err := utils.ParseDate(in.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("invalid trade_date: %v", err)
	}
	cal, err := calendar.Lookup(calendar.CalendarID(in.Calendar))
	if err != nil {
		return nil, err
	}
	m := &Market{
		TradeDate: trade,
		Factory:   cds.NewFactory().WithCalendar(cal).WithRecoveryRate(in.Recovery),
	}
	if len(in.Yield.Instruments) == 0 {
		m.Yield, err = curve.NewYieldCurve(in.Yield.Times, in.Yield.Rates)
	} else {
		if m.YieldBuilder, m.YieldRates, err = in.Yield.builder(trade, cal); err == nil {
			m.Yield, err = m.YieldBuilder.Build(m.YieldRates)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("yield_curve: %w", err)
	}

	switch {
	case in.Credit.Curve != nil:
		if m.Credit, err = in.Credit.Curve.CreditCurve(); err != nil {
			return nil, fmt.Errorf("credit_curve: %w", err)
		}
	case len(in.Credit.Quotes) > 0:
		if err := m.calibrate(env, in.Credit.Quotes); err != nil {
			return nil, fmt.Errorf("credit_curve: %w", err)
		}
	default:
		return nil, fmt.Errorf("credit_curve: either curve or quotes is required")
	}
	return m, nil
}

func (m *Market) calibrate(env *Env, qs []QuoteInput) error {
	tenors := make([]utils.Tenor, len(qs))
	m.Quotes = make([]quotes.Quote, len(qs))
	for i, q := range qs {
		tn, err := utils.ParseTenor(q.Tenor)
		if err != nil {
			return err
		}
		tenors[i] = tn
		switch q.Type {
		case "quoted_spread":
			m.Quotes[i] = quotes.QuotedSpread{Coupon: q.Coupon, Spread: q.Spread}
		case "points_upfront":
			m.Quotes[i] = quotes.PointsUpFront{Coupon: q.Coupon, PUF: q.PUF}
		default:
			m.Quotes[i] = quotes.ParSpread{Spread: q.Spread}
		}
	}
	pillars, err := m.Factory.MakeIMMCDSs(m.TradeDate, tenors)
	if err != nil {
		return err
	}
	m.Pillars = pillars

	builder, err := env.Config.FastBuilder(env.Log.Zerolog())
	if err != nil {
		return err
	}
	m.Converter = quotes.NewConverter(builder)
	err = env.Metrics.Time("calibrate", func() error {
		var cerr error
		m.Credit, cerr = m.Converter.CalibrateCurve(pillars, m.Quotes, m.Yield)
		return cerr
	})
	env.Metrics.RecordCalibration(err)
	return err
}

func (in YieldInput) builder(trade time.Time, cal calendar.Calendar) (*curve.YieldCurveBuilder, []float64, error) {
	spot := trade
	if in.SpotDate != "" {
		var err error
		if spot, err = utils.ParseDate(in.SpotDate); err != nil {
			return nil, nil, fmt.Errorf("invalid spot_date: %v", err)
		}
	}
	types := make([]curve.InstrumentType, len(in.Instruments))
	tenors := make([]utils.Tenor, len(in.Instruments))
	rates := make([]float64, len(in.Instruments))
	for i, inst := range in.Instruments {
		var err error
		if types[i], err = curve.ParseInstrumentType(inst.Type); err != nil {
			return nil, nil, err
		}
		if tenors[i], err = utils.ParseTenor(inst.Tenor); err != nil {
			return nil, nil, err
		}
		rates[i] = inst.Rate
	}
	b, err := curve.NewYieldCurveBuilder(curve.YieldCurveSpec{
		TradeDate: trade,
		SpotDate:  spot,
		Types:     types,
		Tenors:    tenors,
		Calendar:  cal,
	})
	if err != nil {
		return nil, nil, err
	}
	return b, rates, nil
}

// Contract builds a standard IMM contract of the given tenor, or one
// running to maturity when maturity is set.
func (m *Market) Contract(tenor, maturity string) (*cds.CDSAnalytic, error) {
	if maturity != "" {
		end, err := utils.ParseDate(maturity)
		if err != nil {
			return nil, fmt.Errorf("invalid maturity: %v", err)
		}
		return m.Factory.MakeCDS(m.TradeDate, m.Factory.IMMAccrualStart(m.TradeDate), end)
	}
	tn, err := utils.ParseTenor(tenor)
	if err != nil {
		return nil, err
	}
	return m.Factory.MakeIMMCDS(m.TradeDate, tn)
}
