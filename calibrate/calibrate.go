// Package calibrate bootstraps ISDA credit curves from CDS quotes.
//
// Nodes are solved strictly left to right. Node i sits at the protection
// end of pillar i, and its zero hazard rate is chosen so that pillar i
// reprices its quote with nodes 0..i-1 held fixed.
package calibrate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meenmo/isdacds/cds"
	"github.com/meenmo/isdacds/curve"
	"github.com/meenmo/isdacds/rootfind"
)

var (
	// ErrCalibrationArbitrage is returned under Fail when a pillar can only
	// be repriced with a negative forward hazard rate.
	ErrCalibrationArbitrage = errors.New("calibrate: negative forward hazard rate required")
	// ErrNoConvergence is rootfind.ErrNoConvergence.
	ErrNoConvergence = rootfind.ErrNoConvergence
	// ErrInvalidArgument reports malformed pillars or quotes.
	ErrInvalidArgument = errors.New("calibrate: invalid argument")
)

// ArbitrageHandling decides what happens when a quote implies a negative
// forward hazard rate.
type ArbitrageHandling int

const (
	// Ignore accepts negative forward hazard rates.
	Ignore ArbitrageHandling = iota
	// Fail stops the calibration with ErrCalibrationArbitrage.
	Fail
	// ZeroHazardRate flattens the offending segment to a zero forward hazard.
	ZeroHazardRate
)

func (a ArbitrageHandling) String() string {
	switch a {
	case Ignore:
		return "Ignore"
	case Fail:
		return "Fail"
	case ZeroHazardRate:
		return "ZeroHazardRate"
	}
	return fmt.Sprintf("ArbitrageHandling(%d)", int(a))
}

// ParseArbitrageHandling accepts the String forms in any case, with or
// without underscores.
func ParseArbitrageHandling(s string) (ArbitrageHandling, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "") {
	case "ignore":
		return Ignore, nil
	case "fail":
		return Fail, nil
	case "zerohazardrate", "zerohazard":
		return ZeroHazardRate, nil
	}
	return Ignore, fmt.Errorf("ParseArbitrageHandling: %w: unknown policy %q", ErrInvalidArgument, s)
}

// Options controls a builder.
type Options struct {
	Arbitrage ArbitrageHandling
	Solver    rootfind.Options
	// Logger receives one debug line per solved node.
	Logger zerolog.Logger
}

// DefaultOptions fails on arbitrage and logs nothing.
func DefaultOptions() Options {
	return Options{
		Arbitrage: Fail,
		Solver:    rootfind.DefaultOptions,
		Logger:    zerolog.Nop(),
	}
}

// objective is the repricing error of one pillar and its derivative with
// respect to the zero rate of the node being solved.
type objective func(trial *curve.CreditCurve) (f, df float64)

// validate checks pillar ordering and quote lengths and returns the knot
// times.
func validate(pillars []*cds.CDSAnalytic, coupons, pufs []float64) ([]float64, error) {
	n := len(pillars)
	if n == 0 {
		return nil, fmt.Errorf("%w: no pillars", ErrInvalidArgument)
	}
	if len(coupons) != n || len(pufs) != n {
		return nil, fmt.Errorf("%w: %d pillars, %d coupons, %d upfronts", ErrInvalidArgument, n, len(coupons), len(pufs))
	}
	times := make([]float64, n)
	for i, c := range pillars {
		if c == nil {
			return nil, fmt.Errorf("%w: pillar %d is nil", ErrInvalidArgument, i)
		}
		times[i] = c.ProtectionEnd()
		if times[i] <= 0 {
			return nil, fmt.Errorf("%w: pillar %d has expired", ErrInvalidArgument, i)
		}
		if i > 0 && times[i] <= times[i-1] {
			return nil, fmt.Errorf("%w: pillar %d does not mature after pillar %d", ErrInvalidArgument, i, i-1)
		}
		if math.IsNaN(coupons[i]) || math.IsNaN(pufs[i]) {
			return nil, fmt.Errorf("%w: pillar %d quote is NaN", ErrInvalidArgument, i)
		}
	}
	return times, nil
}

// Calibration is a calibrated credit curve. Clamped[i] is set when node i
// was pinned to a zero forward hazard rate under ZeroHazardRate; such a node
// satisfies r[i]*t[i] == r[i-1]*t[i-1] (r[0] == 0 for the first node)
// instead of repricing pillar i.
type Calibration struct {
	Curve   *curve.CreditCurve
	Clamped []bool
}

// NumberOfClamped counts the clamped nodes.
func (c *Calibration) NumberOfClamped() int {
	n := 0
	for _, v := range c.Clamped {
		if v {
			n++
		}
	}
	return n
}

// bootstrap runs the left-to-right node solve. obj(i) returns the objective
// for pillar i.
func bootstrap(times []float64, pillars []*cds.CDSAnalytic, coupons, pufs []float64, obj func(i int) objective, opts Options) (*Calibration, error) {
	n := len(times)
	rates := make([]float64, 0, n)
	clamped := make([]bool, n)
	for i := 0; i < n; i++ {
		guess := (coupons[i] + pufs[i]/times[i]) / pillars[i].LGD()
		base, err := curve.NewCreditCurve(times[:i+1], append(append([]float64(nil), rates...), guess))
		if err != nil {
			return nil, err
		}
		r, pinned, err := solveNode(base, i, guess, obj(i), opts)
		if err != nil {
			return nil, fmt.Errorf("node %d (t=%.6f): %w", i, times[i], err)
		}
		rates = append(rates, r)
		clamped[i] = pinned
		opts.Logger.Debug().
			Int("node", i).
			Float64("time", times[i]).
			Float64("rate", r).
			Bool("clamped", pinned).
			Msg("credit curve node solved")
	}
	cc, err := curve.NewCreditCurve(times, rates)
	if err != nil {
		return nil, err
	}
	return &Calibration{Curve: cc, Clamped: clamped}, nil
}

// solveNode returns the rate of node i and whether it was clamped to the
// zero-forward-hazard floor.
func solveNode(base *curve.CreditCurve, i int, guess float64, obj objective, opts Options) (float64, bool, error) {
	fn := func(x float64) (float64, float64) {
		trial, err := base.WithRate(x, i)
		if err != nil {
			return math.NaN(), math.NaN()
		}
		return obj(trial)
	}
	value := func(x float64) float64 {
		f, _ := fn(x)
		return f
	}

	// smallest rate with a non-negative forward hazard on the segment
	floor := math.Inf(-1)
	if opts.Arbitrage != Ignore {
		floor = 0
		if i > 0 {
			floor = base.RTAt(i-1) / base.TimeAt(i)
		}
		// the protection buyer's value rises with the hazard rate
		switch f0 := value(floor); {
		case f0 == 0:
			return floor, false, nil
		case f0 > 0 && opts.Arbitrage == Fail:
			return 0, false, fmt.Errorf("%w: repricing error %g at zero forward hazard", ErrCalibrationArbitrage, f0)
		case f0 > 0:
			opts.Logger.Warn().
				Int("node", i).
				Float64("rate", floor).
				Msg("forward hazard rate clamped to zero")
			return floor, true, nil
		}
	}

	lo, hi := initialBracket(guess, floor)
	lo, hi, err := rootfind.Bracket(value, lo, hi, floor, opts.Solver)
	if err != nil {
		return 0, false, err
	}
	start := guess
	if i > 0 {
		start = base.ZeroRateAt(i - 1)
	}
	r, err := rootfind.Newton(fn, start, lo, hi, opts.Solver)
	return r, false, err
}

func initialBracket(guess, floor float64) (float64, float64) {
	lo, hi := 0.8*guess, 1.25*guess
	if guess <= 0 {
		lo, hi = guess-0.01, guess+0.01
	}
	lo = math.Max(lo, floor)
	if hi <= lo {
		hi = lo + 0.01
	}
	return lo, hi
}

// Calibrator is implemented by FastBuilder. coupons are the running
// spreads of the pillars and pufs their upfront fees per unit notional;
// par-spread quotes have a zero upfront.
type Calibrator interface {
	Calibrate(pillars []*cds.CDSAnalytic, coupons, pufs []float64, yc *curve.YieldCurve) (*curve.CreditCurve, error)
}
