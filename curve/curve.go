// Package curve holds the piecewise-flat-forward curves of the ISDA model.
//
// A curve is a set of knots 0 <= t[0] < t[1] < ..., each carrying
// rt[i] = r[i]*t[i]. A knot at time 0 has rt[0] = 0 and keeps r[0] as the
// zero rate at time 0. Between knots rt is linear in t, so the instantaneous
// forward rate is flat on every segment. Before the first knot the zero rate
// is r[0]; beyond the last knot the last segment's forward rate continues.
// Curves are immutable: every With* method returns a new curve.
package curve

import (
	"fmt"
	"math"
	"sort"
)

type Curve struct {
	t  []float64
	rt []float64
	r  []float64
}

// New builds a curve from knot times and continuously compounded zero rates.
func New(times, rates []float64) (*Curve, error) {
	if err := validateKnots(times, rates); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	n := len(times)
	c := &Curve{
		t:  append([]float64(nil), times...),
		r:  append([]float64(nil), rates...),
		rt: make([]float64, n),
	}
	for i := range c.t {
		c.rt[i] = c.r[i] * c.t[i]
	}
	return c, nil
}

// FromRT builds a curve from knot times and rt values. A knot at time 0
// must carry rt 0.
func FromRT(times, rt []float64) (*Curve, error) {
	if err := validateKnots(times, rt); err != nil {
		return nil, fmt.Errorf("FromRT: %w", err)
	}
	if times[0] == 0 && rt[0] != 0 {
		return nil, fmt.Errorf("FromRT: %w: rt %g at time 0", ErrInvalidArgument, rt[0])
	}
	return fromRT(append([]float64(nil), times...), append([]float64(nil), rt...)), nil
}

// FromForwardRates builds a curve whose forward rate on (t[i-1], t[i]] is
// forwards[i] (forwards[0] applies on (0, t[0]]).
func FromForwardRates(times, forwards []float64) (*Curve, error) {
	if err := validateKnots(times, forwards); err != nil {
		return nil, fmt.Errorf("FromForwardRates: %w", err)
	}
	rt := make([]float64, len(times))
	prevT, sum := 0.0, 0.0
	for i, ti := range times {
		sum += forwards[i] * (ti - prevT)
		rt[i] = sum
		prevT = ti
	}
	return fromRT(append([]float64(nil), times...), rt), nil
}

// NewFlat returns a single-knot curve (knot at 1.0) with constant rate r.
func NewFlat(r float64) *Curve {
	return &Curve{t: []float64{1}, rt: []float64{r}, r: []float64{r}}
}

func fromRT(times, rt []float64) *Curve {
	r := make([]float64, len(times))
	for i := range times {
		if times[i] > 0 {
			r[i] = rt[i] / times[i]
		}
	}
	// a zero-time knot takes the short rate of the first segment
	if times[0] == 0 && len(times) > 1 {
		r[0] = (rt[1] - rt[0]) / times[1]
	}
	return &Curve{t: times, rt: rt, r: r}
}

func validateKnots(times, values []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: no knots", ErrInvalidArgument)
	}
	if len(times) != len(values) {
		return fmt.Errorf("%w: %d times but %d values", ErrInvalidArgument, len(times), len(values))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return fmt.Errorf("%w: non-finite knot %d", ErrInvalidArgument, i)
		}
		if i == 0 && t < 0 {
			return fmt.Errorf("%w: first knot time %g is negative", ErrInvalidArgument, t)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("%w: knot times not strictly increasing at %d", ErrInvalidArgument, i)
		}
	}
	return nil
}

// NumberOfKnots returns the knot count.
func (c *Curve) NumberOfKnots() int { return len(c.t) }

// TimeAt returns knot time i.
func (c *Curve) TimeAt(i int) float64 { return c.t[i] }

// ZeroRateAt returns the zero rate at knot i.
func (c *Curve) ZeroRateAt(i int) float64 { return c.r[i] }

// RTAt returns rt at knot i.
func (c *Curve) RTAt(i int) float64 { return c.rt[i] }

// Times returns a copy of the knot times.
func (c *Curve) Times() []float64 { return append([]float64(nil), c.t...) }

// Rates returns a copy of the knot zero rates.
func (c *Curve) Rates() []float64 { return append([]float64(nil), c.r...) }

// segment returns the index i >= 1 of the segment (t[i-1], t[i]] used for t,
// clamped to the last segment beyond the end. The caller guarantees t > t[0]
// and at least two knots.
func (c *Curve) segment(t float64) int {
	idx := sort.SearchFloat64s(c.t, t)
	if idx >= len(c.t) {
		idx = len(c.t) - 1
	}
	return idx
}

// RT returns r(t)*t.
func (c *Curve) RT(t float64) float64 {
	if t <= c.t[0] || len(c.t) == 1 {
		return c.r[0] * t
	}
	i := c.segment(t)
	if c.t[i] == t {
		return c.rt[i]
	}
	t1, t2 := c.t[i-1], c.t[i]
	return (c.rt[i-1]*(t2-t) + c.rt[i]*(t-t1)) / (t2 - t1)
}

// DiscountFactor returns exp(-RT(t)).
func (c *Curve) DiscountFactor(t float64) float64 {
	return math.Exp(-c.RT(t))
}

// ZeroRate returns RT(t)/t, or r[0] for t at or before the first knot.
func (c *Curve) ZeroRate(t float64) float64 {
	if t <= c.t[0] {
		return c.r[0]
	}
	return c.RT(t) / t
}

// ForwardRate returns the instantaneous forward rate at t. At a knot the
// value of the segment ending there is returned.
func (c *Curve) ForwardRate(t float64) float64 {
	if t <= c.t[0] || len(c.t) == 1 {
		return c.r[0]
	}
	i := c.segment(t)
	return (c.rt[i] - c.rt[i-1]) / (c.t[i] - c.t[i-1])
}

// NodeSensitivity returns the derivative of ZeroRate(t) with respect to every
// knot zero rate.
func (c *Curve) NodeSensitivity(t float64) []float64 {
	res := make([]float64, len(c.t))
	if t <= c.t[0] || len(c.t) == 1 {
		res[0] = 1
		return res
	}
	i := c.segment(t)
	t1, t2 := c.t[i-1], c.t[i]
	dt := t2 - t1
	res[i-1] = t1 * (t2 - t) / (dt * t)
	res[i] = t2 * (t - t1) / (dt * t)
	return res
}

// SingleNodeSensitivity returns NodeSensitivity(t)[node] without allocating.
func (c *Curve) SingleNodeSensitivity(t float64, node int) float64 {
	if t <= c.t[0] || len(c.t) == 1 {
		if node == 0 {
			return 1
		}
		return 0
	}
	i := c.segment(t)
	t1, t2 := c.t[i-1], c.t[i]
	dt := t2 - t1
	switch node {
	case i - 1:
		return t1 * (t2 - t) / (dt * t)
	case i:
		return t2 * (t - t1) / (dt * t)
	default:
		return 0
	}
}

// SingleNodeRTSensitivity returns the derivative of RT(t) with respect to
// the zero rate of knot node.
func (c *Curve) SingleNodeRTSensitivity(t float64, node int) float64 {
	if t <= c.t[0] || len(c.t) == 1 {
		if node == 0 {
			return t
		}
		return 0
	}
	return t * c.SingleNodeSensitivity(t, node)
}

// WithRate returns a copy with knot i's zero rate replaced.
func (c *Curve) WithRate(rate float64, i int) (*Curve, error) {
	if i < 0 || i >= len(c.t) {
		return nil, fmt.Errorf("WithRate: %w: knot %d out of range [0,%d)", ErrInvalidArgument, i, len(c.t))
	}
	out := c.clone()
	out.r[i] = rate
	out.rt[i] = rate * out.t[i]
	return out, nil
}

// WithRates returns a copy with every knot zero rate replaced.
func (c *Curve) WithRates(rates []float64) (*Curve, error) {
	if len(rates) != len(c.t) {
		return nil, fmt.Errorf("WithRates: %w: %d rates for %d knots", ErrInvalidArgument, len(rates), len(c.t))
	}
	out, err := New(c.t, rates)
	if err != nil {
		return nil, fmt.Errorf("WithRates: %w", err)
	}
	return out, nil
}

// WithDiscountFactor returns a copy whose knot i reprices to df.
func (c *Curve) WithDiscountFactor(df float64, i int) (*Curve, error) {
	if df <= 0 {
		return nil, fmt.Errorf("WithDiscountFactor: %w: discount factor %g must be positive", ErrInvalidArgument, df)
	}
	if i < 0 || i >= len(c.t) {
		return nil, fmt.Errorf("WithDiscountFactor: %w: knot %d out of range [0,%d)", ErrInvalidArgument, i, len(c.t))
	}
	if c.t[i] == 0 {
		if df != 1 {
			return nil, fmt.Errorf("WithDiscountFactor: %w: discount factor %g at time 0", ErrInvalidArgument, df)
		}
		return c.clone(), nil
	}
	return c.WithRate(-math.Log(df)/c.t[i], i)
}

// WithOffset re-bases the curve so that time 0 of the result is time offset
// of c: result.DiscountFactor(s) == c.DiscountFactor(s+offset)/c.DiscountFactor(offset).
func (c *Curve) WithOffset(offset float64) (*Curve, error) {
	if offset < 0 || math.IsNaN(offset) {
		return nil, fmt.Errorf("WithOffset: %w: negative offset %g", ErrInvalidArgument, offset)
	}
	if offset == 0 {
		return c.clone(), nil
	}
	n := len(c.t)
	if offset >= c.t[n-1] {
		return NewFlat(c.ForwardRate(c.t[n-1])), nil
	}

	var start int
	var eta float64
	if offset < c.t[0] {
		start, eta = 0, c.r[0]*offset
	} else {
		start = sort.Search(n, func(i int) bool { return c.t[i] > offset })
		eta = c.RT(offset)
	}
	m := n - start
	times := make([]float64, m)
	rt := make([]float64, m)
	for j := 0; j < m; j++ {
		times[j] = c.t[start+j] - offset
		rt[j] = c.rt[start+j] - eta
	}
	return fromRT(times, rt), nil
}

func (c *Curve) clone() *Curve {
	return &Curve{
		t:  append([]float64(nil), c.t...),
		rt: append([]float64(nil), c.rt...),
		r:  append([]float64(nil), c.r...),
	}
}
