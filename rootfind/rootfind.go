// Package rootfind provides the one-dimensional solvers used by the curve
// bootstrappers: geometric bracket expansion and a Newton-Raphson iteration
// safeguarded by bisection.
package rootfind

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence is returned when no root is found within the budget.
var ErrNoConvergence = errors.New("rootfind: no convergence")

// Func returns the function value and its first derivative at x.
type Func func(x float64) (f, df float64)

// Options controls the solvers.
type Options struct {
	// XTolerance stops the iteration once the bracket or the Newton step is
	// narrower than this.
	XTolerance float64
	// FTolerance stops the iteration once |f| is below it.
	FTolerance float64
	// MaxIterations bounds Newton/bisection steps.
	MaxIterations int
	// MaxExpansions bounds bracket expansion attempts.
	MaxExpansions int
	// ExpansionFactor scales the bracket width on each expansion.
	ExpansionFactor float64
}

// DefaultOptions is tight enough that two mathematically equivalent
// objective functions land on the same double.
var DefaultOptions = Options{
	XTolerance:      1e-15,
	FTolerance:      0,
	MaxIterations:   100,
	MaxExpansions:   50,
	ExpansionFactor: 1.6,
}

// Bracket widens [lo, hi] geometrically until f changes sign across it.
// The lower end is never moved below floor.
func Bracket(f func(float64) float64, lo, hi, floor float64, opts Options) (float64, float64, error) {
	if lo >= hi {
		return 0, 0, fmt.Errorf("Bracket: lower bound %g not below upper bound %g", lo, hi)
	}
	if lo < floor {
		lo = floor
	}
	flo, fhi := f(lo), f(hi)
	for i := 0; i < opts.MaxExpansions; i++ {
		if flo*fhi <= 0 {
			return lo, hi, nil
		}
		width := opts.ExpansionFactor * (hi - lo)
		if math.Abs(flo) < math.Abs(fhi) && lo > floor {
			lo = math.Max(lo-width, floor)
			flo = f(lo)
		} else {
			hi += width
			fhi = f(hi)
		}
	}
	if flo*fhi <= 0 {
		return lo, hi, nil
	}
	return 0, 0, fmt.Errorf("Bracket: no sign change in [%g, %g]: %w", lo, hi, ErrNoConvergence)
}

// Newton solves fn(x) = 0 starting from guess, keeping every iterate inside
// [lo, hi]. The bracket must contain a sign change. A Newton step that
// leaves the bracket, or does not shrink |f| fast enough, is replaced by a
// bisection step.
func Newton(fn Func, guess, lo, hi float64, opts Options) (float64, error) {
	flo, _ := fn(lo)
	fhi, _ := fn(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, fmt.Errorf("Newton: [%g, %g] does not bracket a root: %w", lo, hi, ErrNoConvergence)
	}
	// orient so that f(xl) < 0 < f(xh)
	xl, xh := lo, hi
	if flo > 0 {
		xl, xh = hi, lo
	}

	x := guess
	if x < lo || x > hi {
		x = 0.5 * (lo + hi)
	}
	dxOld := math.Abs(hi - lo)
	dx := dxOld
	f, df := fn(x)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if math.Abs(f) <= opts.FTolerance {
			return x, nil
		}
		if ((x-xh)*df-f)*((x-xl)*df-f) > 0 || math.Abs(2*f) > math.Abs(dxOld*df) {
			dxOld = dx
			dx = 0.5 * (xh - xl)
			x = xl + dx
			if xl == x {
				return x, nil
			}
		} else {
			dxOld = dx
			dx = f / df
			prev := x
			x -= dx
			if prev == x {
				return x, nil
			}
		}
		if math.Abs(dx) < opts.XTolerance*math.Max(1, math.Abs(x)) {
			return x, nil
		}
		f, df = fn(x)
		if f < 0 {
			xl = x
		} else {
			xh = x
		}
	}
	return x, fmt.Errorf("Newton: %d iterations exhausted at x=%g: %w", opts.MaxIterations, x, ErrNoConvergence)
}

// Bisection solves f(x) = 0 on a sign-changing bracket.
func Bisection(f func(float64) float64, lo, hi float64, opts Options) (float64, error) {
	flo, fhi := f(lo), f(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, fmt.Errorf("Bisection: [%g, %g] does not bracket a root: %w", lo, hi, ErrNoConvergence)
	}
	for iter := 0; iter < opts.MaxIterations; iter++ {
		mid := 0.5 * (lo + hi)
		fm := f(mid)
		if fm == 0 || hi-lo < opts.XTolerance*math.Max(1, math.Abs(mid)) {
			return mid, nil
		}
		if fm*flo < 0 {
			hi = mid
		} else {
			lo, flo = mid, fm
		}
	}
	return 0.5 * (lo + hi), fmt.Errorf("Bisection: %d iterations exhausted: %w", opts.MaxIterations, ErrNoConvergence)
}
