package pricer

import (
	"fmt"
	"strings"
)

// AccrualOnDefaultFormula evaluates the accrual-on-default integral over one
// segment on which both the hazard rate and the discount rate are flat.
//
// With accrual time t0 at the segment start, segment length dt and
// d = dH + dR (the increase in hazard RT plus discount RT over the
// segment), the segment contributes dH * b0 * K where b0 is the joint
// survival/discount factor at the start and
//
//	K = integral_0^1 (t0 + u dt) exp(-d u) du
type AccrualOnDefaultFormula interface {
	Name() string
	// Omega is added to the accrual time at default.
	Omega() float64
	// Kernel returns K and dK/dd.
	Kernel(t0, dt, d float64) (k, dk float64)
}

const halfDay = 1.0 / 730

// smoothKernel is exact for every d.
func smoothKernel(t0, dt, d float64) (float64, float64) {
	f := Epsilon(-d)
	g := EpsilonP(-d)
	k := t0*f + dt*g
	dk := -t0*g - dt*EpsilonPP(-d)
	return k, dk
}

type originalISDA struct{}

func (originalISDA) Name() string   { return "OriginalISDA" }
func (originalISDA) Omega() float64 { return halfDay }

// Kernel switches to a first-order expansion for |d| < 1e-4, which makes
// the first derivative of the integral jump at the switch.
func (originalISDA) Kernel(t0, dt, d float64) (float64, float64) {
	if d > -1e-4 && d < 1e-4 {
		return t0*(1-d/2) + dt*(0.5-d/3), -t0/2 - dt/3
	}
	return smoothKernel(t0, dt, d)
}

type markitFix struct{}

func (markitFix) Name() string   { return "MarkitFix" }
func (markitFix) Omega() float64 { return halfDay }
func (markitFix) Kernel(t0, dt, d float64) (float64, float64) {
	return smoothKernel(t0, dt, d)
}

type correct struct{}

func (correct) Name() string   { return "Correct" }
func (correct) Omega() float64 { return 0 }
func (correct) Kernel(t0, dt, d float64) (float64, float64) {
	return smoothKernel(t0, dt, d)
}

var (
	// OriginalISDA reproduces the reference C library, half-day offset
	// included.
	OriginalISDA AccrualOnDefaultFormula = originalISDA{}
	// MarkitFix keeps the half-day offset but evaluates the integral
	// smoothly for small d.
	MarkitFix AccrualOnDefaultFormula = markitFix{}
	// Correct drops the half-day offset.
	Correct AccrualOnDefaultFormula = correct{}
)

// FormulaByName parses "OriginalISDA", "MarkitFix" or "Correct" (case and
// separators ignored).
func FormulaByName(name string) (AccrualOnDefaultFormula, error) {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	switch r.Replace(strings.ToLower(name)) {
	case "originalisda", "isda":
		return OriginalISDA, nil
	case "markitfix", "markit":
		return MarkitFix, nil
	case "correct", "opengamma":
		return Correct, nil
	}
	return nil, fmt.Errorf("FormulaByName: unknown accrual-on-default formula %q", name)
}
