package pricer

import "math"

// Inside this radius the closed forms below lose digits to cancellation and
// the Taylor series is summed instead.
const taylorRadius = 0.5

// Epsilon is (e^x - 1)/x.
func Epsilon(x float64) float64 {
	if math.Abs(x) < taylorRadius {
		return taylor(x, 1, func(float64) float64 { return 1 })
	}
	return math.Expm1(x) / x
}

// EpsilonP is the derivative of Epsilon: (x e^x - e^x + 1)/x^2.
func EpsilonP(x float64) float64 {
	if math.Abs(x) < taylorRadius {
		return taylor(x, 2, func(m float64) float64 { return m + 1 })
	}
	return (x*math.Exp(x) - math.Expm1(x)) / (x * x)
}

// EpsilonPP is the second derivative of Epsilon: ((x^2 - 2x + 2)e^x - 2)/x^3.
func EpsilonPP(x float64) float64 {
	if math.Abs(x) < taylorRadius {
		return taylor(x, 3, func(m float64) float64 { return (m + 1) * (m + 2) })
	}
	x2 := x * x
	return ((x2-2*x+2)*math.Exp(x) - 2) / (x2 * x)
}

// taylor sums poly(m) x^m/(m+k)! over m >= 0.
func taylor(x float64, k int, poly func(m float64) float64) float64 {
	p := 1.0
	for i := 2; i <= k; i++ {
		p /= float64(i)
	}
	sum := 0.0
	for m := 0; m < 40; m++ {
		term := poly(float64(m)) * p
		sum += term
		if math.Abs(term) <= 1e-18*math.Abs(sum) {
			break
		}
		p *= x / float64(m+k+1)
	}
	return sum
}
