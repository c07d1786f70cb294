package rng

import "math"

// SolveQuadratic solves a*x^2 + b*x + c = 0 using the numerically stable
// form q = -0.5*(b + sign(b)*sqrt(delta)), per spec.md §4.1. Returns the
// number of real roots (0, 1, or 2) and the roots in ascending order.
// a == 0 degenerates to the single root c/q with q == -b (linear case);
// delta < 0 returns 0 roots.
func SolveQuadratic(a, b, c float64) (nroots int, minRoot, maxRoot float64) {
	if a == 0 {
		if b == 0 {
			return 0, 0, 0
		}
		root := -c / b
		return 1, root, root
	}

	delta := b*b - 4*a*c
	if delta < 0 {
		return 0, 0, 0
	}

	sqrtDelta := math.Sqrt(delta)
	var sign float64 = 1
	if b < 0 {
		sign = -1
	}
	q := -0.5 * (b + sign*sqrtDelta)

	if q == 0 {
		root := 0.0
		if a != 0 {
			root = -b / (2 * a)
		}
		return 1, root, root
	}

	r1 := q / a
	r2 := c / q
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return 2, r1, r2
}

// ApproxEq reports whether |x-y| <= 10^absMag and, if perMag != 0,
// |x-y|/x <= 10^perMag. Used throughout the geometry and tracker code as
// the tolerance guard spec.md §4.1/§7 name (10^-7 is the conventional
// tolerance used elsewhere in the core).
func ApproxEq(x, y float64, absMag float64, perMag float64) bool {
	diff := math.Abs(x - y)
	if diff > math.Pow(10, absMag) {
		return false
	}
	if perMag != 0 {
		if x == 0 {
			return diff == 0
		}
		if diff/math.Abs(x) > math.Pow(10, perMag) {
			return false
		}
	}
	return true
}
