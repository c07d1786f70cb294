package rng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveQuadraticNegativeDiscriminant(t *testing.T) {
	nroots, _, _ := SolveQuadratic(1, 0, 1) // x^2 + 1 = 0
	require.Equal(t, 0, nroots)
}

func TestSolveQuadraticRootsSatisfyEquation(t *testing.T) {
	cases := []struct{ a, b, c float64 }{
		{1, -3, 2},
		{2, 5, -3},
		{1e6, -3e6, 2e6},
		{1, 0, -4},
		{3, 7, 0},
	}
	for _, tc := range cases {
		nroots, minR, maxR := SolveQuadratic(tc.a, tc.b, tc.c)
		if nroots == 0 {
			continue
		}
		require.LessOrEqual(t, minR, maxR)
		for _, r := range []float64{minR, maxR} {
			val := tc.a*r*r + tc.b*r + tc.c
			require.InDelta(t, 0, val, 1e-4*math.Max(1, math.Abs(tc.a*r*r)))
		}
	}
}

func TestSolveQuadraticDegenerateLinear(t *testing.T) {
	nroots, minR, maxR := SolveQuadratic(0, 2, -4) // 2x - 4 = 0 -> x = 2
	require.Equal(t, 1, nroots)
	require.Equal(t, 2.0, minR)
	require.Equal(t, 2.0, maxR)
}

func TestApproxEqAbsoluteOnly(t *testing.T) {
	require.True(t, ApproxEq(1.0, 1.0+1e-8, -7, 0))
	require.False(t, ApproxEq(1.0, 1.1, -7, 0))
}

func TestApproxEqRelative(t *testing.T) {
	require.True(t, ApproxEq(1000.0, 1000.0+1e-4, 1, -6))
	require.False(t, ApproxEq(1000.0, 1002.0, 1, -6))
}
