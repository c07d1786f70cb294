package rng

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniform01StrictlyInOpenInterval(t *testing.T) {
	g := New(12345)
	for i := 0; i < 1_000_000; i++ {
		v := g.Uniform01()
		require.Greater(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestUniform01DPStrictlyInOpenInterval(t *testing.T) {
	g := New(999)
	for i := 0; i < 100_000; i++ {
		v := g.Uniform01DP()
		require.Greater(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestSerializeRestoreRoundtrip(t *testing.T) {
	g := New(42)
	// burn some draws so state/index are non-trivial
	for i := 0; i < 1000; i++ {
		g.Uniform01()
	}

	var buf bytes.Buffer
	require.NoError(t, g.SerializeState(&buf))

	restored := New(1) // different seed, will be overwritten
	require.NoError(t, restored.RestoreState(bytes.NewReader(buf.Bytes())))

	const draws = 1_000_000
	for i := 0; i < draws; i++ {
		a := g.Uniform01()
		b := restored.Uniform01()
		require.Equal(t, a, b, "draw %d diverged", i)
	}
}

func TestCheckpointRestoreIsSameWireFormat(t *testing.T) {
	g := New(7)
	var buf bytes.Buffer
	require.NoError(t, g.Checkpoint(&buf))
	restored := New(1)
	require.NoError(t, restored.Restore(bytes.NewReader(buf.Bytes())))
	require.Equal(t, g.Uniform01(), restored.Uniform01())
}

func TestSeedNonPositiveDerivesFromClock(t *testing.T) {
	g1 := New(0)
	g2 := New(-5)
	// Both should produce valid (0,1) draws; we can't assert they differ
	// deterministically (both seeded from the clock), just that seeding
	// didn't panic and draws are in range.
	require.Greater(t, g1.Uniform01(), 0.0)
	require.Greater(t, g2.Uniform01(), 0.0)
}

func TestGaussianCachedDeviateConvergesToStandardNormal(t *testing.T) {
	g := New(2024)
	const samples = 1_000_000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < samples; i++ {
		v := g.Gaussian(0, 1)
		sum += v
		sumSq += v * v
	}
	mean := sum / samples
	variance := sumSq/samples - mean*mean

	// 3-sigma bound on the mean of `samples` iid N(0,1) draws.
	meanSE := 1.0 / math.Sqrt(samples)
	require.InDelta(t, 0.0, mean, 3*meanSE)
	require.InDelta(t, 1.0, variance, 0.02)
}

func TestGaussianUsesCachedSecondDeviateWithoutNewDraws(t *testing.T) {
	g := New(77)
	_ = g.Gaussian(0, 1) // consumes uniforms, caches second deviate
	require.True(t, g.haveGaussian)
	cached := g.cachedGauss
	v := g.Gaussian(10, 2)
	require.Equal(t, 10+2*cached, v)
	require.False(t, g.haveGaussian)
}

func TestExpFreePathsIsNonNegativeAndMeanOne(t *testing.T) {
	g := New(5)
	const samples = 200_000
	sum := 0.0
	for i := 0; i < samples; i++ {
		v := g.ExpFreePaths()
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	mean := sum / samples
	require.InDelta(t, 1.0, mean, 0.02)
}
