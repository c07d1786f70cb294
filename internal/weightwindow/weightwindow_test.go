package weightwindow

import (
	"bytes"
	"testing"

	"github.com/phg-sim/gammatrack/internal/productivity"
	"github.com/stretchr/testify/require"
)

type fixedRNG struct{ v float64 }

func (f fixedRNG) Uniform01() float64 { return f.v }

func tableWithProductivity(p float64) *productivity.Table {
	table := productivity.NewFlat(1, false)
	// force productivity to p via accumulation: start=1,det=p^2
	table.AccumulateStart(true, 0, 0, 1, 1)
	table.AccumulateDetected(true, 0, 0, p, 1) // det weight*photon = p -> squared p^2
	var buf bytes.Buffer
	_ = table.Close(&buf)
	return table
}

func TestApplyNormalWhenWithinRatioBounds(t *testing.T) {
	table := tableWithProductivity(1.0)
	d := Apply(fixedRNG{0.5}, table, 0, 0, 1.0, 1.0, 0.1, 10)
	require.Equal(t, Normal, d.Outcome)
}

func TestApplySplitWhenAboveMaxRatio(t *testing.T) {
	table := tableWithProductivity(1.0)
	d := Apply(fixedRNG{0.5}, table, 0, 0, 100.0, 1.0, 0.1, 10)
	require.Equal(t, Split, d.Outcome)
	require.Greater(t, d.SplitCount, 0)
}

func TestApplyRouletteSurvivesAndRenormalizes(t *testing.T) {
	table := tableWithProductivity(0.01) // estDetected = scatterWeight*0.01, tiny
	d := Apply(fixedRNG{0.0}, table, 0, 0, 1.0, 1.0, 0.5, 10) // u=0 always "wins" (p>0)
	require.Equal(t, Rouletted, d.Outcome)
	// expectation check: renormalized weight * survival probability == parent weight
	estDetected := 1.0 * table.ScatProductivity(0, 0)
	survivalProb := estDetected / 1.0
	expectedMean := survivalProb * d.RenormalizedWeight
	require.InDelta(t, 1.0, expectedMean, 1e-9)
}

func TestApplyKilledWhenRouletteFails(t *testing.T) {
	table := tableWithProductivity(0.01)
	d := Apply(fixedRNG{0.999999}, table, 0, 0, 1.0, 1.0, 0.5, 10)
	require.Equal(t, Killed, d.Outcome)
}

func TestFDAttemptWeightSumAcrossAttemptsEqualsParent(t *testing.T) {
	parent := 10.0
	n := 4
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += FDAttemptWeight(parent, n)
	}
	require.InDelta(t, parent, sum, 1e-9)
}
