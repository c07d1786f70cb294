// Package weightwindow implements splitting and Russian-roulette decisions
// driven by the productivity table (spec component C8), per spec.md §4.7.
package weightwindow

import "github.com/phg-sim/gammatrack/internal/productivity"

// MaxDetectedPerDecay bounds the number of split children a single decay
// may produce; spec.md §4.7 caps splits at MAX_DETECTED_PER_DECAY - 10.
const MaxDetectedPerDecay = 1000

// Outcome is the result of applying the weight window to a photon.
type Outcome int

const (
	Normal Outcome = iota
	Split
	Rouletted
	Killed
)

// Uniform01 is the minimal RNG surface Apply needs, satisfied by
// *rng.MT.
type Uniform01 interface {
	Uniform01() float64
}

// Decision is the result of Apply: Outcome plus the split count (when
// Outcome == Split, the number of independent forced-detection attempts
// the photon should draw from then on, per spec.md §4.7 — the photon's
// own transport is never forked) and the possibly-renormalized scatter
// weight (when Outcome == Rouletted, the surviving photon's weight is
// rescaled so its expectation equals the parent weight).
type Decision struct {
	Outcome            Outcome
	SplitCount         int
	RenormalizedWeight float64
}

// Apply implements spec.md §4.7's applyWindow: estDetected =
// scatterWeight * table.ScatProductivity(sliceIdx, angleIdx); if estimated
// detected weight is below minRatio*targetWeight, roulette; if above
// maxRatio*targetWeight, split; otherwise Normal.
func Apply(rng Uniform01, table *productivity.Table, sliceIdx, angleIdx int, scatterWeight, targetWeight, minRatio, maxRatio float64) Decision {
	estDetected := scatterWeight * table.ScatProductivity(sliceIdx, angleIdx)

	if estDetected < minRatio*targetWeight {
		p := estDetected / targetWeight
		if rng.Uniform01() < p {
			return Decision{Outcome: Rouletted, RenormalizedWeight: scatterWeight * targetWeight / estDetected}
		}
		return Decision{Outcome: Killed}
	}

	if estDetected > maxRatio*targetWeight {
		n := int(estDetected / targetWeight)
		if n > MaxDetectedPerDecay-10 {
			n = MaxDetectedPerDecay - 10
		}
		if n < 1 {
			n = 1
		}
		return Decision{Outcome: Split, SplitCount: n}
	}

	return Decision{Outcome: Normal}
}

// FDAttemptWeight is the weight a single forced-detection sample draws
// when a Split decision raised the photon's attempt count to n: the spec
// requires weights are not modified at split time, only at the point of
// subsequent forced detection, where each attempt's scatter weight is the
// parent's divided by n (spec.md §4.7). The photon itself is never split
// into n independently-tracked copies; only the forced-detection sample
// count and per-sample weight change.
func FDAttemptWeight(parentScatterWeight float64, attempts int) float64 {
	return parentScatterWeight / float64(attempts)
}
