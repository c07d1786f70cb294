package tracker

import "github.com/phg-sim/gammatrack/internal/material"

// Decision is the outcome of the interaction-decision policy, per
// spec.md §4.5.
type Decision int

const (
	DecisionAbsorb Decision = iota
	DecisionCoherent
	DecisionCompton
)

// DecideInteraction implements spec.md §4.5's decision policy: draws one
// uniform, splits it against pScat and pScat*pCompCond (or, when
// absorption isn't modeled, pCompCond alone).
func DecideInteraction(g Uniform01, oracle material.Oracle, matIdx material.Index, energyKeV float64, absorb, modelCoherent bool) Decision {
	pScat := oracle.ProbScatter(matIdx, energyKeV, modelCoherent)
	pCompCond := oracle.ProbComptonCondnl(matIdx, energyKeV, modelCoherent)
	u := g.Uniform01()

	if absorb {
		if u > pScat {
			return DecisionAbsorb
		}
		if modelCoherent && u > pScat*pCompCond {
			return DecisionCoherent
		}
		return DecisionCompton
	}

	if modelCoherent && u > pCompCond {
		return DecisionCoherent
	}
	return DecisionCompton
}
