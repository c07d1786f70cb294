// Package scoring specifies the scoring-sink interface (spec component
// C11): an external collaborator that receives surviving photons. Its
// internals (binning, history-file serialization) are out of scope per
// spec.md §1; only the contract is defined here.
package scoring

import "github.com/phg-sim/gammatrack/internal/photon"

// Sink receives arrays of accepted blue and pink photons plus the
// originating decay, per spec.md §6. It is otherwise opaque.
type Sink interface {
	Score(decay photon.Decay, blue, pink []photon.Photon)
}
