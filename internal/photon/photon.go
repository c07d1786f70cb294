// Package photon defines the tracking data model (spec.md §3): Photon,
// Decay, and the flag bits that distinguish blue/pink PET coincidence
// members and track-as-scatter vs track-as-primary photons.
package photon

import (
	"time"

	"github.com/google/uuid"

	"github.com/phg-sim/gammatrack/internal/geom"
)

// Flags bits, per spec.md §3.
type Flags uint8

const (
	FlagBlue Flags = 1 << iota
	FlagPink
	FlagTrackAsScatter
)

// Kind distinguishes the originating decay type, per spec.md §3.
type Kind int

const (
	Positron Kind = iota
	SinglePhoton
	MultiEmission
)

// Decay is a single radioactive decay event.
type Decay struct {
	ID          uuid.UUID
	Pos         geom.Position
	StartWeight float64
	DecayTimeNs float64
	Kind        Kind
}

// Photon is the mutable tracking state threaded through the tracker,
// forced-detection sampler, weight window, and collimator tracker.
//
// Invariants (spec.md §3): (XIdx,YIdx,SliceIdx) always address the voxel
// containing Pos unless the photon is outside the object, in which case
// they hold the last voxel visited; CurrentWeight equals PrimaryWeight
// while the photon has never scattered, ScatterWeight after its first
// scatter.
type Photon struct {
	HistoryID uuid.UUID

	Pos    geom.Position
	Dir    geom.Direction
	Energy float64 // keV

	TravelDistance float64

	SliceIdx, XIdx, YIdx, AngleIdx int

	NumScattersObj int
	NumScattersCol int

	DecayWeight   float64
	PrimaryWeight float64
	ScatterWeight float64
	CurrentWeight float64

	// ScatterTargetWeight is set once at emission from the productivity
	// table's max cell for the photon's starting (sliceIdx, angleIdx),
	// per spec.md §4.4's "max table... consulted by the weight window";
	// internal/weightwindow only ever reads this field back, it never
	// calls productivity.Table.Max itself.
	ScatterTargetWeight float64

	// FDAttempts is how many independent forced-detection samples to draw
	// at each subsequent forced-detection opportunity, each weighted
	// ScatterWeight/FDAttempts, per spec.md §4.7's Split outcome: "weights
	// are not modified at split time... each child gets scatter_weight/n
	// at the point of subsequent forced detection." A Split decision sets
	// this count; it never forks the photon's own transport. Zero (the
	// unsplit default) means one attempt.
	FDAttempts int

	Flags Flags
}

func (p *Photon) HasScattered() bool { return p.NumScattersObj > 0 || p.NumScattersCol > 0 }

// MarkScattered transitions CurrentWeight from PrimaryWeight to
// ScatterWeight on a photon's first scatter, per spec.md §3's invariant.
func (p *Photon) MarkScattered() {
	p.CurrentWeight = p.ScatterWeight
}

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// NewHistoryID mints a fresh identity for a surviving photon handed to
// the scoring sink, grounded on the teacher's use of uuid for entity
// identity, generalized to photon/decay identity.
func NewHistoryID() uuid.UUID { return uuid.New() }

// DecayTimeFromScanStart converts a wall-clock offset to the ns-since-
// scan-start representation spec.md §3 uses for Decay.decayTime.
func DecayTimeFromScanStart(scanStart time.Time, at time.Time) float64 {
	return float64(at.Sub(scanStart).Nanoseconds())
}
