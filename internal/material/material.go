// Package material defines the material oracle interface (spec component
// C3): given a material index and energy, it returns linear attenuation
// and scatter probabilities. The real cross-section ingestion is an
// external collaborator (spec.md §1); this package only specifies the
// interface plus an in-memory table-driven implementation usable in
// tests, grounded on the teacher's voxelrt/rt/core/material.go indexed
// material-table pattern (a small value struct looked up by index),
// generalized here from rendering properties (BaseColor/Roughness) to
// physical cross-section properties.
package material

// Index identifies a material; voxels in internal/voxel store this value.
type Index int

// Oracle is the interface the tracker consults for attenuation and
// scattering probabilities. There are conceptually two oracles in a full
// simulation (object materials, tomograph/collimator materials) sharing
// this same signature, per spec.md §6.
type Oracle interface {
	// Attenuation returns mu (1/cm) for matIdx at energy E (keV).
	Attenuation(matIdx Index, energyKeV float64) float64
	// ProbScatter returns P(scatter) for matIdx at energy E, given
	// whether coherent scattering is being modeled.
	ProbScatter(matIdx Index, energyKeV float64, modelCoherent bool) float64
	// ProbComptonCondnl returns P(Compton | scatter) for matIdx at
	// energy E, given whether coherent scattering is being modeled.
	ProbComptonCondnl(matIdx Index, energyKeV float64, modelCoherent bool) float64
	// SampleCoherentTheta samples a coherent scattering angle (rad).
	SampleCoherentTheta(matIdx Index, energyKeV float64) float64
}

// Record holds the per-material properties of the in-memory test double.
// Fields are exactly the quantities Oracle exposes, expressed at a single
// reference energy plus a constant coherent fraction and scattering angle
// — sufficient for controlled unit tests (e.g. a homogeneous-slab
// attenuation test) without modeling an energy-dependent cross section.
type Record struct {
	AttenuationPerCm   float64
	ProbScatterVal     float64
	ProbComptonCondVal float64
	CoherentThetaRad   float64
}

// Table is a simple index-addressed Oracle backed by a slice of Record,
// grounded on the teacher's Material table indexed by a small integer id.
type Table struct {
	records []Record
}

func NewTable(records []Record) *Table {
	return &Table{records: append([]Record(nil), records...)}
}

func (t *Table) Attenuation(matIdx Index, _ float64) float64 {
	return t.records[matIdx].AttenuationPerCm
}

func (t *Table) ProbScatter(matIdx Index, _ float64, _ bool) float64 {
	return t.records[matIdx].ProbScatterVal
}

func (t *Table) ProbComptonCondnl(matIdx Index, _ float64, _ bool) float64 {
	return t.records[matIdx].ProbComptonCondVal
}

func (t *Table) SampleCoherentTheta(matIdx Index, _ float64) float64 {
	return t.records[matIdx].CoherentThetaRad
}
