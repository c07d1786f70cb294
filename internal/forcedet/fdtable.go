// Package forcedet implements the forced-detection scatter-angle sampler
// (spec component C7): a precomputed conditional Klein-Nishina table and
// the scatter-sampling/reweighting routine that forces every allowed
// scatter toward a detectable exit, per spec.md §4.6. Dense, strided
// arrays back the table throughout rather than nested pointer trees, per
// spec.md §9's instruction for FD/CBFD table memory layout, grounded on
// original_source/src/PhoHFile.c's flat-array FD table convention.
package forcedet

import "github.com/phg-sim/gammatrack/internal/errs"

// maxTableCells bounds numIEI*numIWI*numIWO*numIPO; spec.md §9 requires
// rejecting any configuration whose table would exceed a declared memory
// budget rather than growing it unbounded.
const maxTableCells = 64 * 1024 * 1024

// Table is the four-dimensional conditional Klein-Nishina table indexed
// by (incoming energy bin, incoming cosTheta bin, outgoing cosTheta bin,
// azimuth-change bin), per spec.md §3's ForceDetectionTable. Construction
// is a one-shot initialization; the table is read-only thereafter.
type Table struct {
	numIEI, numIWI, numIWO, numIPO int

	minEKeV, maxEKeV float64

	// density[idx4(iei,iwi,iwo,ipo)] is the conditional Klein-Nishina
	// density for that cell.
	density []float64
	// cumIPO[idx4(iei,iwi,iwo,ipo)] is the cumulative density over ipo at
	// fixed (iei,iwi,iwo), per spec.md §4.6 step 5's first marginal.
	cumIPO []float64
	// cumIWO[idx3(iei,iwi,iwo)] is the cumulative, over iwo, of the
	// iwo-marginal (the total density at that iwo summed over ipo), per
	// spec.md §4.6 step 5's second marginal.
	cumIWO []float64
}

// NewTable builds a table over numIEI x numIWI x numIWO x numIPO uniform
// bins: energy in [minEKeV,maxEKeV], incoming/outgoing cosTheta in
// [-1,1], azimuth change in [0,2pi). minEKeV is also the rejection floor:
// cells whose Compton-scattered energy falls below it get density 0, and
// spec.md §6 requires the caller's minimum_energy configuration to be at
// least as large as it.
func NewTable(numIEI, numIWI, numIWO, numIPO int, minEKeV, maxEKeV float64) (*Table, error) {
	cells := numIEI * numIWI * numIWO * numIPO
	if cells <= 0 || cells > maxTableCells {
		return nil, errs.New(errs.Resource, "forced-detection table size exceeds memory budget")
	}

	t := &Table{
		numIEI: numIEI, numIWI: numIWI, numIWO: numIWO, numIPO: numIPO,
		minEKeV: minEKeV, maxEKeV: maxEKeV,
		density: make([]float64, cells),
		cumIPO:  make([]float64, cells),
		cumIWO:  make([]float64, numIEI*numIWI*numIWO),
	}
	t.build()
	return t, nil
}

func (t *Table) idx4(iei, iwi, iwo, ipo int) int {
	return ((iei*t.numIWI+iwi)*t.numIWO+iwo)*t.numIPO + ipo
}

func (t *Table) idx3(iei, iwi, iwo int) int {
	return (iei*t.numIWI+iwi)*t.numIWO + iwo
}

func (t *Table) energyBinCenter(iei int) float64 {
	width := (t.maxEKeV - t.minEKeV) / float64(t.numIEI)
	return t.minEKeV + (float64(iei)+0.5)*width
}

func (t *Table) cosInBinCenter(iwi int) float64 {
	width := 2.0 / float64(t.numIWI)
	return -1 + (float64(iwi)+0.5)*width
}

func (t *Table) cosOutBinEdges(iwo int) (lo, hi float64) {
	width := 2.0 / float64(t.numIWO)
	lo = -1 + float64(iwo)*width
	return lo, lo + width
}

func (t *Table) phiBinEdges(ipo int) (lo, hi float64) {
	width := twoPi / float64(t.numIPO)
	lo = float64(ipo) * width
	return lo, lo + width
}

// EnergyIndex maps a continuous incoming energy to its bin.
func (t *Table) EnergyIndex(eKeV float64) int {
	return clampIndex(int((eKeV-t.minEKeV)/(t.maxEKeV-t.minEKeV)*float64(t.numIEI)), t.numIEI)
}

// CosInIndex maps a continuous incoming cosTheta to its bin.
func (t *Table) CosInIndex(cos float64) int {
	return clampIndex(int((cos+1)/2*float64(t.numIWI)), t.numIWI)
}

// cosOutIndex maps a continuous outgoing cosTheta to its bin.
func (t *Table) cosOutIndex(cos float64) int {
	return clampIndex(int((cos+1)/2*float64(t.numIWO)), t.numIWO)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (t *Table) densityAt(iei, iwi, iwo, ipo int) float64 {
	return t.density[t.idx4(iei, iwi, iwo, ipo)]
}

func (t *Table) cumIPOAt(iei, iwi, iwo, ipo int) float64 {
	return t.cumIPO[t.idx4(iei, iwi, iwo, ipo)]
}

func (t *Table) cumIPOLast(iei, iwi, iwo int) float64 {
	return t.cumIPOAt(iei, iwi, iwo, t.numIPO-1)
}

// iwoMarginal is the total density at (iei,iwi,iwo) summed over ipo.
func (t *Table) iwoMarginal(iei, iwi, iwo int) float64 {
	return t.cumIPOLast(iei, iwi, iwo)
}

// iwoRangeFor converts a continuous cosTheta band into an inclusive bin
// index range; ok is false if the band lies entirely outside [-1,1].
func (t *Table) iwoRangeFor(loCos, hiCos float64) (lo, hi int, ok bool) {
	if loCos > hiCos {
		loCos, hiCos = hiCos, loCos
	}
	if hiCos < -1 || loCos > 1 {
		return 0, 0, false
	}
	if loCos < -1 {
		loCos = -1
	}
	if hiCos > 1 {
		hiCos = 1
	}
	return t.cosOutIndex(loCos), t.cosOutIndex(hiCos), true
}

// iwoMarginalRangeSum sums the iwo-marginal over an inclusive bin range.
func (t *Table) iwoMarginalRangeSum(iei, iwi, lo, hi int) float64 {
	var sum float64
	for w := lo; w <= hi; w++ {
		sum += t.iwoMarginal(iei, iwi, w)
	}
	return sum
}

// build fills density and the two cumulative marginals, per spec.md
// §4.6's table-build steps 1-5.
func (t *Table) build() {
	for iei := 0; iei < t.numIEI; iei++ {
		ein := t.energyBinCenter(iei)
		for iwi := 0; iwi < t.numIWI; iwi++ {
			cosIn := t.cosInBinCenter(iwi)
			xin := sqrt1minus(cosIn)
			for iwo := 0; iwo < t.numIWO; iwo++ {
				cosOutLo, cosOutHi := t.cosOutBinEdges(iwo)
				cosOut := (cosOutLo + cosOutHi) / 2
				sinOut := sqrt1minus(cosOut)
				var runningIPO float64
				for ipo := 0; ipo < t.numIPO; ipo++ {
					phiLo, phiHi := t.phiBinEdges(ipo)
					deltaPhi := (phiLo + phiHi) / 2

					cosThetaScat := cosIn*cosOut + xin*sinOut*cosFn(deltaPhi)
					eout := comptonEnergy(ein, cosThetaScat)

					var d float64
					if eout >= t.minEKeV {
						d = kleinNishina(ein, cosThetaScat)
					}

					idx := t.idx4(iei, iwi, iwo, ipo)
					t.density[idx] = d
					runningIPO += d
					t.cumIPO[idx] = runningIPO
				}
			}
		}
	}

	for iei := 0; iei < t.numIEI; iei++ {
		for iwi := 0; iwi < t.numIWI; iwi++ {
			var running float64
			for iwo := 0; iwo < t.numIWO; iwo++ {
				running += t.iwoMarginal(iei, iwi, iwo)
				t.cumIWO[t.idx3(iei, iwi, iwo)] = running
			}
		}
	}
}
