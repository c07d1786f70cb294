package forcedet

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/geom"
)

// Uniform01 is the minimal RNG surface ScatterSample needs.
type Uniform01 interface {
	Uniform01() float64
}

// ScatterSampleResult is the outcome of forcing a scatter toward the
// detector acceptance region, per spec.md §4.6.
type ScatterSampleResult struct {
	NewDir       geom.Direction
	NewEnergyKeV float64
	WeightFactor float64
}

// ScatterSample implements spec.md §4.6's scatter sampling at a site with
// incoming photon (pos, inDir, einKeV): it computes the acceptance range
// via internal/geom, restricts sampling to the reachable outgoing-cosTheta
// bands (there are two, symmetric about 0, since the acceptance envelope
// is expressed as a sine band reachable from either "pole"), samples a
// cell proportional to its conditional Klein-Nishina density, and
// reweights by KN(cosThetaScat)/(chosenBinDensity*totalKN(Ein)) so the
// estimator stays unbiased (spec.md §4.6 step 7).
//
// ok is false when the acceptance range is empty (the scatter site is
// uselessly hidden from the target, spec.md §7's "empty-acceptance case")
// or the sampled energy falls below minEnergyKeV (a sampling rejection,
// not an error). Both are local, non-error discards the caller should
// fold into the productivity table's rejected-weight counters.
func (t *Table) ScatterSample(g Uniform01, pos geom.Position, inDir geom.Direction, einKeV float64, targetCyl geom.Cylinder, acceptanceSine, minEnergyKeV float64) (ScatterSampleResult, bool) {
	minSine, maxSine, ok := geom.AcceptanceRange(pos, targetCyl, acceptanceSine)
	if !ok {
		return ScatterSampleResult{}, false
	}

	lowAbsCos := sqrt1minus(maxSine)
	highAbsCos := sqrt1minus(minSine)
	if lowAbsCos > highAbsCos {
		lowAbsCos, highAbsCos = highAbsCos, lowAbsCos
	}

	iei := t.EnergyIndex(einKeV)
	iwi := t.CosInIndex(inDir.Z())

	type band struct{ lo, hi int }
	var bands []band
	if lo, hi, has := t.iwoRangeFor(lowAbsCos, highAbsCos); has {
		bands = append(bands, band{lo, hi})
	}
	if lo, hi, has := t.iwoRangeFor(-highAbsCos, -lowAbsCos); has {
		bands = append(bands, band{lo, hi})
	}
	if len(bands) == 0 {
		return ScatterSampleResult{}, false
	}

	var total float64
	for _, b := range bands {
		total += t.iwoMarginalRangeSum(iei, iwi, b.lo, b.hi)
	}
	if total <= 0 {
		return ScatterSampleResult{}, false
	}

	target := g.Uniform01() * total
	iwo := bands[len(bands)-1].hi
	found := false
	for _, b := range bands {
		for w := b.lo; w <= b.hi; w++ {
			m := t.iwoMarginal(iei, iwi, w)
			if target <= m {
				iwo = w
				found = true
				break
			}
			target -= m
		}
		if found {
			break
		}
	}

	ipoLast := t.cumIPOLast(iei, iwi, iwo)
	ipo := t.numIPO - 1
	if ipoLast > 0 {
		ipoTarget := g.Uniform01() * ipoLast
		for p := 0; p < t.numIPO; p++ {
			if ipoTarget <= t.cumIPOAt(iei, iwi, iwo, p) {
				ipo = p
				break
			}
		}
	}

	cell := t.densityAt(iei, iwi, iwo, ipo)
	if cell <= 0 {
		return ScatterSampleResult{}, false
	}
	chosenBinDensity := cell / total

	cosOutLo, cosOutHi := t.cosOutBinEdges(iwo)
	cosOut := cosOutLo + g.Uniform01()*(cosOutHi-cosOutLo)
	phiLo, phiHi := t.phiBinEdges(ipo)
	deltaPhi := phiLo + g.Uniform01()*(phiHi-phiLo)

	cosIn := inDir.Z()
	xin := sqrt1minus(cosIn)
	sinOut := sqrt1minus(cosOut)
	cosThetaScat := cosIn*cosOut + xin*sinOut*math.Cos(deltaPhi)

	newEnergy := comptonEnergy(einKeV, cosThetaScat)
	if newEnergy < minEnergyKeV {
		return ScatterSampleResult{}, false
	}

	phiIn := math.Atan2(inDir.Y(), inDir.X())
	phiOut := phiIn + deltaPhi
	newDir := geom.Direction{sinOut * math.Cos(phiOut), sinOut * math.Sin(phiOut), cosOut}

	weight := kleinNishina(einKeV, cosThetaScat) / (chosenBinDensity * totalKN(einKeV))

	return ScatterSampleResult{NewDir: newDir, NewEnergyKeV: newEnergy, WeightFactor: weight}, true
}
