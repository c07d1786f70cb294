package forcedet

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/geom"
)

// CBFDTable is the cone-beam forced-detection variant (spec.md §3's CBFD
// tables / §4.6's cone-beam paragraph): it reuses the underlying
// conditional Klein-Nishina Table but replaces the acceptance-range
// lookup with a position-dependent one derived from the focal-circle
// geometry, since a cone-beam collimator's acceptance cone shifts with
// (r,z) instead of being the fixed global cone internal/geom.AcceptanceRange
// assumes.
type CBFDTable struct {
	*Table

	FocalRadius float64 // R_F, the focal-circle radius
	ZMinCol     float64 // collimator slab axial bounds
	ZMaxCol     float64
	ThetaMaxDev float64 // maximum permitted angular deviation (rad)
}

func NewCBFD(base *Table, focalRadius, zMinCol, zMaxCol, thetaMaxDevRad float64) *CBFDTable {
	return &CBFDTable{Table: base, FocalRadius: focalRadius, ZMinCol: zMinCol, ZMaxCol: zMaxCol, ThetaMaxDev: thetaMaxDevRad}
}

// OmegaMin is the central acceptance angle at (r,z): the angle, measured
// from the z axis, of the ray from (r,z) toward the focal
// circle at the collimator slab's axial midpoint, per spec.md §4.6.
func (c *CBFDTable) OmegaMin(r, z float64) float64 {
	midZ := (c.ZMinCol + c.ZMaxCol) / 2
	return math.Atan2(c.FocalRadius-r, midZ-z)
}

// DeltaMuMin/DeltaMuMax bound the half-aperture of sin(theta) about
// sin(omegaMin), limited by sin(thetaMaxDev), per spec.md §4.6.
func (c *CBFDTable) DeltaMuMin(r, z float64) float64 { return -math.Sin(c.ThetaMaxDev) }
func (c *CBFDTable) DeltaMuMax(r, z float64) float64 { return math.Sin(c.ThetaMaxDev) }

// PositionIsAcceptable is phoTrkPositionIsAcceptable's Go counterpart: it
// projects (pos,dir) forward to the collimator slab's axial midpoint via
// the focal cone and checks the landing radius against the focal circle
// widened by the safety margin focal*sin(thetaMaxDev), per spec.md §4.6.
func (c *CBFDTable) PositionIsAcceptable(pos geom.Position, dir geom.Direction) bool {
	if dir.Z() == 0 {
		return false
	}
	midZ := (c.ZMinCol + c.ZMaxCol) / 2
	t := (midZ - pos.Z()) / dir.Z()
	if t <= 0 {
		return false
	}
	x := pos.X() + t*dir.X()
	y := pos.Y() + t*dir.Y()
	r := math.Hypot(x, y)
	margin := c.FocalRadius * math.Sin(c.ThetaMaxDev)
	return r <= c.FocalRadius+margin
}

// ScatterSampleCBFD mirrors Table.ScatterSample but derives the
// acceptance band from the cone-beam geometry: sin(omegaMin(r,z)) is
// added as the bin-center offset to a uniform Delta-mu draw before
// forming cosThetaOut, per spec.md §4.6's cone-beam paragraph.
func (c *CBFDTable) ScatterSampleCBFD(g Uniform01, pos geom.Position, inDir geom.Direction, einKeV, minEnergyKeV float64) (ScatterSampleResult, bool) {
	r := math.Hypot(pos.X(), pos.Y())
	omegaMin := c.OmegaMin(r, pos.Z())
	sinCenter := math.Sin(omegaMin)

	dMin := c.DeltaMuMin(r, pos.Z())
	dMax := c.DeltaMuMax(r, pos.Z())
	if dMin > dMax {
		return ScatterSampleResult{}, false
	}

	iei := c.EnergyIndex(einKeV)
	iwi := c.CosInIndex(inDir.Z())

	sinOutLo := clampUnit(sinCenter + dMin)
	sinOutHi := clampUnit(sinCenter + dMax)
	lowAbsCos := sqrt1minus(sinOutHi)
	highAbsCos := sqrt1minus(sinOutLo)
	if lowAbsCos > highAbsCos {
		lowAbsCos, highAbsCos = highAbsCos, lowAbsCos
	}

	lo, hi, has := c.iwoRangeFor(lowAbsCos, highAbsCos)
	if !has {
		return ScatterSampleResult{}, false
	}
	total := c.iwoMarginalRangeSum(iei, iwi, lo, hi)
	if total <= 0 {
		return ScatterSampleResult{}, false
	}

	target := g.Uniform01() * total
	iwo := hi
	for w := lo; w <= hi; w++ {
		m := c.iwoMarginal(iei, iwi, w)
		if target <= m {
			iwo = w
			break
		}
		target -= m
	}

	ipoLast := c.cumIPOLast(iei, iwi, iwo)
	ipo := c.numIPO - 1
	if ipoLast > 0 {
		ipoTarget := g.Uniform01() * ipoLast
		for p := 0; p < c.numIPO; p++ {
			if ipoTarget <= c.cumIPOAt(iei, iwi, iwo, p) {
				ipo = p
				break
			}
		}
	}

	cell := c.densityAt(iei, iwi, iwo, ipo)
	if cell <= 0 {
		return ScatterSampleResult{}, false
	}
	chosenBinDensity := cell / total

	cosOutLo, cosOutHi := c.cosOutBinEdges(iwo)
	cosOut := cosOutLo + g.Uniform01()*(cosOutHi-cosOutLo)
	phiLo, phiHi := c.phiBinEdges(ipo)
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

	if !c.PositionIsAcceptable(pos, newDir) {
		return ScatterSampleResult{}, false
	}

	return ScatterSampleResult{NewDir: newDir, NewEnergyKeV: newEnergy, WeightFactor: weight}, true
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
