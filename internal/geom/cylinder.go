package geom

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/rng"
)

// ProjectToCylinder finds the smallest positive distance along dir from
// pos to cyl's lateral surface whose z lands inside [cyl.ZMin, cyl.ZMax].
// Returns (newPos, dist, true) on a hit, or (_, _, false) if no forward
// root lands within the cylinder's axial band.
func ProjectToCylinder(pos Position, dir Direction, cyl Cylinder) (Position, float64, bool) {
	dx := pos.X() - cyl.CenterX
	dy := pos.Y() - cyl.CenterY

	a := dir.X()*dir.X() + dir.Y()*dir.Y()
	b := 2 * (dx*dir.X() + dy*dir.Y())
	c := dx*dx + dy*dy - cyl.Radius*cyl.Radius

	nroots, r1, r2 := rng.SolveQuadratic(a, b, c)
	if nroots == 0 {
		return Position{}, 0, false
	}

	for _, t := range []float64{r1, r2} {
		if t <= 0 {
			continue
		}
		z := pos.Z() + t*dir.Z()
		if z >= cyl.ZMin && z <= cyl.ZMax {
			newPos := Position{pos.X() + t*dir.X(), pos.Y() + t*dir.Y(), z}
			return newPos, t, true
		}
	}
	return Position{}, 0, false
}

// TaperedWallIntersection solves the general conical-frustum quadratic
// for a tapered collimator wall whose radius varies linearly with z from
// innerR at innerZ to outerR at outerZ. When innerZ == outerZ it reduces
// to the plane intersection (outerZ-z)/cz, which is nonpositive (no
// intersection) when the ray moves away from the plane.
func TaperedWallIntersection(pos Position, dir Direction, innerR, outerR, innerZ, outerZ float64) (float64, bool) {
	if innerZ == outerZ {
		if dir.Z() == 0 {
			return 0, false
		}
		t := (outerZ - pos.Z()) / dir.Z()
		if t <= 0 {
			return 0, false
		}
		return t, true
	}

	// radius(z) = innerR + (z-innerZ)/(outerZ-innerZ) * (outerR-innerR)
	slope := (outerR - innerR) / (outerZ - innerZ)
	// r(z)^2 = (innerR + slope*(z - innerZ))^2
	// Let k = innerR - slope*innerZ so r(z) = k + slope*z
	k := innerR - slope*innerZ

	px, py, pz := pos.X(), pos.Y(), pos.Z()
	dx, dy, dz := dir.X(), dir.Y(), dir.Z()

	// (px+t*dx)^2 + (py+t*dy)^2 = (k + slope*(pz+t*dz))^2
	a := dx*dx + dy*dy - slope*slope*dz*dz
	b := 2*(px*dx+py*dy) - 2*slope*dz*(k+slope*pz)
	c := px*px + py*py - (k + slope*pz) * (k + slope*pz)

	nroots, r1, r2 := rng.SolveQuadratic(a, b, c)
	if nroots == 0 {
		return 0, false
	}
	for _, t := range []float64{r1, r2} {
		if t <= 0 {
			continue
		}
		return t, true
	}
	return 0, false
}

// WillIntersectCritZone determines whether the ray from pos along dir
// will pass through the critical zone: the annular, axially bounded shell
// radially between objectCyl and targetCyl, clipped to limitCyl's z
// range. DistToEnter == 0 means pos is already inside the zone.
func WillIntersectCritZone(pos Position, dir Direction, objectCyl, targetCyl, limitCyl Cylinder) (Intersection, bool) {
	axialLo, axialHi, axialOK := axialInterval(pos, dir, limitCyl.ZMin, limitCyl.ZMax)
	if !axialOK {
		return Intersection{}, false
	}

	outerLo, outerHi, outerOK := radialInsideInterval(pos, dir, targetCyl)
	if !outerOK {
		return Intersection{}, false
	}

	lo, hi := intersectRange(axialLo, axialHi, outerLo, outerHi)
	if lo > hi {
		return Intersection{}, false
	}

	innerLo, innerHi, innerHas := radialInsideInterval(pos, dir, objectCyl)
	if !innerHas {
		// ray never enters the object cylinder: whole [lo,hi] qualifies
		return clipForward(lo, hi)
	}

	// Exclude the open interval (innerLo, innerHi) where the ray is
	// inside the object cylinder (not yet in the critical zone).
	if innerHi <= lo || innerLo >= hi {
		return clipForward(lo, hi)
	}
	// two candidate sub-ranges: [lo, innerLo] and [innerHi, hi]
	if lo < innerLo {
		if iv, ok := clipForward(lo, innerLo); ok {
			return iv, true
		}
	}
	return clipForward(math.Max(innerHi, lo), hi)
}

func clipForward(lo, hi float64) (Intersection, bool) {
	if hi < 0 {
		return Intersection{}, false
	}
	if lo > hi {
		return Intersection{}, false
	}
	if lo < 0 {
		lo = 0
	}
	return Intersection{DistToEnter: lo, DistToExit: hi}, true
}

func intersectRange(lo1, hi1, lo2, hi2 float64) (float64, float64) {
	lo := math.Max(lo1, lo2)
	hi := math.Min(hi1, hi2)
	return lo, hi
}

// axialInterval returns the t-range over which z(t) = pos.Z()+t*dir.Z()
// lies within [zMin, zMax].
func axialInterval(pos Position, dir Direction, zMin, zMax float64) (float64, float64, bool) {
	if dir.Z() == 0 {
		if pos.Z() >= zMin && pos.Z() <= zMax {
			return math.Inf(-1), math.Inf(1), true
		}
		return 0, 0, false
	}
	t1 := (zMin - pos.Z()) / dir.Z()
	t2 := (zMax - pos.Z()) / dir.Z()
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1, t2, true
}

// radialInsideInterval returns the t-range over which the ray's radial
// distance from cyl's axis is <= cyl.Radius (i.e. inside the infinite
// cylinder, ignoring its own axial bounds).
func radialInsideInterval(pos Position, dir Direction, cyl Cylinder) (float64, float64, bool) {
	dx := pos.X() - cyl.CenterX
	dy := pos.Y() - cyl.CenterY

	a := dir.X()*dir.X() + dir.Y()*dir.Y()
	b := 2 * (dx*dir.X() + dy*dir.Y())
	c := dx*dx + dy*dy - cyl.Radius*cyl.Radius

	if a == 0 {
		// Ray is parallel to the axis: either always inside or never.
		if c <= 0 {
			return math.Inf(-1), math.Inf(1), true
		}
		return 0, 0, false
	}

	nroots, r1, r2 := rng.SolveQuadratic(a, b, c)
	if nroots < 2 {
		return 0, 0, false
	}
	return r1, r2, true
}
