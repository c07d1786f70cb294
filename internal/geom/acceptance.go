package geom

import "math"

// AcceptanceAngleSine returns sin(acceptanceAngleRad), the value the
// tracker compares a photon's z-cosine against when deciding Detect vs
// Discard at the target cylinder.
func AcceptanceAngleSine(acceptanceAngleRad float64) float64 {
	return math.Sin(acceptanceAngleRad)
}

// AcceptanceRange computes, for a scatter site pos, the narrowest
// cos(theta) interval (expressed as sines, per spec.md §4.2) subsumed by
// both the global acceptance cone and targetCyl's axial extent: the
// interval of transverse fractions sin(theta) for which *some* azimuth
// exists that carries a photon emitted from pos to targetCyl's lateral
// surface while landing inside [targetCyl.ZMin, targetCyl.ZMax].
//
// The envelope is built from the near/far horizontal distances to
// targetCyl's radius (R-r0 and R+r0, the extremes over azimuth, per the
// law-of-cosines chord length from a point at radius r0 to a circle of
// radius R) combined with the vertical distances to the top and bottom
// edges, matching spec.md §4.2's "measuring the sines of rays from pos to
// the near/far intersections with the top and bottom target edges".
func AcceptanceRange(pos Position, targetCyl Cylinder, globalAcceptanceSine float64) (minSine, maxSine float64, ok bool) {
	r0 := math.Hypot(pos.X()-targetCyl.CenterX, pos.Y()-targetCyl.CenterY)
	R := targetCyl.Radius
	if r0 >= R {
		return 0, 0, false
	}

	dNear := R - r0
	dFar := R + r0

	sines := make([]float64, 0, 4)
	for _, d := range []float64{dNear, dFar} {
		for _, z := range []float64{targetCyl.ZMin, targetCyl.ZMax} {
			dz := z - pos.Z()
			h := math.Hypot(d, dz)
			if h == 0 {
				continue
			}
			sines = append(sines, d/h)
		}
	}
	if len(sines) == 0 {
		return 0, 0, false
	}

	minSine, maxSine = sines[0], sines[0]
	for _, s := range sines[1:] {
		if s < minSine {
			minSine = s
		}
		if s > maxSine {
			maxSine = s
		}
	}

	if minSine > globalAcceptanceSine {
		// the whole achievable range lies outside the global cone
		return 0, 0, false
	}
	if maxSine > globalAcceptanceSine {
		maxSine = globalAcceptanceSine
	}
	if minSine > maxSine {
		return 0, 0, false
	}
	return minSine, maxSine, true
}
