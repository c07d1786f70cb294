// Package tracker implements the photon tracker (spec component C6):
// voxel ray-marching through the attenuation map with free-path-limited
// projection, positron-range marching, and the critical-zone free-path
// decomposition used by forced detection. Grounded on spec.md §4.3/§4.5
// and the teacher's voxelrt/rt/core ray-stepping idiom (a position plus a
// direction advanced step by step against a spatial structure), adapted
// here from a BVH walk to the voxel grid walk internal/voxel exposes.
package tracker

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/material"
	"github.com/phg-sim/gammatrack/internal/voxel"
)

// maxMarchSteps bounds the voxel-march loop as a safety net against a
// direction/grid combination that would otherwise step forever under
// roundoff; spec.md §7 treats this as a runtime invariant violation.
const maxMarchSteps = 1_000_000

// Uniform01 is the minimal RNG surface the tracker needs to sample free
// paths, satisfied by *rng.MT.
type Uniform01 interface {
	Uniform01() float64
	ExpFreePaths() float64
}

// Outcome classifies how a tracking step ended, per spec.md §4.5.
//
// AxialCross (a voxel boundary crossed in z, still inside the object) is
// never itself returned from CalcNewPosition: marchVoxels resolves it
// internally by stepping to the next slice's grid and continuing the
// same march, exactly as it already does for an x/y voxel-face crossing,
// rather than returning control to the caller once per slice boundary.
// This mirrors internal/collimator.Track's own documented choice to
// resolve its AxialCross/LayerCross transitions internally and surface
// only Interact/Discard/Detect.
type Outcome int

const (
	Interact Outcome = iota
	AxialCross
	LayerCross
	Discard
	Detect
)

// Result is the outcome of one CalcNewPosition call (CalcRange returns a
// RangeResult).
type Result struct {
	Pos                    geom.Position
	Dir                    geom.Direction
	TravelDistance         float64
	SliceIdx, XIdx, YIdx   int
	Outcome                Outcome
}

// Context bundles the immutable, shared-read-only handles the tracker
// consults, per spec.md §5 ("simulation context passed to every
// routine" replacing per-component globals, spec.md §9).
type Context struct {
	Object   *voxel.Object
	Oracle   material.Oracle
	ObjectCyl geom.Cylinder
	TargetCyl geom.Cylinder
	LimitCyl  geom.Cylinder

	// AcceptanceSine is sin(acceptanceAngle); a leaving photon is
	// detectable only if sin(angle from z axis) <= AcceptanceSine.
	AcceptanceSine float64

	// HandsOffToCollimator, when true, makes CalcNewPosition return
	// LayerCross (rather than resolving Detect/Discard itself) when the
	// photon leaves the voxel object, per spec.md §2's data flow ("on
	// leaving the object it is handed to C10 or the external SPECT
	// collimator"). When false, the tracker performs the direct
	// target-cylinder projection spec.md §4.5 step 2 describes, which is
	// the path forced detection and FD-less SPECT/PET-in-vacuum runs use.
	HandsOffToCollimator bool
}

// CalcNewPosition implements spec.md §4.5's calcNewPosition: if cells is
// nonempty, it is a previously built cell list (a C7 byproduct) walked to
// find the interaction point without a fresh voxel march; otherwise a
// full voxel march samples one exponential free-paths budget for the
// entire traversal. Cosine clamping (spec.md §4.3 step 4) is applied
// inside voxel.NextFace.
func (ctx *Context) CalcNewPosition(g Uniform01, p geom.Position, dir geom.Direction, energyKeV float64, sliceIdx, xIdx, yIdx int, cells *CellList) (Result, error) {
	budget := g.ExpFreePaths()
	pos := p
	traveled := 0.0

	if cells != nil && len(cells.Cells) > 0 {
		for _, c := range cells.Cells {
			atten := c.Dist * c.Mu
			if c.Mu > 0 && atten >= budget {
				travel := budget / c.Mu
				newPos := advance(pos, dir, travel)
				si, xi, yi, inside := ctx.Object.Locate(newPos)
				if !inside {
					si, xi, yi = sliceIdx, xIdx, yIdx
				}
				return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + travel, SliceIdx: si, XIdx: xi, YIdx: yi, Outcome: Interact}, nil
			}
			budget -= atten
			pos = advance(pos, dir, c.Dist)
			traveled += c.Dist
		}
		if si, xi, yi, inside := ctx.Object.Locate(pos); inside {
			sliceIdx, xIdx, yIdx = si, xi, yi
		} else {
			return ctx.handleObjectExit(pos, dir, traveled)
		}
	}

	return ctx.marchVoxels(pos, dir, energyKeV, sliceIdx, xIdx, yIdx, budget, traveled)
}

func (ctx *Context) marchVoxels(pos geom.Position, dir geom.Direction, energyKeV float64, sliceIdx, xIdx, yIdx int, budget, traveled float64) (Result, error) {
	for step := 0; step < maxMarchSteps; step++ {
		s := &ctx.Object.Slices[sliceIdx]
		matIdx, err := ctx.Object.MaterialAt(sliceIdx, xIdx, yIdx)
		if err != nil {
			return Result{}, err
		}
		mu := ctx.Oracle.Attenuation(matIdx, energyKeV)

		dist, axis := voxel.NextFace(s, xIdx, yIdx, pos, dir)

		atten := dist * mu
		if mu > 0 && atten >= budget {
			travel := budget / mu
			newPos := advance(pos, dir, travel)
			return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + travel, SliceIdx: sliceIdx, XIdx: xIdx, YIdx: yIdx, Outcome: Interact}, nil
		}

		budget -= atten
		pos = advance(pos, dir, dist)
		traveled += dist

		switch axis {
		case voxel.AxisX, voxel.AxisY:
			xIdx, yIdx = voxel.StepIndices(xIdx, yIdx, axis, dir)
			if xIdx < 0 || xIdx >= s.NumAttX || yIdx < 0 || yIdx >= s.NumAttY {
				return ctx.handleObjectExit(pos, dir, traveled)
			}
		case voxel.AxisZ:
			// AxialCross: resolved in place, see the Outcome doc comment.
			if dir.Z() > 0 {
				sliceIdx++
			} else {
				sliceIdx--
			}
			if sliceIdx < 0 || sliceIdx >= len(ctx.Object.Slices) {
				return ctx.handleObjectExit(pos, dir, traveled)
			}
			next := &ctx.Object.Slices[sliceIdx]
			xIdx, yIdx = voxel.FirstIndicesInSlice(next, pos)
		}
	}
	return Result{}, errs.New(errs.RuntimeInvariant, "voxel march exceeded step budget")
}

// handleObjectExit resolves the event of leaving the voxel object: either
// a hand-off to a downstream collimator tracker (LayerCross), or a direct
// projection to the target cylinder classified as Detect/Discard, per
// spec.md §4.5 step 2 and §2's data-flow note.
func (ctx *Context) handleObjectExit(pos geom.Position, dir geom.Direction, traveled float64) (Result, error) {
	if ctx.HandsOffToCollimator {
		return Result{Pos: pos, Dir: dir, TravelDistance: traveled, Outcome: LayerCross}, nil
	}

	newPos, dist, hit := geom.ProjectToCylinder(pos, dir, ctx.TargetCyl)
	if !hit {
		return Result{Pos: pos, Dir: dir, TravelDistance: traveled, Outcome: Discard}, nil
	}
	if newPos.Z() < ctx.LimitCyl.ZMin || newPos.Z() > ctx.LimitCyl.ZMax {
		return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + dist, Outcome: Discard}, nil
	}
	sinTheta := math.Sqrt(math.Max(0, 1-dir.Z()*dir.Z()))
	if sinTheta > ctx.AcceptanceSine {
		return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + dist, Outcome: Discard}, nil
	}
	return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + dist, Outcome: Detect}, nil
}

func advance(pos geom.Position, dir geom.Direction, dist float64) geom.Position {
	return geom.Position{pos.X() + dir.X()*dist, pos.Y() + dir.Y()*dist, pos.Z() + dir.Z()*dist}
}

// CriticalZoneFreePaths decomposes the free paths accumulated between
// entering and exiting the critical zone (spec.md §4.5's "critical-zone
// free-path decomposition"): it runs a fresh voxel march to distToExit
// and splits the total attenuation accumulated at distToEnter.
func (ctx *Context) CriticalZoneFreePaths(pos geom.Position, dir geom.Direction, energyKeV float64, sliceIdx, xIdx, yIdx int, distToEnter, distToExit float64) (fpToEnter, fpToExit float64, err error) {
	traveled := 0.0
	markedEnter := false
	for step := 0; step < maxMarchSteps && traveled < distToExit; step++ {
		s := &ctx.Object.Slices[sliceIdx]
		matIdx, merr := ctx.Object.MaterialAt(sliceIdx, xIdx, yIdx)
		if merr != nil {
			return 0, 0, merr
		}
		mu := ctx.Oracle.Attenuation(matIdx, energyKeV)

		dist, axis := voxel.NextFace(s, xIdx, yIdx, pos, dir)
		remaining := distToExit - traveled
		if dist > remaining {
			dist = remaining
		}

		segEnd := traveled + dist
		if !markedEnter && segEnd >= distToEnter {
			fpToEnter = fpToExit + mu*(distToEnter-traveled)
			markedEnter = true
		}
		fpToExit += mu * dist

		pos = advance(pos, dir, dist)
		traveled = segEnd
		if traveled >= distToExit {
			break
		}

		switch axis {
		case voxel.AxisX, voxel.AxisY:
			xIdx, yIdx = voxel.StepIndices(xIdx, yIdx, axis, dir)
		case voxel.AxisZ:
			if dir.Z() > 0 {
				sliceIdx++
			} else {
				sliceIdx--
			}
			if sliceIdx < 0 || sliceIdx >= len(ctx.Object.Slices) {
				return fpToEnter, fpToExit, nil
			}
			next := &ctx.Object.Slices[sliceIdx]
			xIdx, yIdx = voxel.FirstIndicesInSlice(next, pos)
		}
	}
	if !markedEnter {
		fpToEnter = fpToExit
	}
	return fpToEnter, fpToExit, nil
}
