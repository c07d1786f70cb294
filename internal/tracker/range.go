package tracker

import (
	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/voxel"
)

// positronRangeEnergyKeV is the fixed attenuation-lookup energy the
// positron-range march uses, approximating the positron's range as
// bounded by material density near its endpoint energy rather than its
// true slowing-down spectrum. spec.md §9 flags this as an approximation
// carried over from the source material, not a physics law; an
// implementer wanting isotope-dependent range would replace this
// constant with a per-isotope value.
const positronRangeEnergyKeV = 1000.0

// RangeResult is the outcome of CalcRange: the positron's endpoint and
// whether it left the object before exhausting its free-path budget
// (Discard), per spec.md §4.5.
type RangeResult struct {
	Pos                  geom.Position
	SliceIdx, XIdx, YIdx int
	Discard              bool
}

// CalcRange runs the same voxel march as CalcNewPosition but uses
// positronRangeEnergyKeV for every attenuation lookup regardless of the
// photon's actual energy, and has no target-cylinder projection: leaving
// the object before the budget is exhausted simply discards the range
// walk, per spec.md §4.5.
func (ctx *Context) CalcRange(budget float64, pos geom.Position, dir geom.Direction, sliceIdx, xIdx, yIdx int) (RangeResult, error) {
	for step := 0; step < maxMarchSteps; step++ {
		s := &ctx.Object.Slices[sliceIdx]
		matIdx, err := ctx.Object.MaterialAt(sliceIdx, xIdx, yIdx)
		if err != nil {
			return RangeResult{}, err
		}
		mu := ctx.Oracle.Attenuation(matIdx, positronRangeEnergyKeV)

		dist, axis := voxel.NextFace(s, xIdx, yIdx, pos, dir)

		atten := dist * mu
		if mu > 0 && atten >= budget {
			travel := budget / mu
			newPos := advance(pos, dir, travel)
			return RangeResult{Pos: newPos, SliceIdx: sliceIdx, XIdx: xIdx, YIdx: yIdx}, nil
		}

		budget -= atten
		pos = advance(pos, dir, dist)

		switch axis {
		case voxel.AxisX, voxel.AxisY:
			xIdx, yIdx = voxel.StepIndices(xIdx, yIdx, axis, dir)
			if xIdx < 0 || xIdx >= s.NumAttX || yIdx < 0 || yIdx >= s.NumAttY {
				return RangeResult{Pos: pos, SliceIdx: sliceIdx, XIdx: xIdx, YIdx: yIdx, Discard: true}, nil
			}
		case voxel.AxisZ:
			if dir.Z() > 0 {
				sliceIdx++
			} else {
				sliceIdx--
			}
			if sliceIdx < 0 || sliceIdx >= len(ctx.Object.Slices) {
				return RangeResult{Pos: pos, SliceIdx: sliceIdx, XIdx: xIdx, YIdx: yIdx, Discard: true}, nil
			}
			next := &ctx.Object.Slices[sliceIdx]
			xIdx, yIdx = voxel.FirstIndicesInSlice(next, pos)
		}
	}
	return RangeResult{}, errs.New(errs.RuntimeInvariant, "positron range march exceeded step budget")
}
