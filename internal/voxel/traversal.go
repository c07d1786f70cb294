package voxel

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/geom"
)

// Axis identifies which face a voxel-traversal step crosses.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ // crossing Z means leaving the current slice (AxialCross)
)

const minCosine = 1e-7

// clampCosine biases cosines whose magnitude is below 1e-7 to ±1e-7 to
// avoid division by near-zero, per spec.md §4.3. This bias is bounded by
// a cell width over the path length and is absorbed into Monte Carlo
// noise.
func clampCosine(c float64) float64 {
	if math.Abs(c) >= minCosine {
		return c
	}
	if c < 0 {
		return -minCosine
	}
	return minCosine
}

// NextFace computes the distance from pos to the next voxel face the ray
// would cross (in X, Y within the current slice's grid, or Z at the
// slice boundary), per spec.md §4.3 step 1-3. xIdx/yIdx address the
// attenuation grid. dir's cosines are clamped per clampCosine before use.
func NextFace(s *Slice, xIdx, yIdx int, pos geom.Position, dir geom.Direction) (dist float64, axis Axis) {
	cx := clampCosine(dir.X())
	cy := clampCosine(dir.Y())
	cz := clampCosine(dir.Z())

	w := s.attVoxelWidth()
	h := s.attVoxelHeight()

	xLo := s.XMin + float64(xIdx)*w
	xHi := xLo + w
	// row 0 is the row at YMax; y decreases with row index
	yHi := s.YMax - float64(yIdx)*h
	yLo := yHi - h

	var distX, distY, distZ float64
	if cx > 0 {
		distX = (xHi - pos.X()) / cx
	} else {
		distX = (xLo - pos.X()) / cx
	}
	if cy > 0 {
		// moving toward +y means moving toward yHi (row index decreases)
		distY = (yHi - pos.Y()) / cy
	} else {
		distY = (yLo - pos.Y()) / cy
	}
	if cz > 0 {
		distZ = (s.ZMax - pos.Z()) / cz
	} else {
		distZ = (s.ZMin - pos.Z()) / cz
	}

	dist = distX
	axis = AxisX
	if distY < dist {
		dist = distY
		axis = AxisY
	}
	if distZ < dist {
		dist = distZ
		axis = AxisZ
	}
	return dist, axis
}

// StepIndices advances xIdx/yIdx by one voxel in the direction of travel
// after crossing axis, per spec.md §4.3 step 3 (y increases index as y
// decreases, the row-0-is-yMax convention).
func StepIndices(xIdx, yIdx int, axis Axis, dir geom.Direction) (newX, newY int) {
	newX, newY = xIdx, yIdx
	switch axis {
	case AxisX:
		if dir.X() > 0 {
			newX++
		} else {
			newX--
		}
	case AxisY:
		if dir.Y() > 0 {
			// moving toward +y: row index decreases
			newY--
		} else {
			newY++
		}
	}
	return newX, newY
}

// FirstIndicesInSlice computes the starting x/y voxel indices for a
// position known to lie within slice s (used on slice transitions, per
// spec.md §4.3 step 3 "resetting the x/y indices").
func FirstIndicesInSlice(s *Slice, pos geom.Position) (xIdx, yIdx int) {
	w := s.attVoxelWidth()
	h := s.attVoxelHeight()
	x := int((pos.X() - s.XMin) / w)
	y := int((s.YMax - pos.Y()) / h)
	if x < 0 {
		x = 0
	}
	if x >= s.NumAttX {
		x = s.NumAttX - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= s.NumAttY {
		y = s.NumAttY - 1
	}
	return x, y
}
