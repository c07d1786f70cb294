// Package voxel implements the voxelized attenuating object (spec
// component C4): an axial stack of uniform-in-slice rectilinear grids,
// with per-voxel activity and attenuation material indices.
package voxel

import (
	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/material"
)

// Slice is one axial section of the object: the activity and attenuation
// maps share its x/y/z extent, each on its own rectilinear grid, per
// spec.md §3.
type Slice struct {
	ZMin, ZMax             float64
	XMin, XMax, YMin, YMax float64
	NumActX, NumActY       int
	NumAttX, NumAttY       int
	// Activity[y*NumActX+x] is the activity (emission) material index at
	// grid row y, column x. Row 0 is the row at YMax; y decreases with
	// increasing row index, x increases with increasing column index.
	Activity []material.Index
	// Attenuation[y*NumAttX+x] is the attenuation material index,
	// addressed on its own (possibly differently sized) grid.
	Attenuation []material.Index
}

func (s *Slice) actVoxelWidth() float64  { return (s.XMax - s.XMin) / float64(s.NumActX) }
func (s *Slice) actVoxelHeight() float64 { return (s.YMax - s.YMin) / float64(s.NumActY) }
func (s *Slice) attVoxelWidth() float64  { return (s.XMax - s.XMin) / float64(s.NumAttX) }
func (s *Slice) attVoxelHeight() float64 { return (s.YMax - s.YMin) / float64(s.NumAttY) }

// ActivityIndex returns the activity-grid material index at column x, row y.
func (s *Slice) ActivityIndex(x, y int) material.Index {
	return s.Activity[y*s.NumActX+x]
}

// AttenuationIndex returns the attenuation-grid material index at column x, row y.
func (s *Slice) AttenuationIndex(x, y int) material.Index {
	return s.Attenuation[y*s.NumAttX+x]
}

// Object is the ordered sequence of slices that make up the voxelized
// attenuating object, per spec.md §3.
type Object struct {
	Slices []Slice
}

// Validate checks the axial-contiguity and shared-extent invariants
// spec.md §3 requires, returning a Configuration SimError on violation.
func (o *Object) Validate() error {
	if len(o.Slices) == 0 {
		return errs.New(errs.Configuration, "voxel object has no slices")
	}
	for i := 0; i < len(o.Slices)-1; i++ {
		if o.Slices[i].ZMax != o.Slices[i+1].ZMin {
			return errs.New(errs.Configuration, "slices are not axially contiguous")
		}
	}
	x0min, x0max := o.Slices[0].XMin, o.Slices[0].XMax
	y0min, y0max := o.Slices[0].YMin, o.Slices[0].YMax
	for _, s := range o.Slices {
		if s.XMin != x0min || s.XMax != x0max || s.YMin != y0min || s.YMax != y0max {
			return errs.New(errs.Configuration, "slices do not share x/y extents")
		}
	}
	return nil
}

// Locate returns the (sliceIdx, xIdx, yIdx) of the attenuation voxel
// containing pos, and false if pos lies outside every slice.
func (o *Object) Locate(pos geom.Position) (sliceIdx, xIdx, yIdx int, inside bool) {
	for si, s := range o.Slices {
		if pos.Z() < s.ZMin || pos.Z() >= s.ZMax {
			if !(si == len(o.Slices)-1 && pos.Z() == s.ZMax) {
				continue
			}
		}
		if pos.X() < s.XMin || pos.X() >= s.XMax || pos.Y() < s.YMin || pos.Y() >= s.YMax {
			return 0, 0, 0, false
		}
		x := int((pos.X() - s.XMin) / s.attVoxelWidth())
		// row 0 is at YMax; y decreases with row index
		y := int((s.YMax - pos.Y()) / s.attVoxelHeight())
		if x >= s.NumAttX {
			x = s.NumAttX - 1
		}
		if y >= s.NumAttY {
			y = s.NumAttY - 1
		}
		return si, x, y, true
	}
	return 0, 0, 0, false
}

// MaterialAt returns the attenuation material index at the given voxel
// indices, erroring with RuntimeInvariant if the indices are out of range
// (spec.md §7: "out-of-range slice/voxel indices" is a runtime invariant
// violation, not a silent default).
func (o *Object) MaterialAt(sliceIdx, xIdx, yIdx int) (material.Index, error) {
	if sliceIdx < 0 || sliceIdx >= len(o.Slices) {
		return 0, errs.New(errs.RuntimeInvariant, "slice index out of range")
	}
	s := &o.Slices[sliceIdx]
	if xIdx < 0 || xIdx >= s.NumAttX || yIdx < 0 || yIdx >= s.NumAttY {
		return 0, errs.New(errs.RuntimeInvariant, "voxel index out of range")
	}
	return s.AttenuationIndex(xIdx, yIdx), nil
}
