// Package collimator implements the Monte Carlo PET collimator tracker
// (spec component C10): a layered cylindrical-segment geometry (parallel
// or tapered) the photon walks after leaving the voxel object, sharing
// the Compton/coherent/absorption decision policy of internal/tracker
// but without a voxel grid. Grounded on spec.md §4.8 and
// original_source/src/Collimator.c / colMCPET*.c's layer/segment
// partition, adapted to the explicit dispatch table spec.md §9 asks for
// in place of the original's shared-fallthrough switch.
package collimator

import (
	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/material"
)

// SegType distinguishes a cylindrical-shell segment from a conical
// frustum one, per spec.md §3's MCPETCol geometry.
type SegType int

const (
	Parallel SegType = iota
	Tapered
)

// Segment is one axial partition of a layer, per spec.md §3.
type Segment struct {
	Type        SegType
	MaterialIdx material.Index

	InnerR, OuterR                   float64
	InnerMinZ, InnerMaxZ             float64
	OuterMinZ, OuterMaxZ             float64
}

// Layer is an ordered sequence of axially-partitioning segments sharing a
// common inner and outer radius, per spec.md §3 ("Layers are listed from
// smallest innermost radius outward; segments inside a layer partition
// the layer axially").
type Layer struct {
	Segments []Segment
}

// InnerCylinder returns the layer's inner bounding cylinder: the first
// segment's inner radius, with a z range spanning the min/max InnerMinZ/
// InnerMaxZ across every segment in the layer, per spec.md §4.8.
func (l *Layer) InnerCylinder() geom.Cylinder {
	zMin, zMax := l.Segments[0].InnerMinZ, l.Segments[0].InnerMaxZ
	for _, s := range l.Segments[1:] {
		if s.InnerMinZ < zMin {
			zMin = s.InnerMinZ
		}
		if s.InnerMaxZ > zMax {
			zMax = s.InnerMaxZ
		}
	}
	return geom.Cylinder{Radius: l.Segments[0].InnerR, ZMin: zMin, ZMax: zMax}
}

// OuterCylinder mirrors InnerCylinder for the layer's outer radius.
func (l *Layer) OuterCylinder() geom.Cylinder {
	zMin, zMax := l.Segments[0].OuterMinZ, l.Segments[0].OuterMaxZ
	for _, s := range l.Segments[1:] {
		if s.OuterMinZ < zMin {
			zMin = s.OuterMinZ
		}
		if s.OuterMaxZ > zMax {
			zMax = s.OuterMaxZ
		}
	}
	return geom.Cylinder{Radius: l.Segments[0].OuterR, ZMin: zMin, ZMax: zMax}
}

// Geometry is the full layered collimator, layers ordered innermost
// first, per spec.md §3.
type Geometry struct {
	Layers []Layer
}

// Validate enforces spec.md §4.8's construction requirement: parallel
// segments must have matching inner/outer z, failing with a Configuration
// error otherwise.
func (g *Geometry) Validate() error {
	if len(g.Layers) == 0 {
		return errs.New(errs.Configuration, "collimator geometry has no layers")
	}
	for _, layer := range g.Layers {
		if len(layer.Segments) == 0 {
			return errs.New(errs.Configuration, "collimator layer has no segments")
		}
		for _, s := range layer.Segments {
			if s.Type == Parallel && (s.InnerMinZ != s.OuterMinZ || s.InnerMaxZ != s.OuterMaxZ) {
				return errs.New(errs.Configuration, "parallel segment has mismatched inner/outer z")
			}
		}
	}
	return nil
}
