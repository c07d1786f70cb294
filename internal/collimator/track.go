package collimator

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/material"
)

// maxTrackSteps safety-bounds the internal layer/segment transition loop.
const maxTrackSteps = 100_000

// Uniform01 is the minimal RNG surface Track needs.
type Uniform01 interface {
	Uniform01() float64
	ExpFreePaths() float64
}

// Outcome classifies how one Track call ended, per spec.md §4.8/§4.5.
type Outcome int

const (
	Interact Outcome = iota
	Discard
	Detect
)

// Result is the outcome of one Track call.
type Result struct {
	Pos            geom.Position
	Dir            geom.Direction
	TravelDistance float64
	LayerIdx       int
	SegIdx         int
	Outcome        Outcome
}

// Context bundles the immutable handles Track consults.
type Context struct {
	Geometry *Geometry
	Oracle   material.Oracle
}

// segmentEvent is the explicit dispatch the §9 open question asks for in
// place of the original implementation's shared switch fall-throughs.
type segmentEvent int

const (
	eventFrontWall segmentEvent = iota
	eventBackWall
	eventInnerCyl
	eventOuterCyl
)

// Enter projects an incoming photon onto layer 0's inner cylinder and
// locates its starting segment, per spec.md §4.8 step 1. A photon already
// on that cylinder (radius within 1e-7 cm) stays where it is, at distance
// 0. It does not consume a free-path budget; call Track afterward to
// begin tracking.
func (ctx *Context) Enter(pos geom.Position, dir geom.Direction) (geom.Position, float64, int, bool) {
	if len(ctx.Geometry.Layers) == 0 {
		return pos, 0, -1, false
	}
	layer := &ctx.Geometry.Layers[0]
	inner := layer.InnerCylinder()
	if r := math.Hypot(pos.X()-inner.CenterX, pos.Y()-inner.CenterY); math.Abs(r-inner.Radius) <= 1e-7 {
		segIdx := findSegment(layer, pos.Z())
		return pos, 0, segIdx, segIdx >= 0
	}
	newPos, dist, hit := geom.ProjectToCylinder(pos, dir, inner)
	if !hit {
		return pos, 0, -1, false
	}
	segIdx := findSegment(layer, newPos.Z())
	return newPos, dist, segIdx, segIdx >= 0
}

// Track implements spec.md §4.8's tracking loop: it samples one
// exponential free-paths budget and walks layer/segment transitions
// (AxialCross, LayerCross) internally without consuming additional
// budget, returning to the caller only on Interact, Discard, or Detect —
// the same one-budget-per-call contract internal/tracker.CalcNewPosition
// uses for the voxel object.
func (ctx *Context) Track(g Uniform01, pos geom.Position, dir geom.Direction, energyKeV float64, layerIdx, segIdx int) (Result, error) {
	budget := g.ExpFreePaths()
	traveled := 0.0

	for step := 0; step < maxTrackSteps; step++ {
		if layerIdx >= len(ctx.Geometry.Layers) {
			return Result{Pos: pos, Dir: dir, TravelDistance: traveled, LayerIdx: layerIdx, SegIdx: segIdx, Outcome: Detect}, nil
		}
		if layerIdx < 0 {
			return Result{Pos: pos, Dir: dir, TravelDistance: traveled, LayerIdx: layerIdx, SegIdx: segIdx, Outcome: Discard}, nil
		}

		layer := &ctx.Geometry.Layers[layerIdx]
		if segIdx < 0 || segIdx >= len(layer.Segments) {
			return Result{Pos: pos, Dir: dir, TravelDistance: traveled, LayerIdx: layerIdx, SegIdx: segIdx, Outcome: Discard}, nil
		}
		seg := layer.Segments[segIdx]
		mu := ctx.Oracle.Attenuation(seg.MaterialIdx, energyKeV)

		inner := layer.InnerCylinder()
		outer := layer.OuterCylinder()

		dist, event, ok := nextSegmentEvent(pos, dir, seg, inner, outer)
		if !ok {
			return Result{Pos: pos, Dir: dir, TravelDistance: traveled, LayerIdx: layerIdx, SegIdx: segIdx, Outcome: Discard}, nil
		}

		atten := dist * mu
		if mu > 0 && atten >= budget {
			travel := budget / mu
			newPos := advance(pos, dir, travel)
			return Result{Pos: newPos, Dir: dir, TravelDistance: traveled + travel, LayerIdx: layerIdx, SegIdx: segIdx, Outcome: Interact}, nil
		}

		budget -= atten
		pos = advance(pos, dir, dist)
		traveled += dist

		switch event {
		case eventFrontWall:
			segIdx--
		case eventBackWall:
			segIdx++
		case eventInnerCyl:
			layerIdx--
			if layerIdx >= 0 {
				segIdx = findSegment(&ctx.Geometry.Layers[layerIdx], pos.Z())
			}
		case eventOuterCyl:
			layerIdx++
			if layerIdx < len(ctx.Geometry.Layers) {
				segIdx = findSegment(&ctx.Geometry.Layers[layerIdx], pos.Z())
			}
		}
	}
	return Result{}, errs.New(errs.RuntimeInvariant, "collimator track exceeded step budget")
}

// nextSegmentEvent computes the smallest positive distance among the
// current segment's two tapered (or, degenerate, planar) end walls and
// the layer's inner/outer cylinders, and which surface it belongs to.
func nextSegmentEvent(pos geom.Position, dir geom.Direction, seg Segment, inner, outer geom.Cylinder) (float64, segmentEvent, bool) {
	type candidate struct {
		dist  float64
		event segmentEvent
		ok    bool
	}
	candidates := []candidate{}

	if d, ok := geom.TaperedWallIntersection(pos, dir, seg.InnerR, seg.OuterR, seg.InnerMinZ, seg.OuterMinZ); ok {
		candidates = append(candidates, candidate{d, eventFrontWall, true})
	}
	if d, ok := geom.TaperedWallIntersection(pos, dir, seg.InnerR, seg.OuterR, seg.InnerMaxZ, seg.OuterMaxZ); ok {
		candidates = append(candidates, candidate{d, eventBackWall, true})
	}
	if _, d, ok := geom.ProjectToCylinder(pos, dir, inner); ok {
		candidates = append(candidates, candidate{d, eventInnerCyl, true})
	}
	if _, d, ok := geom.ProjectToCylinder(pos, dir, outer); ok {
		candidates = append(candidates, candidate{d, eventOuterCyl, true})
	}

	best := candidate{}
	found := false
	for _, c := range candidates {
		if !found || c.dist < best.dist {
			best = c
			found = true
		}
	}
	return best.dist, best.event, found
}

func findSegment(layer *Layer, z float64) int {
	for i, s := range layer.Segments {
		lo := s.InnerMinZ
		if s.OuterMinZ < lo {
			lo = s.OuterMinZ
		}
		hi := s.InnerMaxZ
		if s.OuterMaxZ > hi {
			hi = s.OuterMaxZ
		}
		if z >= lo && z <= hi {
			return i
		}
	}
	return -1
}

func advance(pos geom.Position, dir geom.Direction, dist float64) geom.Position {
	return geom.Position{pos.X() + dir.X()*dist, pos.Y() + dir.Y()*dist, pos.Z() + dir.Z()*dist}
}
