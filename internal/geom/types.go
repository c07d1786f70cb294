// Package geom implements the geometry primitives (spec component C2):
// cylinders, ray/cylinder intersection, tapered-wall cone intersection,
// and acceptance-angle geometry. It provides no positional frame
// conversions.
//
// Vector arithmetic is grounded on the teacher's
// voxelrt/rt/volume/primitives.go (Sphere/Cube/Cone fills built from
// mgl32.Vec3 dot/sub/normalize/cross) and voxelrt/rt/core/transform.go
// (object<->world frame conversions), generalized here to mgl64.Vec3 for
// the double-precision direction-cosine invariant spec.md §3 requires.
package geom

import "github.com/go-gl/mathgl/mgl64"

// Position is a point in the world frame, z along the tomograph axis.
type Position = mgl64.Vec3

// Direction is a unit vector; cx*cx+cy*cy+cz*cz == 1 is an invariant.
// Any externally supplied direction must be renormalized before use so
// the invariant holds.
type Direction = mgl64.Vec3

// Normalize returns d rescaled to unit length, restoring the direction
// invariant spec.md §3 requires of any externally supplied direction.
func Normalize(d Direction) Direction {
	return d.Normalize()
}

// Cylinder is a right circular cylinder aligned to the z axis in normal
// operation (CenterX == CenterY == 0); the center fields exist only so
// debugging instances may offset them, per spec.md §3.
type Cylinder struct {
	Radius  float64
	ZMin    float64
	ZMax    float64
	CenterX float64
	CenterY float64
}

// Intersection is the entry/exit distance pair returned by
// WillIntersectCritZone.
type Intersection struct {
	DistToEnter float64
	DistToExit  float64
}
