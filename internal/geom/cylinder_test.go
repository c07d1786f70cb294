package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectToCylinderHitWithinZBand(t *testing.T) {
	cyl := Cylinder{Radius: 10, ZMin: -5, ZMax: 5}
	pos := Position{0, 0, 0}
	dir := Direction{1, 0, 0}
	newPos, dist, ok := ProjectToCylinder(pos, dir, cyl)
	require.True(t, ok)
	require.InDelta(t, 10.0, dist, 1e-9)
	require.InDelta(t, 10.0, newPos.X(), 1e-9)
}

func TestProjectToCylinderNoneWhenAxialCrossingOutsideZBand(t *testing.T) {
	// property 7: returns None iff the axial crossing falls outside [zMin,zMax]
	cyl := Cylinder{Radius: 10, ZMin: -5, ZMax: 5}
	pos := Position{0, 0, 0}
	dir := Direction{1, 0, 1}.Normalize() // z grows fast, will cross radius 10 at z=10, outside band
	_, _, ok := ProjectToCylinder(pos, dir, cyl)
	require.False(t, ok)
}

func TestProjectToCylinderHitsWhenAxialCrossingInsideZBand(t *testing.T) {
	cyl := Cylinder{Radius: 10, ZMin: -50, ZMax: 50}
	pos := Position{0, 0, 0}
	dir := Direction{1, 0, 1}.Normalize()
	_, _, ok := ProjectToCylinder(pos, dir, cyl)
	require.True(t, ok)
}

func TestTaperedWallIntersectionReducesToPlaneWhenFlat(t *testing.T) {
	// innerZ == outerZ: reduces to (outerZ - z)/cz
	pos := Position{0, 0, 0}
	dir := Direction{0, 0, 1}
	dist, ok := TaperedWallIntersection(pos, dir, 5, 10, 3, 3)
	require.True(t, ok)
	require.InDelta(t, 3.0, dist, 1e-9)
}

func TestTaperedWallIntersectionMovingAwayFromPlaneIsNonpositive(t *testing.T) {
	pos := Position{0, 0, 10}
	dir := Direction{0, 0, 1} // moving away from z=3
	_, ok := TaperedWallIntersection(pos, dir, 5, 10, 3, 3)
	require.False(t, ok)
}

func TestTaperedWallIntersectionFrustum(t *testing.T) {
	// Cone from r=5 at z=0 to r=10 at z=10; a horizontal ray from the axis
	// at z=5 should hit the wall where its radius is 7.5.
	pos := Position{0, 0, 5}
	dir := Direction{1, 0, 0}
	dist, ok := TaperedWallIntersection(pos, dir, 5, 10, 0, 10)
	require.True(t, ok)
	// at z=5 radius should be 7.5
	require.InDelta(t, 7.5, dist, 1e-6)
}

func TestWillIntersectCritZoneAlreadyInside(t *testing.T) {
	object := Cylinder{Radius: 10, ZMin: -100, ZMax: 100}
	target := Cylinder{Radius: 20, ZMin: -100, ZMax: 100}
	limit := Cylinder{Radius: 20, ZMin: -100, ZMax: 100}
	pos := Position{15, 0, 0} // between object and target radius
	dir := Direction{1, 0, 0}
	iv, ok := WillIntersectCritZone(pos, dir, object, target, limit)
	require.True(t, ok)
	require.Equal(t, 0.0, iv.DistToEnter)
	require.InDelta(t, 5.0, iv.DistToExit, 1e-9)
}

func TestWillIntersectCritZoneFromInsideObject(t *testing.T) {
	object := Cylinder{Radius: 10, ZMin: -100, ZMax: 100}
	target := Cylinder{Radius: 20, ZMin: -100, ZMax: 100}
	limit := Cylinder{Radius: 20, ZMin: -100, ZMax: 100}
	pos := Position{0, 0, 0}
	dir := Direction{1, 0, 0}
	iv, ok := WillIntersectCritZone(pos, dir, object, target, limit)
	require.True(t, ok)
	require.InDelta(t, 10.0, iv.DistToEnter, 1e-9)
	require.InDelta(t, 20.0, iv.DistToExit, 1e-9)
}

func TestAcceptanceAngleSine(t *testing.T) {
	require.InDelta(t, 1.0, AcceptanceAngleSine(math.Pi/2), 1e-9)
	require.InDelta(t, 0.0, AcceptanceAngleSine(0), 1e-9)
}

func TestAcceptanceRangeWideConeSubsumesFullGeometricRange(t *testing.T) {
	target := Cylinder{Radius: 30, ZMin: -20, ZMax: 20}
	pos := Position{0, 0, 0}
	minS, maxS, ok := AcceptanceRange(pos, target, 1.0) // 90 deg cone
	require.True(t, ok)
	require.GreaterOrEqual(t, maxS, minS)
	require.LessOrEqual(t, maxS, 1.0)
}

func TestAcceptanceRangeNoneWhenOutsideTarget(t *testing.T) {
	target := Cylinder{Radius: 10, ZMin: -20, ZMax: 20}
	pos := Position{15, 0, 0} // already beyond target radius
	_, _, ok := AcceptanceRange(pos, target, 1.0)
	require.False(t, ok)
}
