package tracker

// Cell is one voxel segment of a previously marched path: the distance
// traveled through it and the material attenuation encountered there.
// Callers fill a CellList through Append, and CalcNewPosition reuses it
// on a subsequent call at the same scatter site, per spec.md §4.5.
// internal/sim passes a list it never appends to, so its walks always
// fall back to a fresh voxel march.
type Cell struct {
	Dist float64
	Mu   float64
}

// CellList is the explicit scratch buffer spec.md §9 prescribes in place
// of the original implementation's hidden "cells_in_use" global: callers
// own one instance per in-flight photon and Reset it before reuse, which
// removes any stale-state hazard between photons.
type CellList struct {
	Cells []Cell
}

func (c *CellList) Reset() {
	c.Cells = c.Cells[:0]
}

func (c *CellList) Append(dist, mu float64) {
	c.Cells = append(c.Cells, Cell{Dist: dist, Mu: mu})
}
