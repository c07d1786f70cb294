// Package productivity implements the productivity / stratification table
// (spec component C5): per-slice, per-polar-angle cells used to score,
// normalize, and weight-window importance, grounded on spec.md §4.4 and
// original_source/src/ProdTbl.c (rejected-weight accumulator, text-dump
// load/close contract).
package productivity

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/phg-sim/gammatrack/internal/errs"
)

const (
	AccStratCells    = 48 // cells inside the acceptance cone
	NotAccStratCells = 12 // cells outside the acceptance cone
)

// Cell is one polar-angle bucket for a slice, disjoint and covering
// [-1, +1] in cos(theta).
type Cell struct {
	StartOfBoundary float64
	EndOfBoundary   float64
	Productivity    float64
}

// accum holds the running sums one population (primary or scatter)
// accumulates during simulation, per spec.md §4.4.
type accum struct {
	startSquared   float64
	detSquared     float64
	weightSum      float64
	hitCount       int64
	rejectedWeight float64 // supplemental, see SPEC_FULL.md
}

// sliceTable is the per-slice set of angle cells plus their accumulators.
type sliceTable struct {
	cells  []Cell
	accums []accum
}

// Table holds the primary and scatter productivity tables (one sliceTable
// per slice each) plus the derived max table, per spec.md §4.4.
type Table struct {
	acceptanceAngleRad float64
	numSlices          int

	primary []sliceTable
	scatter []sliceTable

	// petMode selects the PET mirror-cell max rule (prim(s,a)*prim(s,last-a))
	// vs the SPECT max(prim,scatter) rule.
	petMode bool

	maxTable [][]float64 // [slice][angle]
	closed   bool
}

// angleIndex returns the index of the cell containing cosTheta within a
// slice's sorted, disjoint cell list.
func angleIndex(cells []Cell, cosTheta float64) int {
	for i, c := range cells {
		if cosTheta >= c.StartOfBoundary && cosTheta <= c.EndOfBoundary {
			return i
		}
	}
	// clamp to the nearest edge cell on roundoff at the [-1,1] boundary
	if cosTheta < cells[0].StartOfBoundary {
		return 0
	}
	return len(cells) - 1
}

// NewFlat builds a single-cell-per-slice table covering [-1,+1] with
// productivity 1, used when stratification is disabled, per spec.md §4.4
// / §8 property 9.
func NewFlat(numSlices int, petMode bool) *Table {
	t := &Table{numSlices: numSlices, petMode: petMode}
	for s := 0; s < numSlices; s++ {
		cells := []Cell{{StartOfBoundary: -1, EndOfBoundary: 1, Productivity: 1}}
		t.primary = append(t.primary, sliceTable{cells: cells, accums: make([]accum, 1)})
		t.scatter = append(t.scatter, sliceTable{cells: append([]Cell(nil), cells...), accums: make([]accum, 1)})
	}
	return t
}

// NewStratified builds a table whose cells place AccStratCells evenly
// inside the acceptance cone (-cos(90-accAngle)..+cos(90-accAngle)) and
// NotAccStratCells evenly outside, symmetric about 0, per spec.md §4.4.
func NewStratified(numSlices int, acceptanceAngleRad float64, petMode bool) *Table {
	t := &Table{numSlices: numSlices, acceptanceAngleRad: acceptanceAngleRad, petMode: petMode}
	accCos := math.Cos(math.Pi/2 - acceptanceAngleRad)
	cells := buildStratifiedCells(accCos)
	for s := 0; s < numSlices; s++ {
		t.primary = append(t.primary, sliceTable{cells: append([]Cell(nil), cells...), accums: make([]accum, len(cells))})
		t.scatter = append(t.scatter, sliceTable{cells: append([]Cell(nil), cells...), accums: make([]accum, len(cells))})
	}
	return t
}

func buildStratifiedCells(accCos float64) []Cell {
	cells := make([]Cell, 0, AccStratCells+NotAccStratCells)

	// outside-cone, negative side: [-1, -accCos)
	outerWidth := (1 - accCos) / float64(NotAccStratCells/2)
	for i := 0; i < NotAccStratCells/2; i++ {
		lo := -1 + float64(i)*outerWidth
		hi := lo + outerWidth
		cells = append(cells, Cell{StartOfBoundary: lo, EndOfBoundary: hi, Productivity: 1})
	}

	// inside-cone: [-accCos, +accCos]
	innerWidth := (2 * accCos) / float64(AccStratCells)
	for i := 0; i < AccStratCells; i++ {
		lo := -accCos + float64(i)*innerWidth
		hi := lo + innerWidth
		cells = append(cells, Cell{StartOfBoundary: lo, EndOfBoundary: hi, Productivity: 1})
	}

	// outside-cone, positive side: (accCos, 1]
	for i := 0; i < NotAccStratCells/2; i++ {
		lo := accCos + float64(i)*outerWidth
		hi := lo + outerWidth
		cells = append(cells, Cell{StartOfBoundary: lo, EndOfBoundary: hi, Productivity: 1})
	}

	// guard against roundoff leaving a gap at the +1 edge
	cells[len(cells)-1].EndOfBoundary = 1
	cells[0].StartOfBoundary = -1
	return cells
}

// AngleIndex returns the cell index for cosTheta in the given slice's
// primary table (primary and scatter share identical cell boundaries).
func (t *Table) AngleIndex(sliceIdx int, cosTheta float64) int {
	return angleIndex(t.primary[sliceIdx].cells, cosTheta)
}

// AccumulateStart records a start-of-track contribution for the given
// population at (sliceIdx, angleIdx), per spec.md §4.4.
func (t *Table) AccumulateStart(scatterPopulation bool, sliceIdx, angleIdx int, decayWeight, photonWeight float64) {
	w2 := decayWeight * photonWeight * decayWeight * photonWeight
	st := t.tableFor(scatterPopulation)
	a := &st[sliceIdx].accums[angleIdx]
	a.startSquared += w2
	a.weightSum += decayWeight * photonWeight
	a.hitCount++
}

// AccumulateDetected records a detected contribution, per spec.md §4.4.
func (t *Table) AccumulateDetected(scatterPopulation bool, sliceIdx, angleIdx int, decayWeight, photonWeight float64) {
	w2 := decayWeight * photonWeight * decayWeight * photonWeight
	st := t.tableFor(scatterPopulation)
	st[sliceIdx].accums[angleIdx].detSquared += w2
}

// AccumulateRejected records rejected weight (supplemental counter, see
// SPEC_FULL.md), for a sampling-rejection event that is not an error.
func (t *Table) AccumulateRejected(scatterPopulation bool, sliceIdx, angleIdx int, weight float64) {
	st := t.tableFor(scatterPopulation)
	st[sliceIdx].accums[angleIdx].rejectedWeight += weight
}

func (t *Table) tableFor(scatterPopulation bool) []sliceTable {
	if scatterPopulation {
		return t.scatter
	}
	return t.primary
}

// ScatProductivity returns the (possibly stale-until-Close) productivity
// value for the scatter table at (sliceIdx, angleIdx); used by the weight
// window during simulation against a table already Close()d, or against
// an externally loaded input table.
func (t *Table) ScatProductivity(sliceIdx, angleIdx int) float64 {
	return t.scatter[sliceIdx].cells[angleIdx].Productivity
}

// PrimProductivity mirrors ScatProductivity for the primary table.
func (t *Table) PrimProductivity(sliceIdx, angleIdx int) float64 {
	return t.primary[sliceIdx].cells[angleIdx].Productivity
}

// Max returns the max-table value at (sliceIdx, angleIdx); valid only
// after Close.
func (t *Table) Max(sliceIdx, angleIdx int) float64 {
	return t.maxTable[sliceIdx][angleIdx]
}

// Close computes the per-cell output productivity
// sqrt(detSquared/startSquared), floors it at 1/10 of the population's
// global average productivity, builds the max table, and must be called
// exactly once after all accumulation (spec.md §4.4, §5). w receives the
// text dump (see Dump).
func (t *Table) Close(w io.Writer) error {
	if t.closed {
		return errs.New(errs.RuntimeInvariant, "productivity table closed twice")
	}
	closePopulation(t.primary)
	closePopulation(t.scatter)
	t.buildMaxTable()
	t.closed = true
	if w != nil {
		return t.Dump(w)
	}
	return nil
}

func closePopulation(tables []sliceTable) {
	var sum float64
	var n int
	for _, st := range tables {
		for _, a := range st.accums {
			if a.startSquared > 0 {
				sum += math.Sqrt(a.detSquared / a.startSquared)
				n++
			}
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	floor := avg / 10

	for si := range tables {
		for ai := range tables[si].cells {
			a := tables[si].accums[ai]
			p := 0.0
			if a.startSquared > 0 {
				p = math.Sqrt(a.detSquared / a.startSquared)
			}
			if p < floor {
				p = floor
			}
			tables[si].cells[ai].Productivity = p
		}
	}
}

func (t *Table) buildMaxTable() {
	t.maxTable = make([][]float64, t.numSlices)
	for s := 0; s < t.numSlices; s++ {
		n := len(t.primary[s].cells)
		t.maxTable[s] = make([]float64, n)
		for a := 0; a < n; a++ {
			prim := t.primary[s].cells[a].Productivity
			scat := t.scatter[s].cells[a].Productivity
			if t.petMode {
				mirror := n - 1 - a
				primProd := prim * t.primary[s].cells[mirror].Productivity
				scatProd := scat * t.scatter[s].cells[mirror].Productivity
				t.maxTable[s][a] = math.Max(primProd, scatProd)
			} else {
				t.maxTable[s][a] = math.Max(prim, scat)
			}
		}
	}
}

// Dump writes a text representation of the primary/scatter tables.
func (t *Table) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "acceptance_angle %.10g\n", t.acceptanceAngleRad)
	fmt.Fprintf(bw, "num_slices %d\n", t.numSlices)
	for si, st := range t.primary {
		for ai, c := range st.cells {
			fmt.Fprintf(bw, "primary %d %d %.10g %.10g %.10g\n", si, ai, c.StartOfBoundary, c.EndOfBoundary, c.Productivity)
		}
	}
	for si, st := range t.scatter {
		for ai, c := range st.cells {
			fmt.Fprintf(bw, "scatter %d %d %.10g %.10g %.10g\n", si, ai, c.StartOfBoundary, c.EndOfBoundary, c.Productivity)
		}
	}
	return bw.Flush()
}

// Load reads a table previously written by Dump, failing (Configuration
// error) if its acceptance angle does not match expectedAcceptanceAngle,
// per spec.md §4.4.
func Load(r io.Reader, expectedAcceptanceAngleRad float64, petMode bool) (*Table, error) {
	sc := bufio.NewScanner(r)
	t := &Table{petMode: petMode}

	// readSlices tracks, per kind, which slice indices have had at least
	// one angle cell parsed, so missing slices (a truncated or corrupt
	// dump) are rejected here rather than surfacing later as an
	// out-of-range angle lookup against an empty sliceTable.
	readSlices := map[string]map[int]bool{"primary": {}, "scatter": {}}
	kindSlices := map[string]map[int]map[int]*Cell{"primary": {}, "scatter": {}}

	for sc.Scan() {
		line := sc.Text()
		var kind string
		var si, ai int
		var lo, hi, p float64
		if n, _ := fmt.Sscanf(line, "acceptance_angle %g", &lo); n == 1 {
			if !closeEnough(lo, expectedAcceptanceAngleRad) {
				return nil, errs.New(errs.Configuration, "productivity table acceptance angle does not match configuration")
			}
			continue
		}
		if n, _ := fmt.Sscanf(line, "num_slices %d", &si); n == 1 {
			t.numSlices = si
			continue
		}
		if n, _ := fmt.Sscanf(line, "%s %d %d %g %g %g", &kind, &si, &ai, &lo, &hi, &p); n == 6 {
			m, ok := kindSlices[kind]
			if !ok {
				continue
			}
			if m[si] == nil {
				m[si] = map[int]*Cell{}
			}
			m[si][ai] = &Cell{StartOfBoundary: lo, EndOfBoundary: hi, Productivity: p}
			readSlices[kind][si] = true
			continue
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.Resource, "failed reading productivity table", err)
	}

	for _, kind := range [...]string{"primary", "scatter"} {
		for si := 0; si < t.numSlices; si++ {
			if !readSlices[kind][si] {
				return nil, errs.New(errs.Configuration, fmt.Sprintf("productivity table missing %s data for slice %d", kind, si))
			}
		}
	}

	t.primary = toSliceTables(kindSlices["primary"], t.numSlices)
	t.scatter = toSliceTables(kindSlices["scatter"], t.numSlices)
	t.buildMaxTable()
	t.closed = true
	return t, nil
}

func toSliceTables(bySlice map[int]map[int]*Cell, numSlices int) []sliceTable {
	out := make([]sliceTable, numSlices)
	for si := 0; si < numSlices; si++ {
		byAngle := bySlice[si]
		n := len(byAngle)
		cells := make([]Cell, n)
		for ai, c := range byAngle {
			cells[ai] = *c
		}
		out[si] = sliceTable{cells: cells, accums: make([]accum, n)}
	}
	return out
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}
