package productivity

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatTableSingleCellCoveringFullRange(t *testing.T) {
	table := NewFlat(3, false)
	require.Len(t, table.primary, 3)
	require.Len(t, table.primary[0].cells, 1)
	require.Equal(t, -1.0, table.primary[0].cells[0].StartOfBoundary)
	require.Equal(t, 1.0, table.primary[0].cells[0].EndOfBoundary)
	require.Equal(t, 1.0, table.primary[0].cells[0].Productivity)

	for _, cosTheta := range []float64{-1, -0.5, 0, 0.5, 1} {
		require.Equal(t, 0, table.AngleIndex(0, cosTheta))
	}
}

func TestStratifiedTableCellCountAndCoverage(t *testing.T) {
	table := NewStratified(1, math.Pi/6, false)
	cells := table.primary[0].cells
	require.Len(t, cells, AccStratCells+NotAccStratCells)
	require.Equal(t, -1.0, cells[0].StartOfBoundary)
	require.Equal(t, 1.0, cells[len(cells)-1].EndOfBoundary)
	// cells are disjoint and ascending
	for i := 1; i < len(cells); i++ {
		require.InDelta(t, cells[i-1].EndOfBoundary, cells[i].StartOfBoundary, 1e-9)
	}
}

func TestCloseComputesSqrtRatioAndFloors(t *testing.T) {
	table := NewFlat(2, false)
	// primary: start=4 (w^2 sum), det=1 -> sqrt(1/4) = 0.5
	table.AccumulateStart(false, 0, 0, 2, 1) // decayWeight*photonWeight = 2, squared = 4
	table.AccumulateDetected(false, 0, 0, 1, 1)
	// slice 1 starts but never detects: raw 0, floored to avg/10 = ((0.5+0)/2)/10
	table.AccumulateStart(false, 1, 0, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, table.Close(&buf))
	require.InDelta(t, 0.5, table.PrimProductivity(0, 0), 1e-9)
	require.InDelta(t, 0.025, table.PrimProductivity(1, 0), 1e-9)
	require.Contains(t, buf.String(), "acceptance_angle")
}

func TestMaxTableBoundsPrimaryAndScatterInSPECTMode(t *testing.T) {
	// sanity check purely of the max-table construction contract: after
	// Close, Max is >= both the primary and scatter productivities in
	// SPECT (non-PET) mode.
	table := NewFlat(1, false)
	table.AccumulateStart(false, 0, 0, 1, 1)
	table.AccumulateDetected(false, 0, 0, 1, 1)
	table.AccumulateStart(true, 0, 0, 1, 1)
	table.AccumulateDetected(true, 0, 0, 1, 1)
	require.NoError(t, table.Close(nil))
	require.GreaterOrEqual(t, table.Max(0, 0), table.PrimProductivity(0, 0))
	require.GreaterOrEqual(t, table.Max(0, 0), table.ScatProductivity(0, 0))
}

func TestLoadRejectsMismatchedAcceptanceAngle(t *testing.T) {
	table := NewFlat(1, false)
	table.acceptanceAngleRad = 0.5
	table.AccumulateStart(false, 0, 0, 1, 1)
	table.AccumulateDetected(false, 0, 0, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, table.Close(&buf))

	_, err := Load(bytes.NewReader(buf.Bytes()), 0.9, false)
	require.Error(t, err)
}

func TestLoadRejectsDumpMissingASlice(t *testing.T) {
	table := NewFlat(2, false)
	table.AccumulateStart(false, 0, 0, 1, 1)
	table.AccumulateDetected(false, 0, 0, 1, 1)
	table.AccumulateStart(true, 0, 0, 1, 1)
	table.AccumulateDetected(true, 0, 0, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, table.Close(&buf))

	// Truncate the dump to only the header and slice-0 rows, simulating a
	// partially-written or corrupted table file that never reached slice 1.
	var truncated bytes.Buffer
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if bytes.HasPrefix(line, []byte("primary 1 ")) || bytes.HasPrefix(line, []byte("scatter 1 ")) {
			continue
		}
		truncated.Write(line)
		truncated.WriteByte('\n')
	}

	_, err := Load(&truncated, table.acceptanceAngleRad, false)
	require.Error(t, err)
}

func TestLoadRoundtripsMatchingAcceptanceAngle(t *testing.T) {
	table := NewFlat(1, false)
	table.acceptanceAngleRad = 0.5
	table.AccumulateStart(false, 0, 0, 1, 1)
	table.AccumulateDetected(false, 0, 0, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, table.Close(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()), 0.5, false)
	require.NoError(t, err)
	require.InDelta(t, table.PrimProductivity(0, 0), loaded.PrimProductivity(0, 0), 1e-6)
}
