package forcedet

import (
	"math"
	"testing"

	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/rng"
	"github.com/stretchr/testify/require"
)

func TestNewTableRejectsOversizedConfiguration(t *testing.T) {
	_, err := NewTable(1<<16, 1<<16, 1<<16, 1<<16, 100, 600)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Resource))
}

func TestNewTableBuildsNonNegativeMonotonicCumulatives(t *testing.T) {
	table, err := NewTable(4, 8, 16, 16, 100, 600)
	require.NoError(t, err)

	for iei := 0; iei < 4; iei++ {
		for iwi := 0; iwi < 8; iwi++ {
			var prevIWO float64
			for iwo := 0; iwo < 16; iwo++ {
				require.GreaterOrEqual(t, table.iwoMarginal(iei, iwi, iwo), 0.0)
				var prevIPO float64
				for ipo := 0; ipo < 16; ipo++ {
					c := table.cumIPOAt(iei, iwi, iwo, ipo)
					require.GreaterOrEqual(t, c, prevIPO-1e-12)
					prevIPO = c
				}
				cumIWO := table.cumIWO[table.idx3(iei, iwi, iwo)]
				require.GreaterOrEqual(t, cumIWO, prevIWO-1e-12)
				prevIWO = cumIWO
			}
		}
	}
}

func TestEnergyAndCosineIndexClamping(t *testing.T) {
	table, err := NewTable(4, 8, 16, 16, 100, 600)
	require.NoError(t, err)
	require.Equal(t, 0, table.EnergyIndex(-1000))
	require.Equal(t, 3, table.EnergyIndex(1e6))
	require.Equal(t, 0, table.CosInIndex(-5))
	require.Equal(t, 7, table.CosInIndex(5))
}

func TestScatterSampleProducesUnitDirectionAndBoundedEnergy(t *testing.T) {
	table, err := NewTable(4, 8, 32, 32, 100, 600)
	require.NoError(t, err)

	targetCyl := geom.Cylinder{Radius: 30, ZMin: -20, ZMax: 20}
	pos := geom.Position{0, 0, 0}
	inDir := geom.Direction{0, 0, 1}

	g := rng.New(42)
	successes := 0
	for i := 0; i < 200; i++ {
		res, ok := table.ScatterSample(g, pos, inDir, 511, targetCyl, 1.0, 50)
		if !ok {
			continue
		}
		successes++
		norm := res.NewDir.X()*res.NewDir.X() + res.NewDir.Y()*res.NewDir.Y() + res.NewDir.Z()*res.NewDir.Z()
		require.InDelta(t, 1.0, norm, 1e-6)
		require.LessOrEqual(t, res.NewEnergyKeV, 511.0+1e-9)
		require.Greater(t, res.WeightFactor, 0.0)
	}
	require.Greater(t, successes, 0)
}

func TestTotalKNAndKleinNishinaArePositiveForPhysicalEnergies(t *testing.T) {
	require.Greater(t, totalKN(511), 0.0)
	require.Greater(t, kleinNishina(511, 0.5), 0.0)
	require.InDelta(t, 511.0, comptonEnergy(511, 1.0), 1e-9) // forward scatter: no energy loss
	require.Less(t, comptonEnergy(511, -1.0), 511.0)         // backscatter loses the most energy
}

func TestCBFDPositionIsAcceptableRejectsFarOffAxis(t *testing.T) {
	cb := NewCBFD(nil, 20, -5, 5, 5*math.Pi/180)
	pos := geom.Position{0, 0, -10}
	near := geom.Direction{20, 0, 1}
	require.False(t, cb.PositionIsAcceptable(pos, geom.Normalize(near)))
}
