package photon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasScatteredReflectsEitherDomainCounter(t *testing.T) {
	var p Photon
	require.False(t, p.HasScattered())
	p.NumScattersObj = 1
	require.True(t, p.HasScattered())

	p = Photon{NumScattersCol: 2}
	require.True(t, p.HasScattered())
}

func TestMarkScatteredSwitchesCurrentWeightToScatterWeight(t *testing.T) {
	p := Photon{PrimaryWeight: 1, ScatterWeight: 0.5, CurrentWeight: 1}
	p.MarkScattered()
	require.Equal(t, 0.5, p.CurrentWeight)
}

func TestFlagsHasChecksBit(t *testing.T) {
	f := FlagBlue | FlagTrackAsScatter
	require.True(t, f.Has(FlagBlue))
	require.True(t, f.Has(FlagTrackAsScatter))
	require.False(t, f.Has(FlagPink))
}
