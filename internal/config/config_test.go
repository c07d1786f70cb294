package config

import (
	"math"
	"testing"

	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestNewConfigurationDefaultsPassValidation(t *testing.T) {
	c := NewConfiguration()
	require.NoError(t, c.Validate())
	require.True(t, c.IsSPECT)
	require.False(t, c.IsPETCoincidencesOnly)
	require.False(t, c.IsPETCoincPlusSingles)
}

func TestValidateRejectsWeightWindowRatioAtOrAboveOne(t *testing.T) {
	c := NewConfiguration(WithSPECT(true))
	c.WeightWindowRatio = 1
	err := c.Validate()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Configuration))
}

func TestValidateRejectsMinimumEnergyBelowFDTableFloor(t *testing.T) {
	c := NewConfiguration(WithForcedDetection(true), WithMinimumEnergyKeV(50), WithFDTableMinimumEnergyKeV(100))
	err := c.Validate()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Configuration))
}

func TestValidateAcceptsMinimumEnergyAtOrAboveFDTableFloor(t *testing.T) {
	c := NewConfiguration(WithForcedDetection(true), WithMinimumEnergyKeV(100), WithFDTableMinimumEnergyKeV(100))
	require.NoError(t, c.Validate())
}

func TestMinMaxRatioAreReciprocal(t *testing.T) {
	c := NewConfiguration(WithWeightWindowRatio(0.25))
	require.InDelta(t, 0.25, c.MinRatio(), 1e-12)
	require.InDelta(t, 4.0, c.MaxRatio(), 1e-12)
}

func TestAcceptanceAngleRadConvertsDegrees(t *testing.T) {
	c := NewConfiguration(WithAcceptanceAngleDeg(90))
	require.InDelta(t, math.Pi/2, c.AcceptanceAngleRad(), 1e-12)
}

func TestValidateRejectsNoModeSet(t *testing.T) {
	c := NewConfiguration(WithSPECT(false))
	err := c.Validate()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Configuration))
}

func TestValidateRejectsTwoModesSet(t *testing.T) {
	c := NewConfiguration(WithSPECT(true), WithPETCoincidencesOnly(true))
	err := c.Validate()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Configuration))
}

func TestValidateRejectsAllThreeModesSet(t *testing.T) {
	c := NewConfiguration(WithSPECT(true), WithPETCoincidencesOnly(true), WithPETCoincPlusSingles(true))
	err := c.Validate()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Configuration))
}

func TestValidateAcceptsExactlyOnePETMode(t *testing.T) {
	c := NewConfiguration(WithSPECT(false), WithPETCoincPlusSingles(true))
	require.NoError(t, c.Validate())
}
