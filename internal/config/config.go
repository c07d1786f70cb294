// Package config defines the configuration surface (spec.md §6) the
// simulation core consumes, and its validation rules (spec.md §7
// Configuration errors). Parameter-file parsing is an external
// collaborator (spec.md §1); this package only holds the in-memory
// struct, built with a functional-option builder grounded on the
// teacher's App/Module builder idiom (app_builder.go's UseModules chain),
// simplified here since there is no ECS to install modules into.
package config

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/errs"
)

// Simulation mode, per spec.md §6: "simulation mode ∈ {SPECT,
// PETCoincidencesOnly, PETCoincPlusSingles}" with the error condition
// "exactly one simulation mode must be true" — each mode is modeled as
// its own independent boolean, mirroring
// original_source/src/PhgParams.c's PhgIsSPECT/PhgIsPETCoincidencesOnly/
// PhgIsPETCoincPlusSingles run-time params, each of which the original
// rejects at parse time if any other is already set
// (PhgParams.c:491-495,512-516,540-544). A single enum could never
// represent "two modes true" long enough to reject it, which is exactly
// spec.md §8 property 10's testable property, so this package keeps the
// three as independent fields instead of collapsing them into a Mode
// type.
type Configuration struct {
	AcceptanceAngleDeg      float64
	MinimumEnergyKeV        float64
	WeightWindowRatio       float64
	RandomSeed              int64
	ModelCoherentInObj      bool
	ModelCoherentInTomo     bool
	SimulateForcedDetection bool
	ForcedNonAbsorption     bool
	AdjustForPositronRange  bool
	AdjustForCollinearity   bool
	PointSourceVoxels       bool
	LineSourceVoxels        bool
	SimulateStratification  bool

	IsSPECT               bool
	IsPETCoincidencesOnly bool
	IsPETCoincPlusSingles bool

	// fdTableMinimumEnergyKeV is the floor a ForceDetectionTable build
	// establishes (spec.md §6: "user-supplied minimum_energy must be >=
	// the FD-table minimum, rejected at FD-table init"). Zero means no
	// floor has been established yet (FD table not built / FD disabled).
	fdTableMinimumEnergyKeV float64
}

// Option configures a Configuration during construction.
type Option func(*Configuration)

func NewConfiguration(opts ...Option) *Configuration {
	c := &Configuration{
		WeightWindowRatio: 0.5,
		IsSPECT:           true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinRatio and MaxRatio are the weight window's Roulette/Split
// thresholds internal/weightwindow.Apply consumes, derived from the
// single configured ratio per spec.md §4.7 (the window is symmetric in
// log-space about 1: below minRatio roulettes, above its reciprocal
// splits).
func (c *Configuration) MinRatio() float64 { return c.WeightWindowRatio }
func (c *Configuration) MaxRatio() float64 { return 1 / c.WeightWindowRatio }

// AcceptanceAngleRad converts the configured acceptance angle to
// radians, the unit every geometry computation in internal/geom uses.
func (c *Configuration) AcceptanceAngleRad() float64 {
	return c.AcceptanceAngleDeg * math.Pi / 180
}

// WithSPECT, WithPETCoincidencesOnly, and WithPETCoincPlusSingles set
// the three independent mode flags; NewConfiguration defaults to SPECT
// alone. Validate rejects a Configuration with more than one set, per
// spec.md §8 property 10.
func WithSPECT(v bool) Option                 { return func(c *Configuration) { c.IsSPECT = v } }
func WithPETCoincidencesOnly(v bool) Option   { return func(c *Configuration) { c.IsPETCoincidencesOnly = v } }
func WithPETCoincPlusSingles(v bool) Option   { return func(c *Configuration) { c.IsPETCoincPlusSingles = v } }
func WithAcceptanceAngleDeg(v float64) Option { return func(c *Configuration) { c.AcceptanceAngleDeg = v } }
func WithMinimumEnergyKeV(v float64) Option   { return func(c *Configuration) { c.MinimumEnergyKeV = v } }
func WithWeightWindowRatio(v float64) Option  { return func(c *Configuration) { c.WeightWindowRatio = v } }
func WithRandomSeed(v int64) Option           { return func(c *Configuration) { c.RandomSeed = v } }
func WithForcedDetection(v bool) Option       { return func(c *Configuration) { c.SimulateForcedDetection = v } }
func WithForcedNonAbsorption(v bool) Option   { return func(c *Configuration) { c.ForcedNonAbsorption = v } }
func WithStratification(v bool) Option        { return func(c *Configuration) { c.SimulateStratification = v } }

// WithFDTableMinimumEnergyKeV records the floor the FD table build
// established, for Validate to check against MinimumEnergyKeV.
func WithFDTableMinimumEnergyKeV(v float64) Option {
	return func(c *Configuration) { c.fdTableMinimumEnergyKeV = v }
}

// Validate checks the Configuration error conditions of spec.md §6/§7.
// A non-positive RandomSeed is NOT an error: spec.md §6 says it simply
// means the seed is derived from the clock.
func (c *Configuration) Validate() error {
	modesSet := 0
	for _, m := range [...]bool{c.IsSPECT, c.IsPETCoincidencesOnly, c.IsPETCoincPlusSingles} {
		if m {
			modesSet++
		}
	}
	if modesSet != 1 {
		return errs.New(errs.Configuration, "exactly one simulation mode must be true")
	}
	if c.WeightWindowRatio >= 1 {
		return errs.New(errs.Configuration, "weight_window_ratio must be < 1")
	}
	if c.fdTableMinimumEnergyKeV > 0 && c.MinimumEnergyKeV < c.fdTableMinimumEnergyKeV {
		return errs.New(errs.Configuration, "minimum_energy is below the FD table floor")
	}
	return nil
}
