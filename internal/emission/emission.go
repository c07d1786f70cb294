// Package emission specifies the external emission-list and decay-source
// interfaces (spec component C9): decay sampling, photon-pair emission
// with non-collinearity and positron range, and the Compton/coherent/
// detection callbacks the tracker invokes on scatter. These are external
// collaborators per spec.md §1; this package only defines their contract.
package emission

import (
	"github.com/phg-sim/gammatrack/internal/material"
	"github.com/phg-sim/gammatrack/internal/photon"
)

// List is the emission-list interface the tracker calls into on
// interaction, per spec.md §6.
type List interface {
	DoCompton(p *photon.Photon)
	DoCoherent(p *photon.Photon, matIdx material.Index)
	DoDetection(p *photon.Photon)
}

// PhotonPair is the result of sampling a positron decay: two
// anti-collinear (in the rest frame) photons, tagged blue/pink for
// coincidence logic downstream.
type PhotonPair struct {
	Blue photon.Photon
	Pink photon.Photon
}

// Source samples decays and emits photons, applying non-collinearity and
// positron range (via the tracker's voxel march) as configured.
type Source interface {
	SampleDecay() (photon.Decay, bool)
	EmitPair(d photon.Decay) PhotonPair
	EmitSingle(d photon.Decay) photon.Photon
}

// Isotope parameterizes a decay source's isotope-dependent behavior, a
// supplemental feature pulled from original_source/src/PhgIsotopes.h
// (SimSET's isotope table) that spec.md's Decay.kind alone does not
// capture. The decay source is still an external collaborator; this
// value type is just the knob it reads.
type Isotope struct {
	Name            string
	PositronFraction float64 // fraction of decays that emit a positron pair
	HalfLifeNs      float64
}
