package forcedet

import "math"

const twoPi = 2 * math.Pi

// electronRestMassKeV is the electron rest energy m_e c^2 in keV.
const electronRestMassKeV = 511.0

func sqrt1minus(cos float64) float64 {
	return math.Sqrt(math.Max(0, 1-cos*cos))
}

func cosFn(x float64) float64 { return math.Cos(x) }

// comptonEnergy returns the Compton-scattered photon energy (keV) for an
// incoming photon of energy einKeV scattered through cosThetaScat, per
// spec.md §4.6 step 2.
func comptonEnergy(einKeV, cosThetaScat float64) float64 {
	return einKeV / (1 + (einKeV/electronRestMassKeV)*(1-cosThetaScat))
}

// kleinNishina is the (unnormalized) conditional Klein-Nishina density as
// a function of the incoming energy and the cosine of the total
// scattering angle, per spec.md §4.6 step 4.
func kleinNishina(einKeV, cosThetaScat float64) float64 {
	eout := comptonEnergy(einKeV, cosThetaScat)
	ratio := eout / einKeV
	return 0.5 * ratio * ratio * (ratio + 1/ratio - 1 + cosThetaScat*cosThetaScat)
}

// totalKN is the analytic total Klein-Nishina cross section integral,
// per spec.md §4.6 step 7's closed form, a = E/511.
func totalKN(einKeV float64) float64 {
	a := einKeV / electronRestMassKeV
	twoAp1 := 2*a + 1
	lnTerm := math.Log(twoAp1)
	return twoPi * (((a+1)/(a*a*a))*(2*a*(a+1)/twoAp1-lnTerm) + lnTerm/(2*a) - (3*a+1)/(twoAp1*twoAp1))
}
