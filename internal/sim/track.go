package sim

import (
	"math"

	"github.com/phg-sim/gammatrack/internal/collimator"
	"github.com/phg-sim/gammatrack/internal/forcedet"
	"github.com/phg-sim/gammatrack/internal/geom"
	"github.com/phg-sim/gammatrack/internal/photon"
	"github.com/phg-sim/gammatrack/internal/rng"
	"github.com/phg-sim/gammatrack/internal/tracker"
	"github.com/phg-sim/gammatrack/internal/weightwindow"
)

// photonResult is one surviving photon; it carries only the photon, whose
// DecayWeight and CurrentWeight fields productivity accounting reads at
// detection time.
type photonResult struct {
	p photon.Photon
}

func toPhotons(rs []photonResult) []photon.Photon {
	if len(rs) == 0 {
		return nil
	}
	out := make([]photon.Photon, len(rs))
	for i, r := range rs {
		out[i] = r.p
	}
	return out
}

// trackRoot transports one emitted photon to completion, returning every
// surviving copy: the physically-continuing photon itself if it reaches
// a detector, plus any virtual copies forced detection scores along the
// way. Per spec.md §4.7, a weight-window Split never forks this photon's
// own transport — it only raises the forced-detection attempt count
// `walkPhoton` draws from at each subsequent opportunity.
func (sc *SimulationContext) trackRoot(g *rng.MT, decay photon.Decay, root *photon.Photon) ([]photonResult, error) {
	if sliceIdx, xIdx, yIdx, inside := sc.Tracker.Object.Locate(root.Pos); inside {
		root.SliceIdx, root.XIdx, root.YIdx = sliceIdx, xIdx, yIdx
	}

	startAngle := sc.Productivity.AngleIndex(root.SliceIdx, root.Dir.Z())
	sc.mu.Lock()
	sc.Productivity.AccumulateStart(false, root.SliceIdx, startAngle, root.DecayWeight, root.PrimaryWeight)
	sc.mu.Unlock()

	cells := &tracker.CellList{}
	return sc.walkPhoton(g, root, cells)
}

// walkPhoton runs one photon through the voxel tracker (and, on
// hand-off, the collimator tracker) until it is Detected or Discarded,
// returning every surviving copy reached along the way: the photon
// itself on Detect, plus any virtual detections attemptForcedDetection
// scores at each opportunity.
func (sc *SimulationContext) walkPhoton(g *rng.MT, p *photon.Photon, cells *tracker.CellList) (survivors []photonResult, err error) {
	inCollimator := false
	layerIdx, segIdx := 0, 0

	var forcedHits []photonResult
	defer func() {
		if len(forcedHits) > 0 {
			survivors = append(forcedHits, survivors...)
		}
	}()

	for {
		if sc.Config.SimulateForcedDetection && !inCollimator && p.HasScattered() {
			forcedHits = append(forcedHits, sc.attemptForcedDetection(g, p)...)
		}

		if inCollimator {
			res, terr := sc.Collimator.Track(g, p.Pos, p.Dir, p.Energy, layerIdx, segIdx)
			if terr != nil {
				return nil, terr
			}
			p.Pos = res.Pos
			p.TravelDistance += res.TravelDistance
			layerIdx, segIdx = res.LayerIdx, res.SegIdx

			switch res.Outcome {
			case collimator.Interact:
				if sc.handleCollimatorInteraction(g, p, layerIdx, segIdx) {
					return nil, nil
				}
				continue
			case collimator.Discard:
				return nil, nil
			case collimator.Detect:
				sc.finalizeDetection(p)
				return []photonResult{{p: *p}}, nil
			}
			continue
		}

		res, terr := sc.Tracker.CalcNewPosition(g, p.Pos, p.Dir, p.Energy, p.SliceIdx, p.XIdx, p.YIdx, cells)
		if terr != nil {
			return nil, terr
		}
		p.Pos = res.Pos
		p.TravelDistance += res.TravelDistance
		p.SliceIdx, p.XIdx, p.YIdx = res.SliceIdx, res.XIdx, res.YIdx

		switch res.Outcome {
		case tracker.Interact:
			matIdx, merr := sc.Tracker.Object.MaterialAt(p.SliceIdx, p.XIdx, p.YIdx)
			if merr != nil {
				return nil, merr
			}
			decision := tracker.DecideInteraction(g, sc.Tracker.Oracle, matIdx, p.Energy, !sc.Config.ForcedNonAbsorption, sc.Config.ModelCoherentInObj)
			switch decision {
			case tracker.DecisionAbsorb:
				return nil, nil
			case tracker.DecisionCoherent:
				sc.List.DoCoherent(p, matIdx)
				p.NumScattersObj++
				cells.Reset()
				continue
			case tracker.DecisionCompton:
				wasFirst := !p.HasScattered()
				sc.List.DoCompton(p)
				p.NumScattersObj++
				cells.Reset()
				if wasFirst {
					p.MarkScattered()
					if sc.applyWeightWindow(g, p) {
						return nil, nil
					}
				}
				continue
			}
		case tracker.LayerCross:
			if sc.Collimator == nil {
				return nil, nil
			}
			entryPos, dist, si, ok := sc.Collimator.Enter(p.Pos, p.Dir)
			if !ok {
				return nil, nil
			}
			p.Pos = entryPos
			p.TravelDistance += dist
			inCollimator = true
			layerIdx, segIdx = 0, si
			continue
		case tracker.Discard:
			return nil, nil
		case tracker.Detect:
			sc.finalizeDetection(p)
			return []photonResult{{p: *p}}, nil
		}
	}
}

// handleCollimatorInteraction resolves one interaction inside the
// collimator geometry using the collimator's own material oracle,
// sharing the same decision policy the voxel object uses. absorbed true
// means the photon's transport ends here.
func (sc *SimulationContext) handleCollimatorInteraction(g *rng.MT, p *photon.Photon, layerIdx, segIdx int) (absorbed bool) {
	seg := sc.Collimator.Geometry.Layers[layerIdx].Segments[segIdx]
	decision := tracker.DecideInteraction(g, sc.Collimator.Oracle, seg.MaterialIdx, p.Energy, !sc.Config.ForcedNonAbsorption, sc.Config.ModelCoherentInTomo)
	switch decision {
	case tracker.DecisionAbsorb:
		return true
	case tracker.DecisionCoherent:
		sc.List.DoCoherent(p, seg.MaterialIdx)
		p.NumScattersCol++
		return false
	default:
		wasFirst := !p.HasScattered()
		sc.List.DoCompton(p)
		p.NumScattersCol++
		if wasFirst {
			p.MarkScattered()
			return sc.applyWeightWindow(g, p)
		}
		return false
	}
}

// applyWeightWindow consults the weight window after a photon's first
// scatter transition, per spec.md §4.7. Split never forks p's own
// transport: it only raises p.FDAttempts, the number of independent
// forced-detection samples attemptForcedDetection subsequently draws.
// Killed/Rouletted are resolved in place on p itself.
func (sc *SimulationContext) applyWeightWindow(g *rng.MT, p *photon.Photon) (killed bool) {
	angleIdx := sc.Productivity.AngleIndex(p.SliceIdx, p.Dir.Z())
	decision := weightwindow.Apply(g, sc.Productivity, p.SliceIdx, angleIdx, p.ScatterWeight, p.ScatterTargetWeight, sc.Config.MinRatio(), sc.Config.MaxRatio())

	switch decision.Outcome {
	case weightwindow.Killed:
		return true
	case weightwindow.Rouletted:
		p.ScatterWeight = decision.RenormalizedWeight
		p.CurrentWeight = p.ScatterWeight
		return false
	case weightwindow.Split:
		p.FDAttempts = decision.SplitCount
		return false
	default:
		return false
	}
}

// attemptForcedDetection draws p.FDAttempts (one, if the photon was
// never split) independent forced scatter samples toward the detector
// acceptance region from the photon's current site, each weighted
// p.ScatterWeight/FDAttempts, and scores every successful sample as a
// virtual detected copy directly without further transport, per
// spec.md §4.6/§4.7. The physically-sampled photon this call is attached
// to keeps transporting via its own (unforced) random walk regardless of
// how many forced samples succeed.
func (sc *SimulationContext) attemptForcedDetection(g *rng.MT, p *photon.Photon) []photonResult {
	attempts := p.FDAttempts
	if attempts < 1 {
		attempts = 1
	}
	attemptWeight := weightwindow.FDAttemptWeight(p.ScatterWeight, attempts)

	var hits []photonResult
	for i := 0; i < attempts; i++ {
		res, ok := sc.sampleForcedScatter(g, p)
		if !ok {
			continue
		}

		iv, ok := geom.WillIntersectCritZone(p.Pos, res.NewDir, sc.Tracker.ObjectCyl, sc.Tracker.TargetCyl, sc.Tracker.LimitCyl)
		if !ok {
			continue
		}
		fpEnter, fpExit, err := sc.Tracker.CriticalZoneFreePaths(p.Pos, res.NewDir, res.NewEnergyKeV, p.SliceIdx, p.XIdx, p.YIdx, iv.DistToEnter, iv.DistToExit)
		if err != nil {
			continue
		}
		survival := math.Exp(-(fpExit - fpEnter))

		clone := *p
		clone.Dir = res.NewDir
		clone.Energy = res.NewEnergyKeV
		clone.ScatterWeight = attemptWeight * res.WeightFactor * survival
		clone.CurrentWeight = clone.ScatterWeight
		clone.Flags |= photon.FlagTrackAsScatter
		clone.MarkScattered()

		sc.finalizeDetection(&clone)
		hits = append(hits, photonResult{p: clone})
	}
	return hits
}

// sampleForcedScatter prefers the cone-beam table when the run is
// configured with one (a focal-circle SPECT collimator, per spec.md
// §4.6's cone-beam paragraph), falling back to the fixed-global-cone
// table otherwise. Exactly one of FD/CBFD is expected to be set for a
// run with forced detection enabled.
func (sc *SimulationContext) sampleForcedScatter(g *rng.MT, p *photon.Photon) (forcedet.ScatterSampleResult, bool) {
	if sc.CBFD != nil {
		return sc.CBFD.ScatterSampleCBFD(g, p.Pos, p.Dir, p.Energy, sc.Config.MinimumEnergyKeV)
	}
	if sc.FD != nil {
		return sc.FD.ScatterSample(g, p.Pos, p.Dir, p.Energy, sc.Tracker.TargetCyl, sc.Tracker.AcceptanceSine, sc.Config.MinimumEnergyKeV)
	}
	return forcedet.ScatterSampleResult{}, false
}

// finalizeDetection runs the DoDetection callback and records the
// productivity accumulator for a photon that reached a detector.
func (sc *SimulationContext) finalizeDetection(p *photon.Photon) {
	sc.List.DoDetection(p)
	angleIdx := sc.Productivity.AngleIndex(p.SliceIdx, p.Dir.Z())
	sc.mu.Lock()
	sc.Productivity.AccumulateDetected(p.HasScattered(), p.SliceIdx, angleIdx, p.DecayWeight, p.CurrentWeight)
	sc.mu.Unlock()
}
