// Package sim wires the simulation core's components into the
// per-decay processing loop (spec.md §5/§6): it owns the productivity
// tables, the weight window, the voxel tracker and (optionally) the
// forced-detection table and MC PET collimator tracker, and drives a
// decay loop across worker goroutines, each with its own RNG substream,
// grounded on the teacher's encodeFrameParallel row-pipelined worker
// pool (deepteams-webp/internal/lossy/encode_parallel.go): an atomic
// work-claim counter plus a fixed worker pool, rather than a channel per
// unit of work.
//
// spec.md §5 describes a cyclic dependency (productivity drives the
// weight window, which mutates photon populations, which feed back into
// the productivity accumulators). This package is where that cycle is
// broken: SimulationContext owns the productivity table outright, and
// every other component (tracker, collimator, forced detection) only
// ever receives data passed explicitly through a call, never a
// backpointer into SimulationContext.
package sim

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phg-sim/gammatrack/internal/collimator"
	"github.com/phg-sim/gammatrack/internal/config"
	"github.com/phg-sim/gammatrack/internal/emission"
	"github.com/phg-sim/gammatrack/internal/errs"
	"github.com/phg-sim/gammatrack/internal/forcedet"
	"github.com/phg-sim/gammatrack/internal/productivity"
	"github.com/phg-sim/gammatrack/internal/rng"
	"github.com/phg-sim/gammatrack/internal/scoring"
	"github.com/phg-sim/gammatrack/internal/simlog"
	"github.com/phg-sim/gammatrack/internal/tracker"
)

// SimulationContext bundles every subsystem component and its ownership
// boundary for one run, per spec.md §5's simulation-context requirement
// (replacing the original implementation's per-component global state).
type SimulationContext struct {
	Config *config.Configuration
	Logger simlog.Logger

	Source emission.Source
	List   emission.List
	Sink   scoring.Sink

	Tracker    *tracker.Context
	FD         *forcedet.Table
	CBFD       *forcedet.CBFDTable
	Collimator *collimator.Context

	Productivity *productivity.Table

	mu       sync.Mutex // guards Productivity accumulation and Sink.Score
	canceled atomic.Bool
}

// New constructs a SimulationContext from its already-validated
// component handles. Construction does not itself validate cfg; callers
// are expected to have called cfg.Validate() first, per spec.md §7's
// configuration-error-at-construction-time contract.
func New(cfg *config.Configuration, logger simlog.Logger, source emission.Source, list emission.List, sink scoring.Sink, trackerCtx *tracker.Context, prodTable *productivity.Table) *SimulationContext {
	if logger == nil {
		logger = simlog.NewNopLogger()
	}
	return &SimulationContext{
		Config:       cfg,
		Logger:       logger,
		Source:       source,
		List:         list,
		Sink:         sink,
		Tracker:      trackerCtx,
		Productivity: prodTable,
	}
}

// Cancel requests that Run stop dispatching new decays; decays already
// claimed by a worker run to completion, per spec.md §6's cooperative
// cancellation contract.
func (sc *SimulationContext) Cancel() { sc.canceled.Store(true) }

// Canceled reports whether Cancel has been called.
func (sc *SimulationContext) Canceled() bool { return sc.canceled.Load() }

// Run drives numDecays decays to completion across a worker pool sized
// to GOMAXPROCS, each worker owning an independent *rng.MT substream
// seeded deterministically from Config.RandomSeed (or the wall clock,
// per spec.md §6, when RandomSeed <= 0), so a fixed seed reproduces the
// same per-worker streams run to run even though decay-to-worker
// assignment is not itself deterministic.
//
// ctx cancellation is checked between decay claims; Run also stops early
// if SimulationContext.Cancel was called. A fatal error from any worker
// (a RuntimeInvariant SimError) stops dispatch and is returned once all
// in-flight workers have drained. Every failing decay is logged via
// Logger.Errorf with its decay index and the error only; no photon or
// decay state is written to the log.
func (sc *SimulationContext) Run(ctx context.Context, numDecays int) error {
	if numDecays <= 0 {
		return nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > numDecays {
		numWorkers = numDecays
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	baseSeed := sc.Config.RandomSeed
	if baseSeed <= 0 {
		baseSeed = time.Now().UnixNano()
	}

	var nextDecay atomic.Int64
	var firstErr atomic.Value // error
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerIdx int) {
			defer wg.Done()
			g := rng.New(deriveSeed(baseSeed, workerIdx))
			for {
				if sc.Canceled() {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}
				idx := nextDecay.Add(1) - 1
				if idx >= int64(numDecays) {
					return
				}
				if err := sc.runOneDecay(g); err != nil {
					sc.Logger.Errorf("decay %d: %v", idx, err)
					firstErr.CompareAndSwap(nil, err)
					if errs.Is(err, errs.RuntimeInvariant) {
						sc.Cancel()
						return
					}
				}
			}
		}(w)
	}

	wg.Wait()

	if v := firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// deriveSeed decorrelates worker substreams from a single base seed
// using a large odd multiplier, the same technique a splittable PRNG
// uses to generate independent streams from one root seed.
func deriveSeed(base int64, worker int) int64 {
	const streamStride int64 = 0x9E3779B97F4A7C15
	return base + int64(worker)*streamStride
}

func (sc *SimulationContext) runOneDecay(g *rng.MT) error {
	decay, ok := sc.Source.SampleDecay()
	if !ok {
		sc.Cancel()
		return nil
	}

	var blue, pink []photonResult
	var err error
	if sc.Config.IsSPECT {
		single := sc.Source.EmitSingle(decay)
		blue, err = sc.trackRoot(g, decay, &single)
	} else {
		// PETCoincidencesOnly and PETCoincPlusSingles both track the full
		// blue/pink pair; they differ only in whether unpaired singles are
		// also binned, a binning-stage concern outside this module's scope.
		pair := sc.Source.EmitPair(decay)
		blue, err = sc.trackRoot(g, decay, &pair.Blue)
		if err == nil {
			pink, err = sc.trackRoot(g, decay, &pair.Pink)
		}
	}
	if err != nil {
		return err
	}

	sc.mu.Lock()
	sc.Sink.Score(decay, toPhotons(blue), toPhotons(pink))
	sc.mu.Unlock()
	return nil
}
