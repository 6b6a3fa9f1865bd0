// Package pipeline wires the four stages together: topology generation,
// spectral initialization, SECURE verification, and conditional refinement.
package pipeline

import (
	"context"
	"time"

	"phaselock/domain/core"
	"phaselock/domain/lattice"
	"phaselock/domain/run"
	"phaselock/internal"
	"phaselock/internal/config"
	"phaselock/internal/navigator"
	"phaselock/internal/refiner"
	"phaselock/internal/verifier"
)

// Orchestrator runs the full optimization pipeline for a mode count.
type Orchestrator struct {
	cfg    *config.Config
	nav    *navigator.Navigator
	vf     *verifier.Verifier
	logger *internal.Logger
}

// New assembles an Orchestrator from configuration.
func New(cfg *config.Config, logger *internal.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	vf, err := verifier.New(verifier.Config{
		Threshold:     cfg.Optimization.Threshold,
		HistogramBins: cfg.Optimization.HistogramBins,
		PerturbSeed:   cfg.Optimization.PerturbSeed,
		PerturbSteps:  cfg.Optimization.PerturbSteps,
		PerturbScale:  cfg.Optimization.PerturbScale,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:    cfg,
		nav:    navigator.New(logger),
		vf:     vf,
		logger: logger,
	}, nil
}

// Run executes one optimization for an n-mode system.
//
// When refinement hits a non-finite gradient, the best configuration reached
// before the breakdown is still packaged into a Result; the Result is
// returned together with the wrapped core.ErrNonFiniteGradient so callers
// can both salvage and report.
func (o *Orchestrator) Run(ctx context.Context, n int) (*run.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graphCfg := lattice.BuildConfig{
		LongRangeDensity: o.cfg.Graph.LongRangeDensity,
		LongRangeWeight:  o.cfg.Graph.LongRangeWeight,
		Seed:             o.cfg.Graph.Seed,
	}
	g, err := lattice.BuildRing(n, graphCfg)
	if err != nil {
		return nil, err
	}
	o.logger.Info("pipeline: built %d-mode topology (seed %d)", n, o.cfg.Graph.Seed)

	phases, err := o.nav.Initialize(g)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eval, err := o.vf.Evaluate(g, phases)
	if err != nil {
		return nil, err
	}
	initial := eval
	o.logger.Info("pipeline: initial energy %.6f, aggregate %.2f (threshold %.1f)",
		initial.Energy, initial.Aggregate, o.cfg.Optimization.Threshold)

	result := &run.Result{
		RunID:         core.NewRunID(),
		ModeCount:     n,
		Seed:          o.cfg.Graph.Seed,
		PerturbSeed:   o.cfg.Optimization.PerturbSeed,
		Threshold:     o.cfg.Optimization.Threshold,
		InitialEnergy: initial.Energy,
		Converged:     true,
		Trace:         []run.TracePoint{{Iteration: 0, Energy: initial.Energy}},
		CreatedAt:     time.Now().UTC(),
	}
	result.Fingerprint = core.NewRunFingerprint(core.FingerprintInput{
		ModeCount:        n,
		Seed:             o.cfg.Graph.Seed,
		LongRangeDensity: o.cfg.Graph.LongRangeDensity,
		LongRangeWeight:  o.cfg.Graph.LongRangeWeight,
		Threshold:        o.cfg.Optimization.Threshold,
		MaxIterations:    o.cfg.Optimization.MaxIterations,
		Momentum:         o.cfg.Optimization.Momentum,
		LearningRate:     o.cfg.Optimization.LearningRate,
		GradientDelta:    o.cfg.Optimization.GradientDelta,
		HistogramBins:    o.cfg.Optimization.HistogramBins,
		PerturbSeed:      o.cfg.Optimization.PerturbSeed,
		PerturbSteps:     o.cfg.Optimization.PerturbSteps,
		PerturbScale:     o.cfg.Optimization.PerturbScale,
	})

	var refineErr error
	if !initial.Passed(o.cfg.Optimization.Threshold) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.RefinementTriggered = true

		ref, err := refiner.New(refiner.Config{
			MaxIterations: o.cfg.Optimization.MaxIterations,
			Momentum:      o.cfg.Optimization.Momentum,
			LearningRate:  o.cfg.Optimization.LearningRate,
			GradientDelta: o.cfg.Optimization.GradientDelta,
		}, o.vf, o.logger)
		if err != nil {
			return nil, err
		}

		outcome, err := ref.Refine(g, phases, initial, o.cfg.Optimization.Threshold)
		if err != nil {
			o.logger.Warn("pipeline: refinement stopped early, keeping best configuration: %v", err)
			refineErr = err
		}
		phases = outcome.Phases
		eval = outcome.Evaluation
		result.Converged = outcome.Converged && refineErr == nil
		result.Iterations = outcome.Iterations
		result.Trace = outcome.Trace
	}

	result.Phases = phases.Normalized()
	result.Energy = eval.Energy
	result.Aggregate = eval.Aggregate
	result.Metrics = eval.Metrics

	o.logger.Info("pipeline: run %s finished, energy %.6f -> %.6f, aggregate %.2f, converged %v",
		result.RunID, result.InitialEnergy, result.Energy, result.Aggregate, result.Converged)
	return result, refineErr
}
