// Package refiner improves a phase configuration by finite-difference
// gradient descent with momentum. It runs only when the verifier score falls
// short of the acceptance threshold, under a hard iteration budget.
package refiner

import (
	"math"

	"phaselock/domain/core"
	"phaselock/domain/lattice"
	"phaselock/domain/phase"
	"phaselock/domain/run"
	"phaselock/internal"
	"phaselock/internal/verifier"
)

// MaxIterationBudget is the exclusive upper bound on the iteration budget.
// The phase shifters drift thermally; anything at or beyond this bound is
// slower than re-measuring.
const MaxIterationBudget = 20

// Config tunes the descent.
type Config struct {
	MaxIterations int
	Momentum      float64
	LearningRate  float64
	GradientDelta float64
}

// DefaultConfig returns the reference descent parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 16,
		Momentum:      0.9,
		LearningRate:  0.1,
		GradientDelta: 0.01,
	}
}

// Outcome is the result of one refinement session. Phases and Evaluation
// always describe the best configuration seen, so the final energy is never
// worse than the starting one, even on abnormal termination.
type Outcome struct {
	Phases     phase.Vector
	Evaluation *verifier.Evaluation
	Trace      []run.TracePoint
	Converged  bool
	Iterations int
}

// Refiner runs bounded gradient descent against a verifier.
type Refiner struct {
	cfg    Config
	vf     *verifier.Verifier
	logger *internal.Logger
}

// New validates the descent parameters and builds a Refiner.
func New(cfg Config, vf *verifier.Verifier, logger *internal.Logger) (*Refiner, error) {
	if cfg.MaxIterations < 1 || cfg.MaxIterations >= MaxIterationBudget {
		return nil, core.NewValidationError("max_iterations", "must be between 1 and 19")
	}
	if cfg.Momentum < 0 || cfg.Momentum >= 1 {
		return nil, core.NewValidationError("momentum", "must be in [0, 1)")
	}
	if cfg.LearningRate <= 0 || math.IsNaN(cfg.LearningRate) {
		return nil, core.NewValidationError("learning_rate", "must be positive")
	}
	if cfg.GradientDelta <= 0 || math.IsNaN(cfg.GradientDelta) {
		return nil, core.NewValidationError("gradient_delta", "must be positive")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Refiner{cfg: cfg, vf: vf, logger: logger}, nil
}

// Refine descends from the given starting configuration until the aggregate
// score clears threshold, the budget is spent, or the numerics break down.
//
// On a non-finite gradient the last valid configuration is returned together
// with a wrapped core.ErrNonFiniteGradient, so callers can still salvage the
// partial result.
func (r *Refiner) Refine(g *lattice.Graph, start phase.Vector, startEval *verifier.Evaluation, threshold float64) (*Outcome, error) {
	n := len(start)
	current := start.Normalized()
	velocity := make([]float64, n)

	best := &Outcome{
		Phases:     current.Clone(),
		Evaluation: startEval,
		Trace:      []run.TracePoint{{Iteration: 0, Energy: startEval.Energy}},
	}

	for it := 1; it <= r.cfg.MaxIterations; it++ {
		grad, err := r.gradient(g, current)
		if err != nil {
			r.logger.Warn("refiner: iteration %d aborted: %v", it, err)
			best.Iterations = it - 1
			return best, err
		}

		// Linear learning rate decay over the budget.
		lr := r.cfg.LearningRate * (1 - float64(it-1)/float64(r.cfg.MaxIterations))
		for i := 0; i < n; i++ {
			velocity[i] = r.cfg.Momentum*velocity[i] - lr*grad[i]
			current[i] = phase.NormalizeAngle(current[i] + velocity[i])
		}

		eval, err := r.vf.Evaluate(g, current)
		if err != nil {
			r.logger.Warn("refiner: iteration %d evaluation failed: %v", it, err)
			best.Iterations = it
			return best, err
		}
		best.Trace = append(best.Trace, run.TracePoint{Iteration: it, Energy: eval.Energy})
		r.logger.Debug("refiner: iteration %d, lr %.4f, energy %.6f, aggregate %.2f",
			it, lr, eval.Energy, eval.Aggregate)

		if eval.Energy < best.Evaluation.Energy {
			best.Phases = current.Clone()
			best.Evaluation = eval
		}
		best.Iterations = it

		if eval.Aggregate >= threshold {
			r.logger.Info("refiner: threshold %.1f reached at iteration %d", threshold, it)
			best.Converged = true
			return best, nil
		}
	}

	return best, nil
}

// gradient estimates dE/dtheta by central finite differences. Any NaN or Inf
// component invalidates the whole vector.
func (r *Refiner) gradient(g *lattice.Graph, phases phase.Vector) ([]float64, error) {
	n := len(phases)
	grad := make([]float64, n)
	probe := phases.Clone()
	for i := 0; i < n; i++ {
		orig := probe[i]

		probe[i] = orig + r.cfg.GradientDelta
		ePlus, err := verifier.GroundEnergy(g, probe)
		if err != nil {
			probe[i] = orig
			return nil, core.NewGradientError(i, math.NaN())
		}

		probe[i] = orig - r.cfg.GradientDelta
		eMinus, err := verifier.GroundEnergy(g, probe)
		if err != nil {
			probe[i] = orig
			return nil, core.NewGradientError(i, math.NaN())
		}

		probe[i] = orig
		grad[i] = (ePlus - eMinus) / (2 * r.cfg.GradientDelta)
		if math.IsNaN(grad[i]) || math.IsInf(grad[i], 0) {
			return nil, core.NewGradientError(i, grad[i])
		}
	}
	return grad, nil
}
