// Package verifier scores a phase configuration with the six SECURE
// diagnostics. Components are registered by name so individual diagnostics
// can be inspected or recomputed in isolation.
package verifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"phaselock/domain/core"
	"phaselock/domain/lattice"
	"phaselock/domain/phase"
	"phaselock/domain/secure"
	"phaselock/internal"
)

// Config tunes the diagnostic components.
type Config struct {
	Threshold     float64
	HistogramBins int
	PerturbSeed   int64
	PerturbSteps  int
	PerturbScale  float64
}

// DefaultConfig matches the calibration used by the reference hardware rig.
func DefaultConfig() Config {
	return Config{
		Threshold:     80.0,
		HistogramBins: 16,
		PerturbSeed:   1337,
		PerturbSteps:  5,
		PerturbScale:  0.05,
	}
}

// Evaluation is one scoring pass over a phase vector.
type Evaluation struct {
	Energy    float64
	Metrics   secure.MetricSet
	Aggregate float64
}

// Passed reports whether the aggregate clears the configured threshold.
func (e *Evaluation) Passed(threshold float64) bool {
	return e.Aggregate >= threshold
}

// Env is the shared input handed to every component: the topology, the
// candidate phases, the precomputed system energy, and a callback for
// re-evaluating energy at perturbed configurations.
type Env struct {
	Graph    *lattice.Graph
	Phases   phase.Vector
	Energy   float64
	Cfg      Config
	EnergyAt func(phase.Vector) (float64, error)
}

// Component is one named SECURE diagnostic producing a value in [0, 1].
type Component interface {
	Name() string
	Compute(env Env) (float64, error)
}

// Verifier runs all registered components and aggregates their scores.
type Verifier struct {
	cfg        Config
	weights    secure.Weights
	components []Component
	logger     *internal.Logger
}

// New validates the calibration and builds a Verifier with the full
// standard component set.
func New(cfg Config, logger *internal.Logger) (*Verifier, error) {
	if math.IsNaN(cfg.Threshold) {
		return nil, core.NewValidationError("threshold", "must not be NaN")
	}
	if cfg.HistogramBins < 2 {
		return nil, core.NewValidationError("histogram_bins", "must be at least 2")
	}
	if cfg.PerturbSteps < 1 {
		return nil, core.NewValidationError("perturb_steps", "must be at least 1")
	}
	if cfg.PerturbScale <= 0 || math.IsNaN(cfg.PerturbScale) {
		return nil, core.NewValidationError("perturb_scale", "must be positive")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Verifier{
		cfg:        cfg,
		weights:    secure.DefaultWeights(),
		components: DefaultComponents(),
		logger:     logger,
	}, nil
}

// WithWeights overrides the aggregate weighting.
func (v *Verifier) WithWeights(w secure.Weights) *Verifier {
	v.weights = w
	return v
}

// Evaluate scores the given phases against the topology. The phase vector
// is not mutated; perturbation-based components work on copies.
func (v *Verifier) Evaluate(g *lattice.Graph, phases phase.Vector) (*Evaluation, error) {
	if len(phases) != g.Modes() {
		return nil, fmt.Errorf("phase vector length %d does not match %d modes", len(phases), g.Modes())
	}

	energy, err := GroundEnergy(g, phases)
	if err != nil {
		return nil, err
	}

	env := Env{
		Graph:  g,
		Phases: phases,
		Energy: energy,
		Cfg:    v.cfg,
		EnergyAt: func(p phase.Vector) (float64, error) {
			return GroundEnergy(g, p)
		},
	}

	metrics := secure.MetricSet{}
	for _, comp := range v.components {
		value, err := comp.Compute(env)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", comp.Name(), err)
		}
		v.logger.Trace("verifier: %s = %.4f", comp.Name(), value)
		metrics = metrics.WithComponent(comp.Name(), value)
	}

	eval := &Evaluation{
		Energy:    energy,
		Metrics:   metrics,
		Aggregate: metrics.Aggregate(v.weights),
	}
	v.logger.Debug("verifier: energy %.6f, aggregate %.2f", eval.Energy, eval.Aggregate)
	return eval, nil
}

// GroundEnergy returns the smallest eigenvalue of the mean-field coupling
// matrix for the given configuration.
func GroundEnergy(g *lattice.Graph, phases phase.Vector) (float64, error) {
	h := Hamiltonian(g, phases)
	var es mat.EigenSym
	if !es.Factorize(h, false) {
		return 0, fmt.Errorf("hamiltonian eigendecomposition failed to converge")
	}
	vals := es.Values(nil)
	e := vals[0]
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, fmt.Errorf("non-finite ground energy %v", e)
	}
	return e, nil
}

// Hamiltonian assembles the mean-field coupling matrix: cos(theta_i) on the
// diagonal, -W_ij * cos(theta_i - theta_j) off it.
func Hamiltonian(g *lattice.Graph, phases phase.Vector) *mat.SymDense {
	n := g.Modes()
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		h.SetSym(i, i, math.Cos(phases[i]))
		for j := i + 1; j < n; j++ {
			h.SetSym(i, j, -g.Weight(i, j)*math.Cos(phases[i]-phases[j]))
		}
	}
	return h
}
