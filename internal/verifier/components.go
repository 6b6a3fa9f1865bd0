package verifier

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"phaselock/domain/phase"
	"phaselock/domain/secure"
)

// DefaultComponents returns the standard six diagnostics in canonical order.
func DefaultComponents() []Component {
	return []Component{
		superposition{},
		entanglement{},
		coherence{},
		uncertainty{},
		resilience{},
		evolutionStability{},
	}
}

// ComponentByName constructs a single diagnostic by its canonical name.
func ComponentByName(name string) (Component, bool) {
	for _, c := range DefaultComponents() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// superposition measures phase spread as the population variance of the
// normalized angles, scaled so a uniform spread over the circle scores 1.
type superposition struct{}

func (superposition) Name() string { return secure.NameSuperposition }

func (superposition) Compute(env Env) (float64, error) {
	normalized := env.Phases.Normalized()
	variance, err := stats.PopulationVariance(stats.Float64Data(normalized))
	if err != nil {
		return 0, err
	}
	// pi^2 / 3 is the variance of a uniform distribution over [0, 2pi).
	return clamp01(variance / (math.Pi * math.Pi / 3)), nil
}

// entanglement measures how much of the available coupling mass is active
// at the current phase differences.
type entanglement struct{}

func (entanglement) Name() string { return secure.NameEntanglement }

func (entanglement) Compute(env Env) (float64, error) {
	n := env.Graph.Modes()
	active, total := 0.0, 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := env.Graph.Weight(i, j)
			if w == 0 {
				continue
			}
			total += w
			active += w * math.Abs(math.Cos(env.Phases[i]-env.Phases[j]))
		}
	}
	if total == 0 {
		return 0, nil
	}
	return clamp01(active / total), nil
}

// coherence is the Kuramoto order parameter: the magnitude of the mean
// phasor over all modes.
type coherence struct{}

func (coherence) Name() string { return secure.NameCoherence }

func (coherence) Compute(env Env) (float64, error) {
	sumSin, sumCos := 0.0, 0.0
	for _, p := range env.Phases {
		s, c := math.Sincos(p)
		sumSin += s
		sumCos += c
	}
	n := float64(len(env.Phases))
	return clamp01(math.Hypot(sumSin, sumCos) / n), nil
}

// uncertainty is the normalized Shannon entropy of the phase histogram.
// A single occupied bin scores 0, a uniform histogram scores 1.
type uncertainty struct{}

func (uncertainty) Name() string { return secure.NameUncertainty }

func (uncertainty) Compute(env Env) (float64, error) {
	bins := env.Cfg.HistogramBins
	counts := make([]int, bins)
	for _, p := range env.Phases.Normalized() {
		idx := int(p / phase.TwoPi * float64(bins))
		if idx >= bins { // p == 2pi cannot occur after normalization, guard anyway
			idx = bins - 1
		}
		counts[idx]++
	}
	total := float64(len(env.Phases))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		pr := float64(c) / total
		entropy -= pr * math.Log(pr)
	}
	return clamp01(entropy / math.Log(float64(bins))), nil
}

// resilience probes each mode with a fixed deterministic nudge and scores
// how little the system energy reacts.
type resilience struct{}

func (resilience) Name() string { return secure.NameResilience }

func (resilience) Compute(env Env) (float64, error) {
	n := len(env.Phases)
	totalShift := 0.0
	for i := 0; i < n; i++ {
		probe := env.Phases.Clone()
		probe[i] = phase.NormalizeAngle(probe[i] + env.Cfg.PerturbScale)
		e, err := env.EnergyAt(probe)
		if err != nil {
			return 0, err
		}
		totalShift += math.Abs(e - env.Energy)
	}
	avgShift := totalShift / float64(n)
	return 1 / (1 + avgShift), nil
}

// evolutionStability walks the configuration through a short seeded random
// trajectory and scores the inverse spread of the visited energies. The
// fixed seed keeps evaluations reproducible.
type evolutionStability struct{}

func (evolutionStability) Name() string { return secure.NameEvolutionStability }

func (evolutionStability) Compute(env Env) (float64, error) {
	rng := rand.New(rand.NewSource(env.Cfg.PerturbSeed))
	current := env.Phases.Clone()
	energies := make([]float64, 0, env.Cfg.PerturbSteps+1)
	energies = append(energies, env.Energy)

	for step := 0; step < env.Cfg.PerturbSteps; step++ {
		for i := range current {
			current[i] = phase.NormalizeAngle(current[i] + rng.NormFloat64()*env.Cfg.PerturbScale)
		}
		e, err := env.EnergyAt(current)
		if err != nil {
			return 0, err
		}
		energies = append(energies, e)
	}

	sigma, err := stats.StandardDeviation(stats.Float64Data(energies))
	if err != nil {
		return 0, err
	}
	return 1 / (1 + sigma), nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
