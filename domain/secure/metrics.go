package secure

// Component names of the six SECURE diagnostics. The verifier registry is
// keyed on these; the persisted result format reuses them verbatim.
const (
	NameSuperposition      = "superposition"
	NameEntanglement       = "entanglement"
	NameCoherence          = "coherence"
	NameUncertainty        = "uncertainty"
	NameResilience         = "resilience"
	NameEvolutionStability = "evolution_stability"
)

// Names lists the six components in canonical order.
func Names() []string {
	return []string{
		NameSuperposition,
		NameEntanglement,
		NameCoherence,
		NameUncertainty,
		NameResilience,
		NameEvolutionStability,
	}
}

// MetricSet is one immutable snapshot of the six SECURE diagnostics for a
// phase vector. The verifier constructs a fresh set per evaluation; nothing
// mutates a set after it is built.
type MetricSet struct {
	Superposition      float64 `json:"superposition"`
	Entanglement       float64 `json:"entanglement"`
	Coherence          float64 `json:"coherence"`
	Uncertainty        float64 `json:"uncertainty"`
	Resilience         float64 `json:"resilience"`
	EvolutionStability float64 `json:"evolution_stability"`
}

// Component returns one component by name.
func (m MetricSet) Component(name string) (float64, bool) {
	switch name {
	case NameSuperposition:
		return m.Superposition, true
	case NameEntanglement:
		return m.Entanglement, true
	case NameCoherence:
		return m.Coherence, true
	case NameUncertainty:
		return m.Uncertainty, true
	case NameResilience:
		return m.Resilience, true
	case NameEvolutionStability:
		return m.EvolutionStability, true
	default:
		return 0, false
	}
}

// WithComponent returns a copy of the set with one component replaced.
func (m MetricSet) WithComponent(name string, value float64) MetricSet {
	switch name {
	case NameSuperposition:
		m.Superposition = value
	case NameEntanglement:
		m.Entanglement = value
	case NameCoherence:
		m.Coherence = value
	case NameUncertainty:
		m.Uncertainty = value
	case NameResilience:
		m.Resilience = value
	case NameEvolutionStability:
		m.EvolutionStability = value
	}
	return m
}

// Weights holds the relative weight of each component in the aggregate
// score. The weighting is a calibration policy, not physics; it is injected
// so the scoring can be tuned without touching pipeline control flow.
type Weights map[string]float64

// DefaultWeights weights all six components equally.
func DefaultWeights() Weights {
	w := make(Weights, 6)
	for _, name := range Names() {
		w[name] = 1.0
	}
	return w
}

// Aggregate combines the components into one score on a 0-100 scale. The
// pipeline compares this against the refinement threshold.
func (m MetricSet) Aggregate(w Weights) float64 {
	totalWeight := 0.0
	weighted := 0.0
	for _, name := range Names() {
		weight, ok := w[name]
		if !ok {
			continue
		}
		value, _ := m.Component(name)
		weighted += weight * value
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return 100 * weighted / totalWeight
}
