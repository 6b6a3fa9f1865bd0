package lattice

import (
	"fmt"
	"math"
	"math/rand"

	"phaselock/domain/core"
)

// MinModes is the smallest usable system: a Fiedler vector needs two nodes.
const MinModes = 2

// Graph is the n-by-n symmetric coupling weight matrix of an n-mode system.
// Weights are non-negative, the diagonal is zero, and the graph is connected;
// every constructor enforces all three before returning.
type Graph struct {
	n       int
	weights []float64 // row-major, len n*n
}

// Modes returns the mode count n.
func (g *Graph) Modes() int {
	return g.n
}

// Weight returns the coupling strength between modes i and j.
func (g *Graph) Weight(i, j int) float64 {
	return g.weights[i*g.n+j]
}

// Degree returns the total coupling mass attached to mode i.
func (g *Graph) Degree(i int) float64 {
	total := 0.0
	for j := 0; j < g.n; j++ {
		total += g.weights[i*g.n+j]
	}
	return total
}

func (g *Graph) setWeight(i, j int, w float64) {
	g.weights[i*g.n+j] = w
	g.weights[j*g.n+i] = w
}

// Connected reports whether every mode is reachable from mode 0 through
// positive-weight edges.
func (g *Graph) Connected() bool {
	if g.n == 0 {
		return false
	}
	visited := make([]bool, g.n)
	queue := []int{0}
	visited[0] = true
	seen := 1
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for j := 0; j < g.n; j++ {
			if !visited[j] && g.Weight(i, j) > 0 {
				visited[j] = true
				seen++
				queue = append(queue, j)
			}
		}
	}
	return seen == g.n
}

// NewGraph validates an explicit weight matrix and wraps it as a Graph.
// The matrix must be square with n >= 2, symmetric, non-negative, zero on
// the diagonal, and connected.
func NewGraph(weights [][]float64) (*Graph, error) {
	n := len(weights)
	if n < MinModes {
		return nil, core.NewTopologyError(fmt.Sprintf("mode count %d below minimum %d", n, MinModes))
	}
	g := &Graph{n: n, weights: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		if len(weights[i]) != n {
			return nil, core.NewTopologyError(fmt.Sprintf("row %d has %d entries, want %d", i, len(weights[i]), n))
		}
		for j := 0; j < n; j++ {
			w := weights[i][j]
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return nil, core.NewTopologyError(fmt.Sprintf("weight [%d][%d] = %v is not a non-negative finite value", i, j, w))
			}
			if i == j && w != 0 {
				return nil, core.NewTopologyError(fmt.Sprintf("diagonal entry [%d][%d] must be zero, got %v", i, j, w))
			}
			if weights[j][i] != w {
				return nil, core.NewTopologyError(fmt.Sprintf("matrix asymmetric at [%d][%d]", i, j))
			}
			g.weights[i*n+j] = w
		}
	}
	if !g.Connected() {
		return nil, core.NewTopologyError("coupling graph is disconnected")
	}
	return g, nil
}

// BuildConfig controls the generated interferometer topology.
type BuildConfig struct {
	// LongRangeDensity is the probability of adding a chord between any
	// non-adjacent mode pair on top of the ring.
	LongRangeDensity float64
	// LongRangeWeight is the coupling strength assigned to each chord.
	LongRangeWeight float64
	// Seed drives chord selection; the same seed yields the same graph.
	Seed int64
}

// DefaultBuildConfig matches the reference small-world interferometer layout.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		LongRangeDensity: 0.3,
		LongRangeWeight:  0.5,
		Seed:             42,
	}
}

// BuildRing constructs the standard coupling topology: a unit-weight ring
// (every mode coupled to its two neighbours) plus seeded long-range chords.
// The ring guarantees connectivity regardless of chord placement; the result
// is still re-verified before returning.
func BuildRing(n int, cfg BuildConfig) (*Graph, error) {
	if n < MinModes {
		return nil, core.NewTopologyError(fmt.Sprintf("mode count %d below minimum %d", n, MinModes))
	}
	if cfg.LongRangeDensity < 0 || cfg.LongRangeDensity > 1 {
		return nil, core.NewTopologyError(fmt.Sprintf("long-range density %v outside [0,1]", cfg.LongRangeDensity))
	}
	if cfg.LongRangeWeight < 0 || math.IsNaN(cfg.LongRangeWeight) || math.IsInf(cfg.LongRangeWeight, 0) {
		return nil, core.NewTopologyError(fmt.Sprintf("long-range weight %v is not a non-negative finite value", cfg.LongRangeWeight))
	}

	g := &Graph{n: n, weights: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		g.setWeight(i, (i+1)%n, 1.0)
	}

	// Chord placement iterates pairs in fixed (i, j) order so a seed fully
	// determines the topology.
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // ring edge, already present
			}
			if rng.Float64() < cfg.LongRangeDensity && cfg.LongRangeWeight > 0 {
				g.setWeight(i, j, cfg.LongRangeWeight)
			}
		}
	}

	if !g.Connected() {
		return nil, core.NewTopologyError("generated coupling graph is disconnected")
	}
	return g, nil
}
