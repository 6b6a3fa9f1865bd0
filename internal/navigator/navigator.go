// Package navigator seeds the pipeline with a spectral phase configuration.
// It builds the graph Laplacian of the coupling topology, extracts the
// Fiedler vector, and rescales it onto the phase circle.
package navigator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"phaselock/domain/core"
	"phaselock/domain/lattice"
	"phaselock/domain/phase"
	"phaselock/internal"
)

// degeneracyTol separates a genuine spectral gap from numerical noise. The
// comparison is relative to the largest eigenvalue so dense, heavily
// weighted graphs are not misflagged.
const degeneracyTol = 1e-9

// Navigator computes initial phase vectors from coupling topology.
type Navigator struct {
	logger *internal.Logger
}

// New creates a Navigator. A nil logger falls back to the package default.
func New(logger *internal.Logger) *Navigator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Navigator{logger: logger}
}

// Initialize returns the spectral starting phases for the given topology.
// The result is deterministic: the same graph always yields the same vector,
// with every component in [0, 2pi].
func (nv *Navigator) Initialize(g *lattice.Graph) (phase.Vector, error) {
	n := g.Modes()
	lap := laplacian(g)

	var es mat.EigenSym
	if !es.Factorize(lap, true) {
		return nil, core.NewTopologyError("laplacian eigendecomposition failed to converge")
	}

	vals := es.Values(nil)
	scale := math.Max(vals[n-1], 1.0)
	if vals[1] <= degeneracyTol*scale {
		return nil, core.NewSpectrumError(vals[0], vals[1])
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)

	fiedler := make([]float64, n)
	for i := 0; i < n; i++ {
		fiedler[i] = vecs.At(i, 1)
	}
	fixSign(fiedler)

	nv.logger.Debug("navigator: spectral gap %.6e, fiedler range [%.4f, %.4f]",
		vals[1]-vals[0], minOf(fiedler), maxOf(fiedler))

	return toPhases(fiedler), nil
}

// laplacian assembles L = D - W as a symmetric dense matrix.
func laplacian(g *lattice.Graph) *mat.SymDense {
	n := g.Modes()
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		lap.SetSym(i, i, g.Degree(i))
		for j := i + 1; j < n; j++ {
			lap.SetSym(i, j, -g.Weight(i, j))
		}
	}
	return lap
}

// fixSign flips the vector so its largest-magnitude component is
// non-negative. Eigenvectors are only defined up to sign; pinning it keeps
// initialization reproducible across linear algebra backends.
func fixSign(v []float64) {
	pivot := 0
	for i, x := range v {
		if math.Abs(x) > math.Abs(v[pivot]) {
			pivot = i
		}
	}
	if v[pivot] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}

// toPhases maps the Fiedler components affinely onto [0, 2pi]. A flat
// vector (all components equal) maps to all-zero phases. The ratio is
// formed before scaling so the max component lands on exactly 2pi instead
// of one ulp above it.
func toPhases(v []float64) phase.Vector {
	lo, hi := minOf(v), maxOf(v)
	out := make(phase.Vector, len(v))
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, x := range v {
		out[i] = (x - lo) / span * phase.TwoPi
	}
	return out
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
