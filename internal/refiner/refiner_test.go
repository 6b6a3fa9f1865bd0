package refiner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaselock/domain/lattice"
	"phaselock/domain/phase"
	"phaselock/internal/verifier"
)

func setup(t *testing.T, n int) (*lattice.Graph, *verifier.Verifier) {
	t.Helper()
	g, err := lattice.BuildRing(n, lattice.DefaultBuildConfig())
	require.NoError(t, err)
	vf, err := verifier.New(verifier.DefaultConfig(), nil)
	require.NoError(t, err)
	return g, vf
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, vf := setup(t, 4)

	for name, cfg := range map[string]Config{
		"zero iterations":   {MaxIterations: 0, Momentum: 0.9, LearningRate: 0.1, GradientDelta: 0.01},
		"budget too large":  {MaxIterations: 20, Momentum: 0.9, LearningRate: 0.1, GradientDelta: 0.01},
		"negative momentum": {MaxIterations: 10, Momentum: -0.1, LearningRate: 0.1, GradientDelta: 0.01},
		"momentum one":      {MaxIterations: 10, Momentum: 1.0, LearningRate: 0.1, GradientDelta: 0.01},
		"zero lr":           {MaxIterations: 10, Momentum: 0.9, LearningRate: 0, GradientDelta: 0.01},
		"zero delta":        {MaxIterations: 10, Momentum: 0.9, LearningRate: 0.1, GradientDelta: 0},
	} {
		_, err := New(cfg, vf, nil)
		assert.Error(t, err, name)
	}

	_, err := New(DefaultConfig(), vf, nil)
	assert.NoError(t, err)
}

func TestRefineNeverIncreasesEnergy(t *testing.T) {
	g, vf := setup(t, 6)
	r, err := New(DefaultConfig(), vf, nil)
	require.NoError(t, err)

	start := phase.Vector{0.3, 1.4, 2.2, 3.6, 4.1, 5.0}
	startEval, err := vf.Evaluate(g, start)
	require.NoError(t, err)

	// An unreachable threshold forces the full budget to run.
	out, err := r.Refine(g, start, startEval, 101.0)
	require.NoError(t, err)

	assert.LessOrEqual(t, out.Evaluation.Energy, startEval.Energy)
	assert.False(t, out.Converged)
	assert.Equal(t, DefaultConfig().MaxIterations, out.Iterations)
}

func TestRefineTraceShape(t *testing.T) {
	g, vf := setup(t, 5)
	r, err := New(DefaultConfig(), vf, nil)
	require.NoError(t, err)

	start := phase.Vector{0.5, 1.5, 2.5, 3.5, 4.5}
	startEval, err := vf.Evaluate(g, start)
	require.NoError(t, err)

	out, err := r.Refine(g, start, startEval, 101.0)
	require.NoError(t, err)

	require.NotEmpty(t, out.Trace)
	assert.Equal(t, 0, out.Trace[0].Iteration)
	assert.Equal(t, startEval.Energy, out.Trace[0].Energy)
	assert.Len(t, out.Trace, out.Iterations+1)
	for i, point := range out.Trace {
		assert.Equal(t, i, point.Iteration)
	}
}

func TestRefineImmediateConvergence(t *testing.T) {
	g, vf := setup(t, 4)
	r, err := New(DefaultConfig(), vf, nil)
	require.NoError(t, err)

	start := phase.Vector{0.1, 1.6, 3.2, 4.7}
	startEval, err := vf.Evaluate(g, start)
	require.NoError(t, err)

	// Threshold of zero is cleared on the very first evaluated step.
	out, err := r.Refine(g, start, startEval, 0.0)
	require.NoError(t, err)
	assert.True(t, out.Converged)
	assert.Equal(t, 1, out.Iterations)
}

func TestRefineDoesNotMutateStart(t *testing.T) {
	g, vf := setup(t, 4)
	r, err := New(DefaultConfig(), vf, nil)
	require.NoError(t, err)

	start := phase.Vector{0.2, 1.1, 2.9, 4.4}
	snapshot := start.Clone()
	startEval, err := vf.Evaluate(g, start)
	require.NoError(t, err)

	_, err = r.Refine(g, start, startEval, 101.0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, start)
}

func TestRefinePhasesStayNormalized(t *testing.T) {
	g, vf := setup(t, 6)
	r, err := New(DefaultConfig(), vf, nil)
	require.NoError(t, err)

	start := phase.Vector{6.0, 5.1, 0.4, 2.2, 3.3, 1.0}
	startEval, err := vf.Evaluate(g, start)
	require.NoError(t, err)

	out, err := r.Refine(g, start, startEval, 101.0)
	require.NoError(t, err)
	for i, p := range out.Phases {
		assert.GreaterOrEqual(t, p, 0.0, "phase %d", i)
		assert.Less(t, p, phase.TwoPi, "phase %d", i)
	}
}
