package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaselock/domain/core"
	"phaselock/internal/config"
)

func newOrchestrator(t *testing.T, cfg *config.Config) *Orchestrator {
	t.Helper()
	o, err := New(cfg, nil)
	require.NoError(t, err)
	return o
}

func TestRunSixModes(t *testing.T) {
	o := newOrchestrator(t, config.Default())
	result, err := o.Run(context.Background(), 6)
	require.NoError(t, err)

	assert.False(t, result.RunID.IsEmpty())
	assert.Equal(t, 6, result.ModeCount)
	assert.Len(t, result.Phases, 6)
	assert.NotEmpty(t, result.Fingerprint)
	assert.False(t, result.CreatedAt.IsZero())
	assert.LessOrEqual(t, result.Energy, result.InitialEnergy)
	require.NotEmpty(t, result.Trace)
	assert.Equal(t, result.InitialEnergy, result.Trace[0].Energy)
	assert.NoError(t, result.Validate())
}

func TestRunRejectsTinySystems(t *testing.T) {
	o := newOrchestrator(t, config.Default())
	for _, n := range []int{0, 1} {
		_, err := o.Run(context.Background(), n)
		assert.True(t, core.IsTopologyError(err), "n=%d: got %v", n, err)
	}
}

func TestRunDeterministicFingerprint(t *testing.T) {
	o := newOrchestrator(t, config.Default())

	first, err := o.Run(context.Background(), 8)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), 8)
	require.NoError(t, err)

	// Same configuration, same fingerprint and numerics; only identity
	// and timestamp differ.
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Energy, second.Energy)
	assert.Equal(t, first.Aggregate, second.Aggregate)
	assert.Equal(t, first.Phases, second.Phases)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunFingerprintSeparatesTopologyConfigs(t *testing.T) {
	sparse := config.Default()
	sparse.Graph.LongRangeDensity = 0.3
	dense := config.Default()
	dense.Graph.LongRangeDensity = 0.9

	sparseRun, err := newOrchestrator(t, sparse).Run(context.Background(), 12)
	require.NoError(t, err)
	denseRun, err := newOrchestrator(t, dense).Run(context.Background(), 12)
	require.NoError(t, err)

	// Denser chords change the coupling matrix and therefore the numbers;
	// two runs that cannot replay each other must not share a fingerprint.
	assert.NotEqual(t, sparseRun.Fingerprint, denseRun.Fingerprint)
	assert.NotEqual(t, sparseRun.Energy, denseRun.Energy)
	assert.Equal(t, sparse.Optimization.PerturbSeed, sparseRun.PerturbSeed)
}

func TestNewRejectsBadVerifierConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Optimization.HistogramBins = 0

	_, err := New(cfg, nil)
	assert.True(t, core.IsValidationError(err), "got %v", err)
}

func TestRunHonorsCancellation(t *testing.T) {
	o := newOrchestrator(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, 6)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweepPreservesOrder(t *testing.T) {
	o := newOrchestrator(t, config.Default())
	modeCounts := []int{4, 6, 8, 5}

	results, err := o.Sweep(context.Background(), modeCounts, 2)
	require.NoError(t, err)
	require.Len(t, results, len(modeCounts))
	for i, n := range modeCounts {
		require.NotNil(t, results[i], "index %d", i)
		assert.Equal(t, n, results[i].ModeCount)
	}
}

func TestSweepReportsFailuresButKeepsSuccesses(t *testing.T) {
	o := newOrchestrator(t, config.Default())

	results, err := o.Sweep(context.Background(), []int{4, 1, 6}, 1)
	assert.True(t, core.IsTopologyError(err))
	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
}
