// Package postgres persists optimization runs for later replay and
// comparison across hardware sessions.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"phaselock/domain/core"
	"phaselock/domain/run"
)

// RunRepository stores optimization results in PostgreSQL.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a repository over an existing connection pool.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Connect opens a pool and verifies connectivity.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the runs table if it does not exist.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS optimization_runs (
			run_id UUID PRIMARY KEY,
			mode_count INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			perturb_seed BIGINT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			refinement_triggered BOOLEAN NOT NULL,
			converged BOOLEAN NOT NULL,
			iterations INTEGER NOT NULL,
			initial_energy DOUBLE PRECISION NOT NULL,
			energy DOUBLE PRECISION NOT NULL,
			aggregate_score DOUBLE PRECISION NOT NULL,
			metrics JSONB NOT NULL,
			phases JSONB NOT NULL,
			trace JSONB NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

// Save upserts a run record.
func (r *RunRepository) Save(ctx context.Context, result *run.Result) error {
	if err := result.Validate(); err != nil {
		return err
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return err
	}
	phasesJSON, err := json.Marshal(result.Phases)
	if err != nil {
		return err
	}
	traceJSON, err := json.Marshal(result.Trace)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO optimization_runs (
			run_id, mode_count, seed, perturb_seed, threshold, refinement_triggered,
			converged, iterations, initial_energy, energy, aggregate_score,
			metrics, phases, trace, fingerprint, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (run_id) DO UPDATE SET
			converged = EXCLUDED.converged,
			iterations = EXCLUDED.iterations,
			energy = EXCLUDED.energy,
			aggregate_score = EXCLUDED.aggregate_score,
			metrics = EXCLUDED.metrics,
			phases = EXCLUDED.phases,
			trace = EXCLUDED.trace`,
		result.RunID.String(), result.ModeCount, result.Seed, result.PerturbSeed, result.Threshold,
		result.RefinementTriggered, result.Converged, result.Iterations,
		result.InitialEnergy, result.Energy, result.Aggregate,
		metricsJSON, phasesJSON, traceJSON, string(result.Fingerprint), result.CreatedAt)
	return err
}

// Get retrieves one run by id.
func (r *RunRepository) Get(ctx context.Context, id core.RunID) (*run.Result, error) {
	var result run.Result
	var runID string
	var fingerprint string
	var metricsJSON, phasesJSON, traceJSON []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, mode_count, seed, perturb_seed, threshold, refinement_triggered,
			   converged, iterations, initial_energy, energy, aggregate_score,
			   metrics, phases, trace, fingerprint, created_at
		FROM optimization_runs
		WHERE run_id = $1
	`, id.String()).Scan(
		&runID, &result.ModeCount, &result.Seed, &result.PerturbSeed, &result.Threshold, &result.RefinementTriggered,
		&result.Converged, &result.Iterations, &result.InitialEnergy, &result.Energy, &result.Aggregate,
		&metricsJSON, &phasesJSON, &traceJSON, &fingerprint, &result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrResultNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	result.RunID = core.RunID(runID)
	result.Fingerprint = core.Hash(fingerprint)
	if err := json.Unmarshal(metricsJSON, &result.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(phasesJSON, &result.Phases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
	}
	if err := json.Unmarshal(traceJSON, &result.Trace); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace: %w", err)
	}
	return &result, nil
}

// List returns recent runs, newest first, optionally limited.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*run.Result, error) {
	query := `
		SELECT run_id, mode_count, seed, perturb_seed, threshold, refinement_triggered,
			   converged, iterations, initial_energy, energy, aggregate_score,
			   metrics, phases, trace, fingerprint, created_at
		FROM optimization_runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*run.Result
	for rows.Next() {
		var result run.Result
		var runID, fingerprint string
		var metricsJSON, phasesJSON, traceJSON []byte

		err := rows.Scan(
			&runID, &result.ModeCount, &result.Seed, &result.PerturbSeed, &result.Threshold, &result.RefinementTriggered,
			&result.Converged, &result.Iterations, &result.InitialEnergy, &result.Energy, &result.Aggregate,
			&metricsJSON, &phasesJSON, &traceJSON, &fingerprint, &result.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		result.RunID = core.RunID(runID)
		result.Fingerprint = core.Hash(fingerprint)
		if err := json.Unmarshal(metricsJSON, &result.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics for run %s: %w", runID, err)
		}
		if err := json.Unmarshal(phasesJSON, &result.Phases); err != nil {
			return nil, fmt.Errorf("failed to unmarshal phases for run %s: %w", runID, err)
		}
		if err := json.Unmarshal(traceJSON, &result.Trace); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace for run %s: %w", runID, err)
		}

		results = append(results, &result)
	}
	return results, rows.Err()
}
