package run

import (
	"time"

	"phaselock/domain/core"
	"phaselock/domain/phase"
	"phaselock/domain/secure"
)

// TracePoint records the system energy at one refinement iteration.
// Iteration 0 is the state before any update was applied.
type TracePoint struct {
	Iteration int     `json:"iteration"`
	Energy    float64 `json:"energy"`
}

// Result is the complete record of one pipeline execution: configuration
// echo, final phase vector, metric breakdown, and the refinement trace.
type Result struct {
	RunID               core.RunID       `json:"run_id"`
	ModeCount           int              `json:"mode_count"`
	Seed                int64            `json:"seed"`
	PerturbSeed         int64            `json:"perturb_seed"`
	Threshold           float64          `json:"threshold"`
	RefinementTriggered bool             `json:"refinement_triggered"`
	Converged           bool             `json:"converged"`
	Iterations          int              `json:"iterations"`
	InitialEnergy       float64          `json:"initial_energy"`
	Energy              float64          `json:"energy"`
	Aggregate           float64          `json:"aggregate_score"`
	Metrics             secure.MetricSet `json:"metrics"`
	Phases              phase.Vector     `json:"phases"`
	Trace               []TracePoint     `json:"trace"`
	Fingerprint         core.Hash        `json:"fingerprint"`
	CreatedAt           time.Time        `json:"created_at"`
}

// Validate checks structural consistency of a decoded result.
func (r *Result) Validate() error {
	if r.RunID.IsEmpty() {
		return core.NewValidationError("run_id", "must not be empty")
	}
	if r.ModeCount < 2 {
		return core.NewValidationError("mode_count", "must be at least 2")
	}
	if len(r.Phases) != r.ModeCount {
		return core.NewValidationError("phases", "length must equal mode_count")
	}
	if r.Fingerprint == "" {
		return core.NewValidationError("fingerprint", "must not be empty")
	}
	if r.CreatedAt.IsZero() {
		return core.NewValidationError("created_at", "must be set")
	}
	return nil
}
