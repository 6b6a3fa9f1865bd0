package run

import (
	"testing"
	"time"

	"phaselock/domain/core"
	"phaselock/domain/phase"
)

func validResult() *Result {
	return &Result{
		RunID:       core.NewRunID(),
		ModeCount:   3,
		Seed:        42,
		PerturbSeed: 1337,
		Threshold:   80,
		Phases:      phase.Vector{0, 1, 2},
		Fingerprint: core.NewRunFingerprint(core.FingerprintInput{ModeCount: 3, Seed: 42, Threshold: 80}),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	if err := validResult().Validate(); err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}

	cases := map[string]func(*Result){
		"empty run id":    func(r *Result) { r.RunID = "" },
		"tiny mode count": func(r *Result) { r.ModeCount = 1 },
		"phase mismatch":  func(r *Result) { r.Phases = phase.Vector{0} },
		"no fingerprint":  func(r *Result) { r.Fingerprint = "" },
		"zero created at": func(r *Result) { r.CreatedAt = time.Time{} },
	}
	for name, corrupt := range cases {
		r := validResult()
		corrupt(r)
		if err := r.Validate(); err == nil {
			t.Errorf("%s: corruption accepted", name)
		}
	}
}
