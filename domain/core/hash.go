package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// FingerprintInput collects every configuration value that can change the
// numbers a run produces. Anything that feeds topology generation,
// verification, or refinement belongs here; a value left out breaks the
// replay contract below.
type FingerprintInput struct {
	ModeCount        int
	Seed             int64
	LongRangeDensity float64
	LongRangeWeight  float64
	Threshold        float64
	MaxIterations    int
	Momentum         float64
	LearningRate     float64
	GradientDelta    float64
	HistogramBins    int
	PerturbSeed      int64
	PerturbSteps     int
	PerturbScale     float64
}

// NewRunFingerprint derives the determinism fingerprint for a pipeline run.
// Two runs with identical fingerprints must produce bit-identical results;
// this is the replay contract persisted alongside every result.
func NewRunFingerprint(in FingerprintInput) Hash {
	payload := fmt.Sprintf(
		"modes=%d|seed=%d|density=%v|chord_weight=%v|threshold=%v|max_iter=%d|momentum=%v|lr=%v|grad_delta=%v|bins=%d|perturb_seed=%d|perturb_steps=%d|perturb_scale=%v",
		in.ModeCount, in.Seed, in.LongRangeDensity, in.LongRangeWeight,
		in.Threshold, in.MaxIterations, in.Momentum, in.LearningRate,
		in.GradientDelta, in.HistogramBins,
		in.PerturbSeed, in.PerturbSteps, in.PerturbScale)
	return NewHash([]byte(payload))
}
