package navigator

import (
	"math"
	"testing"

	"phaselock/domain/core"
	"phaselock/domain/lattice"
	"phaselock/domain/phase"
)

func ringGraph(t *testing.T, n int) *lattice.Graph {
	t.Helper()
	cfg := lattice.DefaultBuildConfig()
	cfg.LongRangeDensity = 0 // pure ring, fully deterministic
	g, err := lattice.BuildRing(n, cfg)
	if err != nil {
		t.Fatalf("BuildRing(%d): %v", n, err)
	}
	return g
}

func TestInitializeRangeAndShape(t *testing.T) {
	nv := New(nil)
	for _, n := range []int{2, 3, 6, 17} {
		g := ringGraph(t, n)
		phases, err := nv.Initialize(g)
		if err != nil {
			t.Fatalf("Initialize(n=%d): %v", n, err)
		}
		if len(phases) != n {
			t.Errorf("n=%d: got %d phases", n, len(phases))
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, p := range phases {
			if math.IsNaN(p) || p < 0 || p > phase.TwoPi {
				t.Errorf("n=%d: phase[%d] = %v outside [0, 2pi]", n, i, p)
			}
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		// The affine rescale touches both endpoints exactly, never one
		// ulp past them.
		if lo != 0 {
			t.Errorf("n=%d: min phase = %v, want exactly 0", n, lo)
		}
		if hi != phase.TwoPi {
			t.Errorf("n=%d: max phase = %v, want exactly 2pi", n, hi)
		}
	}
}

func TestInitializeDeterministic(t *testing.T) {
	nv := New(nil)
	g, err := lattice.BuildRing(8, lattice.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("BuildRing: %v", err)
	}

	first, err := nv.Initialize(g)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := nv.Initialize(g)
		if err != nil {
			t.Fatalf("Initialize repeat %d: %v", run, err)
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("repeat %d: phase[%d] changed %v -> %v", run, i, first[i], again[i])
			}
		}
	}
}

func TestInitializeDegenerateSpectrum(t *testing.T) {
	// Two dense clusters joined by a vanishing bridge: the spectral gap
	// collapses and the Fiedler vector is no longer well defined.
	w := 1e-15
	g, err := lattice.NewGraph([][]float64{
		{0, 1, 1, 0, 0, 0},
		{1, 0, 1, 0, 0, 0},
		{1, 1, 0, w, 0, 0},
		{0, 0, w, 0, 1, 1},
		{0, 0, 0, 1, 0, 1},
		{0, 0, 0, 1, 1, 0},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	_, err = New(nil).Initialize(g)
	if !core.IsSpectrumError(err) {
		t.Errorf("got %v, want degenerate spectrum error", err)
	}
}

func TestInitializeTwoModes(t *testing.T) {
	g, err := lattice.NewGraph([][]float64{
		{0, 1},
		{1, 0},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	phases, err := New(nil).Initialize(g)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// Two coupled modes split to the opposite ends of the circle.
	got := []float64{phases[0], phases[1]}
	if !(got[0] == 0 && math.Abs(got[1]-phase.TwoPi) < 1e-12) &&
		!(got[1] == 0 && math.Abs(got[0]-phase.TwoPi) < 1e-12) {
		t.Errorf("got phases %v, want {0, 2pi} in some order", got)
	}
}
