package seqmodel

import (
	"errors"
	"math"
	"testing"

	"waveprop/internal/field"
)

func TestStepShape(t *testing.T) {
	cfg := testConfig()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sm := m.StepView()
	if sm.Grid() != cfg.GridSize {
		t.Fatalf("Grid() = %d, want %d", sm.Grid(), cfg.GridSize)
	}

	re := make([]float64, cfg.GridSize)
	im := make([]float64, cfg.GridSize)
	v := make([]float64, cfg.GridSize)
	outRe, outIm, err := sm.Step(re, im, v)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(outRe) != cfg.GridSize || len(outIm) != cfg.GridSize {
		t.Fatalf("got %d/%d points, want %d", len(outRe), len(outIm), cfg.GridSize)
	}
}

func TestStepRejectsGridMismatch(t *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sm := m.StepView()

	re := make([]float64, sm.Grid()+1)
	im := make([]float64, sm.Grid())
	v := make([]float64, sm.Grid())
	if _, _, err := sm.Step(re, im, v); !errors.Is(err, field.ErrShapeMismatch) {
		t.Fatalf("got %v, want shape mismatch", err)
	}
}

// With a one-step sequence length the whole-sequence path and the step
// adapter see the same tokens and the same positional rows, so their
// predictions must agree.
func TestStepMatchesSingleStepForward(t *testing.T) {
	cfg := testConfig()
	cfg.SeqLen = 1
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	re := []float64{0.1, -0.2, 0.3, -0.4}
	im := []float64{0.5, 0.6, -0.7, 0.8}
	v := []float64{1, 1, 1, 1}

	fr, fi, err := m.Forward([][]float64{re}, [][]float64{im}, [][]float64{v})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	sr, si, err := m.StepView().Step(re, im, v)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	for g := range sr {
		if math.Abs(fr[0][g]-sr[g]) > 1e-6 || math.Abs(fi[0][g]-si[g]) > 1e-6 {
			t.Fatalf("point %d: forward (%v,%v) vs step (%v,%v)", g, fr[0][g], fi[0][g], sr[g], si[g])
		}
	}
}

func TestStepViewIsFrozen(t *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sm := m.StepView()

	re := make([]float64, sm.Grid())
	im := make([]float64, sm.Grid())
	v := make([]float64, sm.Grid())
	for g := range re {
		re[g] = 0.1 * float64(g+1)
	}

	before, _, err := sm.Step(re, im, v)
	if err != nil {
		t.Fatalf("Step before: %v", err)
	}
	if _, err := m.TrainStep(trainingBatch(m), 0.05); err != nil {
		t.Fatalf("TrainStep: %v", err)
	}
	after, _, err := sm.Step(re, im, v)
	if err != nil {
		t.Fatalf("Step after: %v", err)
	}
	for g := range before {
		if before[g] != after[g] {
			t.Fatalf("step view changed under training at point %d", g)
		}
	}
}
