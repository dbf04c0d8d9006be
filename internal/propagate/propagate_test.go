package propagate

import (
	"errors"
	"testing"

	"waveprop/internal/field"
	"waveprop/internal/seqmodel"
)

func stepModel(t *testing.T, grid int) *seqmodel.StepModel {
	t.Helper()
	m, err := seqmodel.New(seqmodel.Config{
		GridSize:  grid,
		SeqLen:    2,
		DModel:    8,
		NumHeads:  2,
		NumLayers: 1,
		FFWidth:   16,
		Seed:      3,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m.StepView()
}

func flatSchedule(steps, grid int) [][]float64 {
	out := make([][]float64, steps)
	for i := range out {
		out[i] = make([]float64, grid)
	}
	return out
}

func TestRolloutEmptySchedule(t *testing.T) {
	sm := stepModel(t, 4)
	initial := field.Field{Re: make([]float64, 4), Im: make([]float64, 4)}

	fields, err := Rollout(sm, initial, nil)
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("got %d fields, want 0", len(fields))
	}
}

func TestRolloutSingleStep(t *testing.T) {
	sm := stepModel(t, 4)
	initial := field.Field{Re: []float64{1, 0, 0, 0}, Im: make([]float64, 4)}

	fields, err := Rollout(sm, initial, flatSchedule(1, 4))
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
	if fields[0].Grid() != 4 {
		t.Fatalf("got grid %d, want 4", fields[0].Grid())
	}
}

func TestRolloutChainsPredictions(t *testing.T) {
	sm := stepModel(t, 4)
	initial := field.Field{Re: []float64{0.5, -0.5, 0.25, 0}, Im: []float64{0, 0.1, 0, -0.1}}
	schedule := flatSchedule(3, 4)

	fields, err := Rollout(sm, initial, schedule)
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}

	// Step 1 must equal a direct model call on the initial field, and
	// step 2 a direct call on step 1's output.
	re, im, err := sm.Step(initial.Re, initial.Im, schedule[0])
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	for g := range re {
		if fields[0].Re[g] != re[g] || fields[0].Im[g] != im[g] {
			t.Fatalf("step 1 diverged from direct call at point %d", g)
		}
	}
	re2, im2, err := sm.Step(re, im, schedule[1])
	if err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	for g := range re2 {
		if fields[1].Re[g] != re2[g] || fields[1].Im[g] != im2[g] {
			t.Fatalf("step 2 did not chain from step 1 at point %d", g)
		}
	}
}

func TestRolloutRejectsGridMismatch(t *testing.T) {
	sm := stepModel(t, 4)

	wrongInitial := field.Field{Re: make([]float64, 6), Im: make([]float64, 6)}
	if _, err := Rollout(sm, wrongInitial, flatSchedule(2, 4)); !errors.Is(err, field.ErrShapeMismatch) {
		t.Fatalf("initial: got %v, want shape mismatch", err)
	}

	initial := field.Field{Re: make([]float64, 4), Im: make([]float64, 4)}
	schedule := flatSchedule(2, 4)
	schedule[1] = make([]float64, 6)
	if _, err := Rollout(sm, initial, schedule); !errors.Is(err, field.ErrShapeMismatch) {
		t.Fatalf("schedule: got %v, want shape mismatch", err)
	}
}
