package trainer

import (
	"context"
	"errors"
	"testing"

	"waveprop/internal/dataset"
	"waveprop/internal/field"
	"waveprop/internal/seqmodel"
)

func phaseRotationLoader(t *testing.T, trajectories, seq, grid, batch int) *dataset.Loader {
	t.Helper()
	set, err := dataset.GeneratePhaseRotation(dataset.PhaseRotationConfig{
		Trajectories: trajectories,
		SeqLen:       seq,
		GridSize:     grid,
		Seed:         11,
	})
	if err != nil {
		t.Fatalf("GeneratePhaseRotation: %v", err)
	}
	loader, err := dataset.NewLoader(set, batch, 11)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return loader
}

func smallModel(t *testing.T, seq, grid int) *seqmodel.Model {
	t.Helper()
	m, err := seqmodel.New(seqmodel.Config{
		GridSize:  grid,
		SeqLen:    seq,
		DModel:    16,
		NumHeads:  2,
		NumLayers: 2,
		FFWidth:   32,
		Dropout:   0,
		Seed:      11,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestTrainLossDecreases(t *testing.T) {
	const (
		trajectories = 20
		seq          = 4
		grid         = 8
		epochs       = 50
	)
	loader := phaseRotationLoader(t, trajectories, seq, grid, 5)
	m := smallModel(t, seq, grid)

	res, err := Train(context.Background(), m, loader, Config{Epochs: epochs, LearningRate: 0.005})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.EpochLoss) != epochs {
		t.Fatalf("got %d epoch losses, want %d", len(res.EpochLoss), epochs)
	}
	if res.FinalLoss != res.EpochLoss[epochs-1] {
		t.Fatalf("final loss %v does not match last epoch %v", res.FinalLoss, res.EpochLoss[epochs-1])
	}
	if !(res.FinalLoss < res.EpochLoss[0]) {
		t.Fatalf("loss did not decrease: first %v, final %v", res.EpochLoss[0], res.FinalLoss)
	}
}

func TestTrainGeometryMismatch(t *testing.T) {
	loader := phaseRotationLoader(t, 4, 4, 8, 2)
	m := smallModel(t, 4, 6)

	if _, err := Train(context.Background(), m, loader, Config{Epochs: 1, LearningRate: 0.01}); !errors.Is(err, field.ErrShapeMismatch) {
		t.Fatalf("got %v, want shape mismatch", err)
	}
}

func TestTrainConfigValidation(t *testing.T) {
	loader := phaseRotationLoader(t, 2, 2, 4, 1)
	m := smallModel(t, 2, 4)

	if _, err := Train(context.Background(), m, loader, Config{Epochs: 0, LearningRate: 0.01}); !errors.Is(err, field.ErrConfiguration) {
		t.Fatalf("zero epochs: got %v, want configuration error", err)
	}
	if _, err := Train(context.Background(), m, loader, Config{Epochs: 1, LearningRate: 0}); !errors.Is(err, field.ErrConfiguration) {
		t.Fatalf("zero learning rate: got %v, want configuration error", err)
	}
}

func TestTrainHonorsContext(t *testing.T) {
	loader := phaseRotationLoader(t, 2, 2, 4, 1)
	m := smallModel(t, 2, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Train(ctx, m, loader, Config{Epochs: 10, LearningRate: 0.01}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
