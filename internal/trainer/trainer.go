// Package trainer runs the fixed-epoch training loop: every epoch visits
// every trajectory once in shuffled batches, each batch takes exactly one
// gradient update, and the per-epoch mean batch loss is recorded. There
// is no early stopping and no validation split.
package trainer

import (
	"context"
	"fmt"

	"waveprop/internal/dataset"
	"waveprop/internal/field"
	"waveprop/internal/seqmodel"
)

// Config holds the loop hyperparameters.
type Config struct {
	Epochs       int
	LearningRate float64
}

func (c Config) validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("%w: epochs %d", field.ErrConfiguration, c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate %f", field.ErrConfiguration, c.LearningRate)
	}
	return nil
}

// Result is the full loss history of one training run.
type Result struct {
	EpochLoss []float64
	FinalLoss float64
}

// Train fits the model on the loader's dataset. The context is checked
// between epochs so a cancelled run stops at an epoch boundary with the
// context error; partial results are discarded.
func Train(ctx context.Context, m *seqmodel.Model, loader *dataset.Loader, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	samples, err := buildSamples(m, loader.Set())
	if err != nil {
		return Result{}, err
	}

	res := Result{EpochLoss: make([]float64, 0, cfg.Epochs)}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		var sum float64
		batches := loader.Epoch()
		for _, idx := range batches {
			batch := make([]seqmodel.Sample, len(idx))
			for j, i := range idx {
				batch[j] = samples[i]
			}
			loss, err := m.TrainStep(batch, cfg.LearningRate)
			if err != nil {
				return Result{}, err
			}
			sum += loss
		}
		res.EpochLoss = append(res.EpochLoss, sum/float64(len(batches)))
	}
	res.FinalLoss = res.EpochLoss[len(res.EpochLoss)-1]
	return res, nil
}

// buildSamples flattens every trajectory into the model's token layout
// up front, validating dataset geometry against the model once.
func buildSamples(m *seqmodel.Model, set dataset.Set) ([]seqmodel.Sample, error) {
	mcfg := m.Config()
	if set.SeqLen != mcfg.SeqLen || set.GridSize != mcfg.GridSize {
		return nil, &field.ShapeError{
			Op:       "trainer.Train",
			Expected: []int{mcfg.SeqLen, mcfg.GridSize},
			Actual:   []int{set.SeqLen, set.GridSize},
		}
	}

	samples := make([]seqmodel.Sample, set.Trajectories)
	for i := 0; i < set.Trajectories; i++ {
		re, im, v := set.InputPlanes(i)
		in, err := field.Flatten([][][]float64{re, im, v})
		if err != nil {
			return nil, err
		}
		tre, tim := set.TargetPlanes(i)
		target, err := field.Flatten([][][]float64{tre, tim})
		if err != nil {
			return nil, err
		}
		samples[i] = seqmodel.Sample{Input: in, Target: target}
	}
	return samples, nil
}
