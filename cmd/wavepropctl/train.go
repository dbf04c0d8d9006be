package main

import (
	"context"
	"flag"
	"fmt"

	"waveprop/pkg/waveprop"
)

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	name := fs.String("name", "train", "run name")
	datasetPath := fs.String("dataset", "", "training dataset path")
	modelPath := fs.String("model-out", "", "checkpoint output path (default under run dir)")
	dModel := fs.Int("d-model", 32, "embedding width")
	numHeads := fs.Int("heads", 4, "attention heads")
	numLayers := fs.Int("layers", 2, "attention blocks")
	ffWidth := fs.Int("ff-width", 64, "feedforward hidden width")
	dropout := fs.Float64("dropout", 0, "feedforward dropout rate")
	epochs := fs.Int("epochs", 50, "training epochs")
	batchSize := fs.Int("batch", 8, "trajectories per batch")
	learningRate := fs.Float64("lr", 0.005, "learning rate")
	seed := fs.Int64("seed", 0, "model and shuffle seed")
	runsDir := fs.String("runs-dir", "", "run artifacts directory")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *datasetPath == "" {
		return usageError("train requires --dataset")
	}

	client, err := waveprop.New(waveprop.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		RunsDir:   *runsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Train(ctx, waveprop.TrainRequest{
		Name:         *name,
		DatasetPath:  *datasetPath,
		ModelPath:    *modelPath,
		DModel:       *dModel,
		NumHeads:     *numHeads,
		NumLayers:    *numLayers,
		FFWidth:      *ffWidth,
		Dropout:      *dropout,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Seed:         *seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("trained run=%s epochs=%d first_loss=%.6f final_loss=%.6f model=%s artifacts=%s\n",
		summary.RunID, len(summary.EpochLoss), summary.EpochLoss[0], summary.FinalLoss,
		summary.ModelPath, summary.ArtifactsDir)
	return nil
}
