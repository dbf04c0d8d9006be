package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"

	"waveprop/pkg/waveprop"
)

func runDataset(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing dataset subcommand")
	}
	switch args[0] {
	case "generate":
		return runDatasetGenerate(ctx, args[1:])
	case "info":
		return runDatasetInfo(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown dataset subcommand: %s (want generate|info)", args[0]))
	}
}

func runDatasetGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dataset generate", flag.ContinueOnError)
	out := fs.String("out", "", "output dataset path")
	trajectories := fs.Int("trajectories", 64, "number of trajectories")
	seqLen := fs.Int("seq-len", 16, "time steps per trajectory")
	gridSize := fs.Int("grid", 32, "spatial grid points")
	seed := fs.Int64("seed", 0, "generator seed")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return usageError("dataset generate requires --out")
	}

	client, err := waveprop.New(waveprop.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.GenerateDataset(ctx, waveprop.GenerateRequest{
		Path:         *out,
		Trajectories: *trajectories,
		SeqLen:       *seqLen,
		GridSize:     *gridSize,
		Seed:         *seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("generated path=%s trajectories=%d seq_len=%d grid=%d size=%s\n",
		summary.Path, summary.Trajectories, summary.SeqLen, summary.GridSize,
		humanize.Bytes(uint64(summary.SizeBytes)))
	return nil
}

func runDatasetInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dataset info", flag.ContinueOnError)
	path := fs.String("path", "", "dataset path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("dataset info requires --path")
	}

	client, err := waveprop.New(waveprop.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.DatasetInfo(ctx, *path)
	if err != nil {
		return err
	}

	fmt.Printf("path=%s trajectories=%d seq_len=%d grid=%d size=%s\n",
		summary.Path, summary.Trajectories, summary.SeqLen, summary.GridSize,
		humanize.Bytes(uint64(summary.SizeBytes)))
	return nil
}
