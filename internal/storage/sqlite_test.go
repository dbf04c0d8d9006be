//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"waveprop/internal/model"
)

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "waveprop.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	input := sampleRun("run-1", "2026-08-28T10:00:00Z")
	if err := store.SaveRun(ctx, input); err != nil {
		t.Fatalf("save run: %v", err)
	}

	output, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if output.ID != input.ID || output.FinalLoss != input.FinalLoss {
		t.Fatalf("unexpected run: %+v", output)
	}
}

func TestSQLiteStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "waveprop.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.SaveRun(ctx, sampleRun("run-old", "2026-08-27T10:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("run-new", "2026-08-28T10:00:00Z")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	if err := store.DeleteRun(ctx, "run-old"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	runs, err = store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run after delete, got %d", len(runs))
	}
}

func TestSQLiteStoreDatasetSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "waveprop.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	input := model.DatasetSummary{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Path:            "train.wpts",
		Trajectories:    20,
		SeqLen:          4,
		GridSize:        8,
		SizeBytes:       4096,
	}
	if err := store.SaveDatasetSummary(ctx, input); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	output, ok, err := store.GetDatasetSummary(ctx, "train.wpts")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted summary")
	}
	if output.SizeBytes != input.SizeBytes {
		t.Fatalf("unexpected summary: %+v", output)
	}
}
