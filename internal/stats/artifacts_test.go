package stats

import (
	"os"
	"path/filepath"
	"testing"

	"waveprop/internal/model"
)

func testRun(id, createdAt string) model.Run {
	return model.Run{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		ID:              id,
		Name:            "phase-rotation",
		DatasetPath:     "train.wpts",
		Model:           model.ModelSpec{GridSize: 8, SeqLen: 4, DModel: 16, NumHeads: 2, NumLayers: 2, FFWidth: 32, Seed: 7},
		Train:           model.TrainSpec{Epochs: 3, BatchSize: 5, LearningRate: 0.005, Seed: 7},
		EpochLoss:       []float64{0.31, 0.22, 0.15},
		FinalLoss:       0.15,
		CreatedAtUTC:    createdAt,
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	run := testRun("run-1", "2026-08-28T10:00:00Z")

	runDir, err := WriteRunArtifacts(baseDir, run)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}
	for _, name := range []string{"run.json", "loss.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	loaded, ok, err := ReadRun(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if loaded.FinalLoss != run.FinalLoss || len(loaded.EpochLoss) != 3 {
		t.Fatalf("unexpected run: %+v", loaded)
	}
}

func TestWriteRunArtifactsRequiresID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), model.Run{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestLossSeriesRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	run := testRun("run-1", "2026-08-28T10:00:00Z")

	if _, err := WriteRunArtifacts(baseDir, run); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	series, ok, err := ReadLossSeries(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	if !ok {
		t.Fatal("expected loss series")
	}
	if len(series) != 3 || series[0] != 0.31 || series[2] != 0.15 {
		t.Fatalf("unexpected series: %+v", series)
	}
}

func TestReadLossSeriesMissing(t *testing.T) {
	_, ok, err := ReadLossSeries(t.TempDir(), "absent")
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	if ok {
		t.Fatal("expected missing series")
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	baseDir := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "run-old", Name: "a", Epochs: 3, FinalLoss: 0.2, CreatedAtUTC: "2026-08-27T10:00:00Z"},
		{RunID: "run-new", Name: "b", Epochs: 3, FinalLoss: 0.1, CreatedAtUTC: "2026-08-28T10:00:00Z"},
	}
	for _, e := range entries {
		if err := AppendRunIndex(baseDir, e); err != nil {
			t.Fatalf("append %s: %v", e.RunID, err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 2 || index[0].RunID != "run-new" || index[1].RunID != "run-old" {
		t.Fatalf("unexpected index order: %+v", index)
	}
}

func TestRunIndexReplacesExistingEntry(t *testing.T) {
	baseDir := t.TempDir()

	entry := RunIndexEntry{RunID: "run-1", FinalLoss: 0.5, CreatedAtUTC: "2026-08-28T10:00:00Z"}
	if err := AppendRunIndex(baseDir, entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	entry.FinalLoss = 0.4
	if err := AppendRunIndex(baseDir, entry); err != nil {
		t.Fatalf("append update: %v", err)
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 1 || index[0].FinalLoss != 0.4 {
		t.Fatalf("unexpected index: %+v", index)
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %+v", index)
	}
}
