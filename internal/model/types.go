package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ModelSpec is the geometry and hyperparameters of a sequence model,
// persisted alongside checkpoints so a load can verify it agrees with the
// requested configuration.
type ModelSpec struct {
	GridSize  int   `json:"grid_size"`
	SeqLen    int   `json:"seq_len"`
	DModel    int   `json:"d_model"`
	NumHeads  int   `json:"num_heads"`
	NumLayers int   `json:"num_layers"`
	FFWidth   int   `json:"ff_width"`
	Seed      int64 `json:"seed"`
}

// TrainSpec is the trainer configuration recorded with a run.
type TrainSpec struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Seed         int64   `json:"seed"`
}

// Run is one completed training run: its dataset, configuration, loss
// curve and checkpoint location.
type Run struct {
	VersionedRecord
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DatasetPath  string    `json:"dataset_path"`
	Model        ModelSpec `json:"model"`
	Train        TrainSpec `json:"train"`
	EpochLoss    []float64 `json:"epoch_loss"`
	FinalLoss    float64   `json:"final_loss"`
	ModelPath    string    `json:"model_path"`
	CreatedAtUTC string    `json:"created_at_utc"`
}

// DatasetSummary describes a trajectory store file.
type DatasetSummary struct {
	VersionedRecord
	Path         string `json:"path"`
	Trajectories int    `json:"trajectories"`
	SeqLen       int    `json:"seq_len"`
	GridSize     int    `json:"grid_size"`
	SizeBytes    int64  `json:"size_bytes"`
}
