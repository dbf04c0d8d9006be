// Package waveprop is the embedding API for the wavefunction propagation
// pipeline: dataset generation, model training and autoregressive rollout,
// with run records persisted through the configured store and mirrored as
// on-disk artifacts.
package waveprop

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"waveprop/internal/dataset"
	"waveprop/internal/field"
	"waveprop/internal/model"
	"waveprop/internal/propagate"
	"waveprop/internal/seqmodel"
	"waveprop/internal/stats"
	"waveprop/internal/storage"
	"waveprop/internal/trainer"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "waveprop.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
}

type Client struct {
	store   storage.Store
	runsDir string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		runsDir: runsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

type GenerateRequest struct {
	Path         string
	Trajectories int
	SeqLen       int
	GridSize     int
	Seed         int64
}

// GenerateDataset synthesizes a phase-rotation dataset, writes it to the
// requested path and records its summary in the store.
func (c *Client) GenerateDataset(ctx context.Context, req GenerateRequest) (model.DatasetSummary, error) {
	if req.Path == "" {
		return model.DatasetSummary{}, fmt.Errorf("%w: dataset path is required", field.ErrConfiguration)
	}
	if req.Trajectories <= 0 {
		req.Trajectories = 64
	}
	if req.SeqLen <= 0 {
		req.SeqLen = 16
	}
	if req.GridSize <= 0 {
		req.GridSize = 32
	}

	set, err := dataset.GeneratePhaseRotation(dataset.PhaseRotationConfig{
		Trajectories: req.Trajectories,
		SeqLen:       req.SeqLen,
		GridSize:     req.GridSize,
		Seed:         req.Seed,
	})
	if err != nil {
		return model.DatasetSummary{}, err
	}
	if err := dataset.Write(req.Path, set); err != nil {
		return model.DatasetSummary{}, err
	}

	summary, err := dataset.Info(req.Path)
	if err != nil {
		return model.DatasetSummary{}, err
	}
	summary.VersionedRecord = model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
	if err := c.store.SaveDatasetSummary(ctx, summary); err != nil {
		return model.DatasetSummary{}, err
	}
	return summary, nil
}

// DatasetInfo reads a dataset file header and returns its summary.
func (c *Client) DatasetInfo(_ context.Context, path string) (model.DatasetSummary, error) {
	return dataset.Info(path)
}

type TrainRequest struct {
	Name        string
	DatasetPath string
	ModelPath   string

	DModel    int
	NumHeads  int
	NumLayers int
	FFWidth   int
	Dropout   float64

	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

type TrainSummary struct {
	RunID        string
	ArtifactsDir string
	ModelPath    string
	EpochLoss    []float64
	FinalLoss    float64
}

// Train fits a fresh model on the named dataset, persists the checkpoint
// and the run record, and writes the run artifacts.
func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if req.DatasetPath == "" {
		return TrainSummary{}, fmt.Errorf("%w: dataset path is required", field.ErrConfiguration)
	}
	if req.Name == "" {
		req.Name = "train"
	}
	if req.DModel <= 0 {
		req.DModel = 32
	}
	if req.NumHeads <= 0 {
		req.NumHeads = 4
	}
	if req.NumLayers <= 0 {
		req.NumLayers = 2
	}
	if req.FFWidth <= 0 {
		req.FFWidth = 64
	}
	if req.Epochs <= 0 {
		req.Epochs = 50
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 8
	}
	if req.LearningRate <= 0 {
		req.LearningRate = 0.005
	}

	set, err := dataset.Read(req.DatasetPath)
	if err != nil {
		return TrainSummary{}, err
	}

	cfg := seqmodel.Config{
		GridSize:  set.GridSize,
		SeqLen:    set.SeqLen,
		DModel:    req.DModel,
		NumHeads:  req.NumHeads,
		NumLayers: req.NumLayers,
		FFWidth:   req.FFWidth,
		Dropout:   req.Dropout,
		Seed:      req.Seed,
	}
	m, err := seqmodel.New(cfg)
	if err != nil {
		return TrainSummary{}, err
	}
	loader, err := dataset.NewLoader(set, req.BatchSize, req.Seed)
	if err != nil {
		return TrainSummary{}, err
	}

	result, err := trainer.Train(ctx, m, loader, trainer.Config{
		Epochs:       req.Epochs,
		LearningRate: req.LearningRate,
	})
	if err != nil {
		return TrainSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%s", req.Name, req.Seed, uuid.NewString()[:8])
	runDir := filepath.Join(c.runsDir, runID)

	modelPath := req.ModelPath
	if modelPath == "" {
		modelPath = filepath.Join(runDir, "model.json")
	}

	run := model.Run{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:          runID,
		Name:        req.Name,
		DatasetPath: req.DatasetPath,
		Model:       cfg.Spec(),
		Train: model.TrainSpec{
			Epochs:       req.Epochs,
			BatchSize:    req.BatchSize,
			LearningRate: req.LearningRate,
			Seed:         req.Seed,
		},
		EpochLoss:    result.EpochLoss,
		FinalLoss:    result.FinalLoss,
		ModelPath:    modelPath,
		CreatedAtUTC: now.Format(time.RFC3339),
	}

	artifactsDir, err := stats.WriteRunArtifacts(c.runsDir, run)
	if err != nil {
		return TrainSummary{}, err
	}
	if err := m.Save(modelPath); err != nil {
		return TrainSummary{}, err
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return TrainSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        run.ID,
		Name:         run.Name,
		DatasetPath:  run.DatasetPath,
		Epochs:       run.Train.Epochs,
		Seed:         run.Train.Seed,
		FinalLoss:    run.FinalLoss,
		CreatedAtUTC: run.CreatedAtUTC,
	}); err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:        run.ID,
		ArtifactsDir: artifactsDir,
		ModelPath:    modelPath,
		EpochLoss:    run.EpochLoss,
		FinalLoss:    run.FinalLoss,
	}, nil
}

type RolloutRequest struct {
	ModelPath string
	InitialRe []float64
	InitialIm []float64
	Schedule  [][]float64
}

type RolloutResult struct {
	Re [][]float64
	Im [][]float64
}

// Rollout loads a checkpoint and advances the initial field through one
// single-step model call per schedule row.
func (c *Client) Rollout(_ context.Context, req RolloutRequest) (RolloutResult, error) {
	if req.ModelPath == "" {
		return RolloutResult{}, fmt.Errorf("%w: model path is required", field.ErrConfiguration)
	}

	m, err := seqmodel.Load(req.ModelPath)
	if err != nil {
		return RolloutResult{}, err
	}
	initial, err := field.NewField(req.InitialRe, req.InitialIm)
	if err != nil {
		return RolloutResult{}, err
	}

	fields, err := propagate.Rollout(m.StepView(), initial, req.Schedule)
	if err != nil {
		return RolloutResult{}, err
	}

	res := RolloutResult{
		Re: make([][]float64, len(fields)),
		Im: make([][]float64, len(fields)),
	}
	for i, f := range fields {
		res.Re[i] = f.Re
		res.Im[i] = f.Im
	}
	return res, nil
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	Name         string
	CreatedAtUTC string
	DatasetPath  string
	Epochs       int
	Seed         int64
	FinalLoss    float64
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	items := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		items = append(items, RunItem{
			RunID:        run.ID,
			Name:         run.Name,
			CreatedAtUTC: run.CreatedAtUTC,
			DatasetPath:  run.DatasetPath,
			Epochs:       run.Train.Epochs,
			Seed:         run.Train.Seed,
			FinalLoss:    run.FinalLoss,
		})
	}
	return items, nil
}
