package storage

import (
	"context"

	"waveprop/internal/model"
)

// Store defines persistence operations for training runs and the dataset
// summaries they reference.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	DeleteRun(ctx context.Context, id string) error
	SaveDatasetSummary(ctx context.Context, summary model.DatasetSummary) error
	GetDatasetSummary(ctx context.Context, path string) (model.DatasetSummary, bool, error)
}
