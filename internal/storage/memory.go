package storage

import (
	"context"
	"sort"
	"sync"

	"waveprop/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	datasets    map[string]model.DatasetSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.datasets = make(map[string]model.DatasetSummary)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := run
	copied.EpochLoss = append([]float64(nil), run.EpochLoss...)
	s.runs[run.ID] = copied
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, false, nil
	}
	run.EpochLoss = append([]float64(nil), run.EpochLoss...)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		run.EpochLoss = append([]float64(nil), run.EpochLoss...)
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) SaveDatasetSummary(_ context.Context, summary model.DatasetSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets[summary.Path] = summary
	return nil
}

func (s *MemoryStore) GetDatasetSummary(_ context.Context, path string) (model.DatasetSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.datasets[path]
	return summary, ok, nil
}
