package dataset

import (
	"os"

	"waveprop/internal/model"
)

// Info summarizes a store file without holding on to the payload.
func Info(path string) (model.DatasetSummary, error) {
	set, err := Read(path)
	if err != nil {
		return model.DatasetSummary{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return model.DatasetSummary{}, err
	}
	return model.DatasetSummary{
		Path:         path,
		Trajectories: set.Trajectories,
		SeqLen:       set.SeqLen,
		GridSize:     set.GridSize,
		SizeBytes:    fi.Size(),
	}, nil
}
