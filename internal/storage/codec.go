package storage

import (
	"encoding/json"
	"errors"

	"waveprop/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeDatasetSummary(s model.DatasetSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeDatasetSummary(data []byte) (model.DatasetSummary, error) {
	var summary model.DatasetSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.DatasetSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.DatasetSummary{}, err
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
