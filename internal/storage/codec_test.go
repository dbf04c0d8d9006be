package storage

import (
	"errors"
	"reflect"
	"testing"

	"waveprop/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	input := sampleRun("run-1", "2026-08-28T10:00:00Z")

	data, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\nin:  %+v\nout: %+v", input, output)
	}
}

func TestDecodeRunVersionMismatch(t *testing.T) {
	run := sampleRun("run-1", "2026-08-28T10:00:00Z")
	run.SchemaVersion = CurrentSchemaVersion + 1

	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("got %v, want version mismatch", err)
	}
}

func TestDatasetSummaryCodecRoundTrip(t *testing.T) {
	input := model.DatasetSummary{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Path:            "train.wpts",
		Trajectories:    10,
		SeqLen:          4,
		GridSize:        8,
		SizeBytes:       2048,
	}

	data, err := EncodeDatasetSummary(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeDatasetSummary(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\nin:  %+v\nout: %+v", input, output)
	}
}

func TestDecodeDatasetSummaryVersionMismatch(t *testing.T) {
	summary := model.DatasetSummary{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion + 1},
		Path:            "train.wpts",
	}
	data, err := EncodeDatasetSummary(summary)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeDatasetSummary(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("got %v, want version mismatch", err)
	}
}
