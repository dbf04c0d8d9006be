package seqmodel

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/openfluke/loom/nn"

	"waveprop/internal/field"
	"waveprop/internal/model"
)

const (
	checkpointSchemaVersion = 1
	checkpointCodecVersion  = 1
)

// checkpoint is the on-disk model format: the construction config plus
// every learned parameter. Attention blocks are stored as loom's own
// JSON model strings so loom owns its wire format.
type checkpoint struct {
	model.VersionedRecord

	Spec    model.ModelSpec `json:"spec"`
	Dropout float64         `json:"dropout"`

	EmbedW []float32 `json:"embed_w"`
	EmbedB []float32 `json:"embed_b"`
	OutW   []float32 `json:"out_w"`
	OutB   []float32 `json:"out_b"`

	Blocks []checkpointBlock `json:"blocks"`
}

type checkpointBlock struct {
	Attn string      `json:"attn"`
	FFN  feedForward `json:"ffn"`
}

func blockModelID(i int) string {
	return fmt.Sprintf("wave_block_%d", i)
}

// Save writes the model as an indented JSON checkpoint.
func (m *Model) Save(path string) error {
	cp := checkpoint{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: checkpointSchemaVersion,
			CodecVersion:  checkpointCodecVersion,
		},
		Spec:    m.cfg.Spec(),
		Dropout: m.cfg.Dropout,
		EmbedW:  m.embedW,
		EmbedB:  m.embedB,
		OutW:    m.outW,
		OutB:    m.outB,
		Blocks:  make([]checkpointBlock, len(m.blocks)),
	}
	for i, blk := range m.blocks {
		s, err := blk.attn.SaveModelToString(blockModelID(i))
		if err != nil {
			return fmt.Errorf("serialize attention block %d: %w", i, err)
		}
		cp.Blocks[i] = checkpointBlock{Attn: s, FFN: blk.ffn}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a checkpoint and reconstructs the model. Version or
// geometry problems in the file are data-format failures; rebuilding a
// model from an internally inconsistent spec is a configuration failure.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", field.ErrDataFormat, path, err)
	}
	if cp.SchemaVersion != checkpointSchemaVersion || cp.CodecVersion != checkpointCodecVersion {
		return nil, fmt.Errorf("%w: %s: checkpoint version %d/%d, want %d/%d",
			field.ErrDataFormat, path, cp.SchemaVersion, cp.CodecVersion,
			checkpointSchemaVersion, checkpointCodecVersion)
	}

	cfg := Config{
		GridSize:  cp.Spec.GridSize,
		SeqLen:    cp.Spec.SeqLen,
		DModel:    cp.Spec.DModel,
		NumHeads:  cp.Spec.NumHeads,
		NumLayers: cp.Spec.NumLayers,
		FFWidth:   cp.Spec.FFWidth,
		Dropout:   cp.Dropout,
		Seed:      cp.Spec.Seed,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(cp.Blocks) != cfg.NumLayers {
		return nil, fmt.Errorf("%w: %s: %d blocks stored, spec says %d",
			field.ErrDataFormat, path, len(cp.Blocks), cfg.NumLayers)
	}
	if len(cp.EmbedW) != inChannels*cfg.DModel || len(cp.OutW) != cfg.DModel*outChannels {
		return nil, fmt.Errorf("%w: %s: boundary affine sizes do not match d_model %d",
			field.ErrDataFormat, path, cfg.DModel)
	}

	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	m.embedW = cp.EmbedW
	m.embedB = cp.EmbedB
	m.outW = cp.OutW
	m.outB = cp.OutB
	for i, b := range cp.Blocks {
		net, err := nn.LoadModelFromString(b.Attn, blockModelID(i))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: attention block %d: %v", field.ErrDataFormat, path, i, err)
		}
		m.blocks[i] = block{attn: net, ffn: b.FFN}
	}
	return m, nil
}
