package seqmodel

import (
	"github.com/openfluke/loom/nn"

	"waveprop/internal/field"
)

// StepModel evaluates the trained parameters on a single time slice.
// Attention and norm weights are token-count independent, so the adapter
// rebuilds the block stack at sequence length GridSize with copies of the
// trained weights and its own positional slice. It shares nothing mutable
// with the training model; rollout runs on frozen parameters.
type StepModel struct {
	grid   int
	dModel int
	ffW    int
	pos    [][]float32

	embedW []float32
	embedB []float32
	outW   []float32
	outB   []float32

	blocks []block
}

// StepView freezes the current weights into a single-step evaluator.
func (m *Model) StepView() *StepModel {
	cfg := m.cfg
	sm := &StepModel{
		grid:   cfg.GridSize,
		dModel: cfg.DModel,
		ffW:    cfg.FFWidth,
		pos:    m.pos[:cfg.GridSize],
		embedW: append([]float32(nil), m.embedW...),
		embedB: append([]float32(nil), m.embedB...),
		outW:   append([]float32(nil), m.outW...),
		outB:   append([]float32(nil), m.outB...),
		blocks: make([]block, len(m.blocks)),
	}
	for i, blk := range m.blocks {
		sm.blocks[i] = block{
			attn: resizedAttentionNet(blk.attn, cfg.DModel, cfg.NumHeads, cfg.GridSize),
			ffn:  blk.ffn.clone(),
		}
	}
	return sm
}

// resizedAttentionNet rebuilds one attention-plus-norm network at a new
// sequence length, deep-copying the trained weight slices so the step
// path never aliases training state.
func resizedAttentionNet(src *nn.Network, dModel, heads, tokens int) *nn.Network {
	trainedAttn := src.Layers[0]
	trainedNorm := src.Layers[1]

	attn := nn.LayerConfig{
		Type:         nn.LayerMultiHeadAttention,
		DModel:       dModel,
		NumHeads:     heads,
		NumKVHeads:   heads,
		HeadDim:      dModel / heads,
		SeqLength:    tokens,
		QWeights:     append([]float32(nil), trainedAttn.QWeights...),
		KWeights:     append([]float32(nil), trainedAttn.KWeights...),
		VWeights:     append([]float32(nil), trainedAttn.VWeights...),
		QBias:        append([]float32(nil), trainedAttn.QBias...),
		KBias:        append([]float32(nil), trainedAttn.KBias...),
		VBias:        append([]float32(nil), trainedAttn.VBias...),
		OutputWeight: append([]float32(nil), trainedAttn.OutputWeight...),
		OutputBias:   append([]float32(nil), trainedAttn.OutputBias...),
	}
	norm := nn.LayerConfig{
		Type:     nn.LayerNorm,
		NormSize: dModel,
		Gamma:    append([]float32(nil), trainedNorm.Gamma...),
		Beta:     append([]float32(nil), trainedNorm.Beta...),
		Epsilon:  trainedNorm.Epsilon,
	}

	net := nn.NewNetwork(tokens*dModel, 1, 1, 2)
	net.SetLayer(0, 0, 0, attn)
	net.SetLayer(0, 0, 1, norm)
	return net
}

// Grid returns the spatial grid size the step model accepts.
func (sm *StepModel) Grid() int {
	return sm.grid
}

// Step advances one time slice: (Re psi, Im psi, V) on the grid in, the
// predicted (Re psi, Im psi) out. All three inputs must have exactly
// Grid() points.
func (sm *StepModel) Step(re, im, v []float64) ([]float64, []float64, error) {
	if len(re) != sm.grid || len(im) != sm.grid || len(v) != sm.grid {
		return nil, nil, &field.ShapeError{
			Op:       "seqmodel.Step",
			Expected: []int{sm.grid, sm.grid, sm.grid},
			Actual:   []int{len(re), len(im), len(v)},
		}
	}

	x := make([]float32, sm.grid*inChannels)
	for g := 0; g < sm.grid; g++ {
		x[g*inChannels] = float32(re[g])
		x[g*inChannels+1] = float32(im[g])
		x[g*inChannels+2] = float32(v[g])
	}

	d := sm.dModel
	h := make([]float32, sm.grid*d)
	for g := 0; g < sm.grid; g++ {
		pos := sm.pos[g]
		for k := 0; k < d; k++ {
			sum := sm.embedB[k]
			for c := 0; c < inChannels; c++ {
				sum += x[g*inChannels+c] * sm.embedW[c*d+k]
			}
			h[g*d+k] = sum + pos[k]
		}
	}

	cur := h
	for _, blk := range sm.blocks {
		attnOut, _ := blk.attn.ForwardCPU(cur)
		cur, _ = blk.ffn.forward(attnOut, d, sm.ffW, 0, nil)
	}
	pred := projectOut(cur, sm.outW, sm.outB, sm.grid, d)

	outRe := make([]float64, sm.grid)
	outIm := make([]float64, sm.grid)
	for g := 0; g < sm.grid; g++ {
		outRe[g] = pred[g*outChannels]
		outIm[g] = pred[g*outChannels+1]
	}
	return outRe, outIm, nil
}
