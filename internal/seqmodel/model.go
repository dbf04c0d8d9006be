// Package seqmodel implements the sequence model that maps per-timestep
// (Re psi, Im psi, V) triples to predicted next-step (Re psi, Im psi) pairs.
// Every (time, grid-point) position is one token: a learned affine embeds
// the 3-channel token into dModel dimensions, a fixed sinusoidal positional
// encoding is added, the sequence runs through a stack of self-attention
// blocks with per-token feedforwards, and a learned affine projects each
// token back to 2 channels.
//
// The attention blocks come from github.com/openfluke/loom/nn; the thin
// boundary affines and feedforwards train jointly with them through the
// input gradient loom's CPU backward pass returns.
//
// The input rank contract is fixed at construction: every whole-sequence
// call carries exactly SeqLen time steps of GridSize points. Single-step
// rollout goes through the StepView adapter, never through this call path.
package seqmodel

import (
	"fmt"
	"math/rand"

	"github.com/openfluke/loom/nn"

	"waveprop/internal/field"
	"waveprop/internal/model"
)

const (
	inChannels  = 3
	outChannels = 2

	normEpsilon = 1e-5
)

// Config fixes the model geometry and hyperparameters.
type Config struct {
	GridSize  int
	SeqLen    int
	DModel    int
	NumHeads  int
	NumLayers int
	FFWidth   int
	Dropout   float64
	Seed      int64
}

func (c Config) validate() error {
	if c.GridSize <= 0 || c.SeqLen <= 0 {
		return fmt.Errorf("%w: grid=%d seq=%d", field.ErrConfiguration, c.GridSize, c.SeqLen)
	}
	if c.DModel <= 0 || c.DModel%2 != 0 {
		return fmt.Errorf("%w: d_model %d must be positive and even", field.ErrConfiguration, c.DModel)
	}
	if c.NumHeads <= 0 || c.DModel%c.NumHeads != 0 {
		return fmt.Errorf("%w: d_model %d not divisible by %d heads", field.ErrConfiguration, c.DModel, c.NumHeads)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("%w: layer count %d", field.ErrConfiguration, c.NumLayers)
	}
	if c.FFWidth <= 0 {
		return fmt.Errorf("%w: feedforward width %d", field.ErrConfiguration, c.FFWidth)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: dropout %f", field.ErrConfiguration, c.Dropout)
	}
	return nil
}

// Spec converts the config to its persisted form.
func (c Config) Spec() model.ModelSpec {
	return model.ModelSpec{
		GridSize:  c.GridSize,
		SeqLen:    c.SeqLen,
		DModel:    c.DModel,
		NumHeads:  c.NumHeads,
		NumLayers: c.NumLayers,
		FFWidth:   c.FFWidth,
		Seed:      c.Seed,
	}
}

type block struct {
	attn *nn.Network
	ffn  feedForward
}

// Model owns the learned parameters. The trainer is its only mutator;
// rollout reads it through StepView.
type Model struct {
	cfg    Config
	tokens int
	pos    [][]float32

	embedW []float32 // [inChannels][dModel]
	embedB []float32
	outW   []float32 // [dModel][outChannels]
	outB   []float32

	blocks []block
	rng    *rand.Rand
}

// New builds a model with seeded random initialization.
func New(cfg Config) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	tokens := cfg.SeqLen * cfg.GridSize
	m := &Model{
		cfg:    cfg,
		tokens: tokens,
		pos:    PositionalTable(tokens, cfg.DModel),
		embedW: randWeights(rng, inChannels*cfg.DModel, inChannels),
		embedB: make([]float32, cfg.DModel),
		outW:   randWeights(rng, cfg.DModel*outChannels, cfg.DModel),
		outB:   make([]float32, outChannels),
		rng:    rng,
	}
	m.blocks = make([]block, cfg.NumLayers)
	for i := range m.blocks {
		m.blocks[i] = block{
			attn: newAttentionNet(rng, cfg.DModel, cfg.NumHeads, tokens),
			ffn:  newFeedForward(rng, cfg.DModel, cfg.FFWidth),
		}
	}
	return m, nil
}

// newAttentionNet assembles one self-attention-plus-norm block. All weight
// shapes depend only on dModel, never on the token count, which is what
// lets StepView rebuild the stack at a different sequence length.
func newAttentionNet(rng *rand.Rand, dModel, heads, tokens int) *nn.Network {
	attn := nn.LayerConfig{
		Type:         nn.LayerMultiHeadAttention,
		DModel:       dModel,
		NumHeads:     heads,
		NumKVHeads:   heads,
		HeadDim:      dModel / heads,
		SeqLength:    tokens,
		QWeights:     randWeights(rng, dModel*dModel, dModel),
		KWeights:     randWeights(rng, dModel*dModel, dModel),
		VWeights:     randWeights(rng, dModel*dModel, dModel),
		QBias:        make([]float32, dModel),
		KBias:        make([]float32, dModel),
		VBias:        make([]float32, dModel),
		OutputWeight: randWeights(rng, dModel*dModel, dModel),
		OutputBias:   make([]float32, dModel),
	}
	norm := nn.LayerConfig{
		Type:     nn.LayerNorm,
		NormSize: dModel,
		Gamma:    onesSlice(dModel),
		Beta:     make([]float32, dModel),
		Epsilon:  normEpsilon,
	}

	net := nn.NewNetwork(tokens*dModel, 1, 1, 2)
	net.SetLayer(0, 0, 0, attn)
	net.SetLayer(0, 0, 1, norm)
	return net
}

// Config returns the construction parameters.
func (m *Model) Config() Config {
	return m.cfg
}

// Tokens returns the fixed whole-sequence token count SeqLen*GridSize.
func (m *Model) Tokens() int {
	return m.tokens
}

// Forward runs one trajectory through the model in inference mode. The
// three aligned channel planes must be exactly (SeqLen, GridSize);
// anything else is a ShapeMismatch at this boundary.
func (m *Model) Forward(re, im, v [][]float64) ([][]float64, [][]float64, error) {
	x, err := m.checkedInput("seqmodel.Forward", re, im, v)
	if err != nil {
		return nil, nil, err
	}

	pred := m.infer(x)
	chans, err := field.Unflatten(pred, m.cfg.SeqLen, m.cfg.GridSize, outChannels)
	if err != nil {
		return nil, nil, err
	}
	return chans[0], chans[1], nil
}

// ForwardBatch runs a batch of trajectories, returning per-trajectory
// (real, imag) planes of shape (batch, SeqLen, GridSize).
func (m *Model) ForwardBatch(re, im, v [][][]float64) ([][][]float64, [][][]float64, error) {
	if len(im) != len(re) || len(v) != len(re) {
		return nil, nil, &field.ShapeError{
			Op:       "seqmodel.ForwardBatch",
			Expected: []int{len(re), len(re), len(re)},
			Actual:   []int{len(re), len(im), len(v)},
		}
	}
	outRe := make([][][]float64, len(re))
	outIm := make([][][]float64, len(re))
	for i := range re {
		r, c, err := m.Forward(re[i], im[i], v[i])
		if err != nil {
			return nil, nil, err
		}
		outRe[i] = r
		outIm[i] = c
	}
	return outRe, outIm, nil
}

// Sample is one flattened training pair in the token layout produced by
// field.Flatten: SeqLen*GridSize tokens of 3 input and 2 target channels.
type Sample struct {
	Input  []float64
	Target []float64
}

// TrainStep performs one gradient-descent update over the batch and
// returns the batch mean per-element squared error.
func (m *Model) TrainStep(batch []Sample, lr float64) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	for i, s := range batch {
		if len(s.Input) != m.tokens*inChannels {
			return 0, &field.ShapeError{Op: fmt.Sprintf("seqmodel.TrainStep input %d", i), Expected: []int{m.tokens * inChannels}, Actual: []int{len(s.Input)}}
		}
		if len(s.Target) != m.tokens*outChannels {
			return 0, &field.ShapeError{Op: fmt.Sprintf("seqmodel.TrainStep target %d", i), Expected: []int{m.tokens * outChannels}, Actual: []int{len(s.Target)}}
		}
	}

	grads := m.newGrads()

	var total float64
	for _, s := range batch {
		total += m.accumulate(s, grads)
	}

	lr32 := float32(lr)
	for i, blk := range m.blocks {
		applyAttnGrads(blk.attn, grads.attn[i], lr32)
		blk.ffn.applyGrads(grads.ffn[i], lr32)
	}
	sgd(m.embedW, grads.embedW, lr32)
	sgd(m.embedB, grads.embedB, lr32)
	sgd(m.outW, grads.outW, lr32)
	sgd(m.outB, grads.outB, lr32)

	return total / float64(len(batch)), nil
}

type modelGrads struct {
	embedW, embedB []float32
	outW, outB     []float32
	ffn            []feedForwardGrads
	attn           [][][]float32 // per block, per layer, flat kernel gradients
}

func (m *Model) newGrads() *modelGrads {
	g := &modelGrads{
		embedW: make([]float32, len(m.embedW)),
		embedB: make([]float32, len(m.embedB)),
		outW:   make([]float32, len(m.outW)),
		outB:   make([]float32, len(m.outB)),
		ffn:    make([]feedForwardGrads, len(m.blocks)),
		attn:   make([][][]float32, len(m.blocks)),
	}
	for i := range g.ffn {
		g.ffn[i] = newFeedForwardGrads(m.cfg.DModel, m.cfg.FFWidth)
		g.attn[i] = make([][]float32, len(m.blocks[i].attn.Layers))
	}
	return g
}

// harvestAttnGrads folds the attention net's per-layer kernel gradients
// into acc. BackwardCPU overwrites its gradient buffers on every call, so
// this must run once per sample, before the next backward pass on the
// same net.
func harvestAttnGrads(net *nn.Network, acc [][]float32) {
	for li := range net.Layers {
		g := net.GetKernelGradients(li)
		if len(g) == 0 {
			continue
		}
		if acc[li] == nil {
			acc[li] = make([]float32, len(g))
		}
		for j := range acc[li] {
			acc[li][j] += g[j]
		}
	}
}

// applyAttnGrads steps each layer's weight slices against the batch's
// accumulated flat gradients. ApplyGradients only updates Kernel and Bias,
// which attention and norm layers do not carry, so their parameters are
// updated here directly.
func applyAttnGrads(net *nn.Network, acc [][]float32, lr float32) {
	for li := range net.Layers {
		flat := acc[li]
		off := 0
		for _, p := range layerParams(&net.Layers[li]) {
			if off+len(p) > len(flat) {
				break
			}
			sgd(p, flat[off:off+len(p)], lr)
			off += len(p)
		}
	}
}

// layerParams lists a layer's trainable slices in the order the CPU
// backward pass packs their gradients.
func layerParams(cfg *nn.LayerConfig) [][]float32 {
	switch cfg.Type {
	case nn.LayerMultiHeadAttention:
		return [][]float32{
			cfg.QWeights, cfg.KWeights, cfg.VWeights, cfg.OutputWeight,
			cfg.QBias, cfg.KBias, cfg.VBias, cfg.OutputBias,
		}
	case nn.LayerNorm:
		return [][]float32{cfg.Gamma, cfg.Beta}
	}
	return nil
}

// accumulate runs forward and backward for one sample, adding every
// parameter gradient into grads, and returns the sample's mean squared
// error.
func (m *Model) accumulate(s Sample, grads *modelGrads) float64 {
	x := toFloat32(s.Input)
	d := m.cfg.DModel

	h := m.embed(x)
	cur := h
	ffnCaches := make([]feedForwardCache, len(m.blocks))
	for i, blk := range m.blocks {
		attnOut, _ := blk.attn.ForwardCPU(cur)
		cur, ffnCaches[i] = blk.ffn.forward(attnOut, d, m.cfg.FFWidth, m.cfg.Dropout, m.rng)
	}

	// Output projection and loss gradient in one pass.
	pred := make([]float32, m.tokens*outChannels)
	dPred := make([]float32, len(pred))
	var loss float64
	invN := 1 / float64(len(pred))
	for t := 0; t < m.tokens; t++ {
		for o := 0; o < outChannels; o++ {
			sum := m.outB[o]
			for k := 0; k < d; k++ {
				sum += cur[t*d+k] * m.outW[k*outChannels+o]
			}
			pred[t*outChannels+o] = sum
			diff := float64(sum) - s.Target[t*outChannels+o]
			loss += diff * diff * invN
			dPred[t*outChannels+o] = float32(2 * diff * invN)
		}
	}

	dCur := make([]float32, m.tokens*d)
	for t := 0; t < m.tokens; t++ {
		for o := 0; o < outChannels; o++ {
			dp := dPred[t*outChannels+o]
			grads.outB[o] += dp
			for k := 0; k < d; k++ {
				grads.outW[k*outChannels+o] += cur[t*d+k] * dp
				dCur[t*d+k] += m.outW[k*outChannels+o] * dp
			}
		}
	}

	for i := len(m.blocks) - 1; i >= 0; i-- {
		dAttnOut := m.blocks[i].ffn.backward(dCur, ffnCaches[i], d, m.cfg.FFWidth, grads.ffn[i])
		dCur, _ = m.blocks[i].attn.BackwardCPU(dAttnOut)
		harvestAttnGrads(m.blocks[i].attn, grads.attn[i])
	}

	// dCur is now the gradient at the embedded tokens; the positional
	// encoding is fixed, so it passes straight through to the affine.
	for t := 0; t < m.tokens; t++ {
		for k := 0; k < d; k++ {
			dh := dCur[t*d+k]
			grads.embedB[k] += dh
			for c := 0; c < inChannels; c++ {
				grads.embedW[c*d+k] += x[t*inChannels+c] * dh
			}
		}
	}

	return loss
}

// infer is the inference-mode token path shared by Forward and tests.
func (m *Model) infer(x []float32) []float64 {
	d := m.cfg.DModel
	cur := m.embed(x)
	for _, blk := range m.blocks {
		attnOut, _ := blk.attn.ForwardCPU(cur)
		cur, _ = blk.ffn.forward(attnOut, d, m.cfg.FFWidth, 0, nil)
	}
	return projectOut(cur, m.outW, m.outB, m.tokens, d)
}

// embed applies the learned affine and the positional slice token-wise.
func (m *Model) embed(x []float32) []float32 {
	d := m.cfg.DModel
	h := make([]float32, m.tokens*d)
	for t := 0; t < m.tokens; t++ {
		pos := m.pos[t]
		for k := 0; k < d; k++ {
			sum := m.embedB[k]
			for c := 0; c < inChannels; c++ {
				sum += x[t*inChannels+c] * m.embedW[c*d+k]
			}
			h[t*d+k] = sum + pos[k]
		}
	}
	return h
}

func (m *Model) checkedInput(op string, re, im, v [][]float64) ([]float32, error) {
	if err := field.SameDims(op, re, im, v); err != nil {
		return nil, err
	}
	if len(re) != m.cfg.SeqLen {
		return nil, &field.ShapeError{Op: op, Expected: []int{m.cfg.SeqLen}, Actual: []int{len(re)}}
	}
	for t := range re {
		if len(re[t]) != m.cfg.GridSize {
			return nil, &field.ShapeError{Op: op, Expected: []int{m.cfg.SeqLen, m.cfg.GridSize}, Actual: []int{m.cfg.SeqLen, len(re[t])}}
		}
	}
	tokens, err := field.Flatten([][][]float64{re, im, v})
	if err != nil {
		return nil, err
	}
	return toFloat32(tokens), nil
}

func projectOut(cur, outW, outB []float32, tokens, d int) []float64 {
	pred := make([]float64, tokens*outChannels)
	for t := 0; t < tokens; t++ {
		for o := 0; o < outChannels; o++ {
			sum := outB[o]
			for k := 0; k < d; k++ {
				sum += cur[t*d+k] * outW[k*outChannels+o]
			}
			pred[t*outChannels+o] = float64(sum)
		}
	}
	return pred
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func onesSlice(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
