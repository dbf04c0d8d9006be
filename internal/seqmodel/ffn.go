package seqmodel

import (
	"math"
	"math/rand"
)

// feedForward is the per-token two-layer projection applied after each
// attention block, with a residual connection around it. Weights are
// token-count independent, so the same feedforward serves both the
// whole-sequence and single-step call paths.
type feedForward struct {
	W1 []float32 `json:"w1"` // [dModel][width]
	B1 []float32 `json:"b1"`
	W2 []float32 `json:"w2"` // [width][dModel]
	B2 []float32 `json:"b2"`
}

type feedForwardGrads struct {
	W1, B1, W2, B2 []float32
}

type feedForwardCache struct {
	in       []float32
	z        []float32 // pre-activation, tokens*width
	act      []float32 // post-activation, post-dropout
	dropMask []float32
}

func newFeedForward(rng *rand.Rand, dModel, width int) feedForward {
	return feedForward{
		W1: randWeights(rng, dModel*width, dModel),
		B1: make([]float32, width),
		W2: randWeights(rng, width*dModel, width),
		B2: make([]float32, dModel),
	}
}

func (f feedForward) clone() feedForward {
	return feedForward{
		W1: append([]float32(nil), f.W1...),
		B1: append([]float32(nil), f.B1...),
		W2: append([]float32(nil), f.W2...),
		B2: append([]float32(nil), f.B2...),
	}
}

func newFeedForwardGrads(dModel, width int) feedForwardGrads {
	return feedForwardGrads{
		W1: make([]float32, dModel*width),
		B1: make([]float32, width),
		W2: make([]float32, width*dModel),
		B2: make([]float32, dModel),
	}
}

// forward applies the feedforward token-wise over a tokens*dModel buffer.
// When rng is non-nil, inverted dropout with rate p is applied to the
// hidden activations and the mask is cached for backward.
func (f feedForward) forward(in []float32, dModel, width int, p float64, rng *rand.Rand) ([]float32, feedForwardCache) {
	tokens := len(in) / dModel
	cache := feedForwardCache{
		in:  in,
		z:   make([]float32, tokens*width),
		act: make([]float32, tokens*width),
	}
	if rng != nil && p > 0 {
		cache.dropMask = make([]float32, tokens*width)
		keep := float32(1 / (1 - p))
		for i := range cache.dropMask {
			if rng.Float64() >= p {
				cache.dropMask[i] = keep
			}
		}
	}

	out := make([]float32, len(in))
	for t := 0; t < tokens; t++ {
		inOff := t * dModel
		hidOff := t * width
		for j := 0; j < width; j++ {
			sum := f.B1[j]
			for d := 0; d < dModel; d++ {
				sum += in[inOff+d] * f.W1[d*width+j]
			}
			cache.z[hidOff+j] = sum
			a := silu(sum)
			if cache.dropMask != nil {
				a *= cache.dropMask[hidOff+j]
			}
			cache.act[hidOff+j] = a
		}
		for d := 0; d < dModel; d++ {
			sum := f.B2[d]
			for j := 0; j < width; j++ {
				sum += cache.act[hidOff+j] * f.W2[j*dModel+d]
			}
			out[inOff+d] = in[inOff+d] + sum
		}
	}
	return out, cache
}

// backward accumulates weight gradients into g and returns the gradient
// with respect to the block input, including the residual path.
func (f feedForward) backward(dOut []float32, cache feedForwardCache, dModel, width int, g feedForwardGrads) []float32 {
	tokens := len(dOut) / dModel
	dIn := make([]float32, len(dOut))
	copy(dIn, dOut) // residual

	for t := 0; t < tokens; t++ {
		inOff := t * dModel
		hidOff := t * width
		for j := 0; j < width; j++ {
			var dA float32
			for d := 0; d < dModel; d++ {
				dA += dOut[inOff+d] * f.W2[j*dModel+d]
				g.W2[j*dModel+d] += cache.act[hidOff+j] * dOut[inOff+d]
			}
			if cache.dropMask != nil {
				dA *= cache.dropMask[hidOff+j]
			}
			dZ := dA * siluPrime(cache.z[hidOff+j])
			g.B1[j] += dZ
			for d := 0; d < dModel; d++ {
				g.W1[d*width+j] += cache.in[inOff+d] * dZ
				dIn[inOff+d] += f.W1[d*width+j] * dZ
			}
		}
		for d := 0; d < dModel; d++ {
			g.B2[d] += dOut[inOff+d]
		}
	}
	return dIn
}

func (f feedForward) applyGrads(g feedForwardGrads, lr float32) {
	sgd(f.W1, g.W1, lr)
	sgd(f.B1, g.B1, lr)
	sgd(f.W2, g.W2, lr)
	sgd(f.B2, g.B2, lr)
}

func silu(x float32) float32 {
	return x * sigmoid(x)
}

func siluPrime(x float32) float32 {
	s := sigmoid(x)
	return s * (1 + x*(1-s))
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func sgd(w, g []float32, lr float32) {
	for i := range w {
		w[i] -= lr * g[i]
	}
}

func randWeights(rng *rand.Rand, n, fanIn int) []float32 {
	scale := 1 / math.Sqrt(float64(fanIn))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.NormFloat64() * scale)
	}
	return out
}
