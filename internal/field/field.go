// Package field holds the spatial-field types shared by the dataset,
// model, trainer and propagator, plus the reshaping between (time, grid)
// axes and the flattened token axis the attention stack consumes.
package field

// Field is one time step of the wavefunction over a spatial grid: the real
// and imaginary parts, each of grid length.
type Field struct {
	Re []float64
	Im []float64
}

// NewField validates that both parts share one grid length.
func NewField(re, im []float64) (Field, error) {
	if len(re) != len(im) {
		return Field{}, shapeErr("field.NewField", []int{len(re)}, []int{len(im)})
	}
	return Field{Re: re, Im: im}, nil
}

// Grid returns the spatial resolution of the field.
func (f Field) Grid() int {
	return len(f.Re)
}

// Clone deep-copies the field.
func (f Field) Clone() Field {
	return Field{
		Re: append([]float64(nil), f.Re...),
		Im: append([]float64(nil), f.Im...),
	}
}

// Flatten stacks the per-channel (time, grid) planes into one token
// sequence. chans[c][t][g] becomes tokens[(t*grid+g)*C+c]: one token per
// (time, grid) position, channels contiguous within the token. All channels
// must agree on both axes.
func Flatten(chans [][][]float64) ([]float64, error) {
	if len(chans) == 0 {
		return nil, shapeErr("field.Flatten", []int{1}, []int{0})
	}
	steps := len(chans[0])
	grid := 0
	if steps > 0 {
		grid = len(chans[0][0])
	}
	for c := range chans {
		if len(chans[c]) != steps {
			return nil, shapeErr("field.Flatten", []int{steps}, []int{len(chans[c])})
		}
		for t := range chans[c] {
			if len(chans[c][t]) != grid {
				return nil, shapeErr("field.Flatten", []int{steps, grid}, []int{steps, len(chans[c][t])})
			}
		}
	}

	channels := len(chans)
	tokens := make([]float64, steps*grid*channels)
	for t := 0; t < steps; t++ {
		for g := 0; g < grid; g++ {
			base := (t*grid + g) * channels
			for c := 0; c < channels; c++ {
				tokens[base+c] = chans[c][t][g]
			}
		}
	}
	return tokens, nil
}

// Unflatten is the exact inverse of Flatten for the given dimensions.
func Unflatten(tokens []float64, steps, grid, channels int) ([][][]float64, error) {
	if steps < 0 || grid < 0 || channels <= 0 {
		return nil, shapeErr("field.Unflatten", []int{0, 0, 1}, []int{steps, grid, channels})
	}
	if len(tokens) != steps*grid*channels {
		return nil, shapeErr("field.Unflatten", []int{steps * grid * channels}, []int{len(tokens)})
	}

	chans := make([][][]float64, channels)
	for c := range chans {
		chans[c] = make([][]float64, steps)
		for t := range chans[c] {
			chans[c][t] = make([]float64, grid)
		}
	}
	for t := 0; t < steps; t++ {
		for g := 0; g < grid; g++ {
			base := (t*grid + g) * channels
			for c := 0; c < channels; c++ {
				chans[c][t][g] = tokens[base+c]
			}
		}
	}
	return chans, nil
}

// SameDims verifies that the three aligned channel planes share identical
// (time, grid) dimensions, failing at the boundary rather than deep inside
// the attention stack.
func SameDims(op string, re, im, v [][]float64) error {
	steps := len(re)
	if len(im) != steps || len(v) != steps {
		return shapeErr(op, []int{steps, steps, steps}, []int{steps, len(im), len(v)})
	}
	for t := 0; t < steps; t++ {
		grid := len(re[t])
		if len(im[t]) != grid || len(v[t]) != grid {
			return shapeErr(op, []int{grid, grid, grid}, []int{grid, len(im[t]), len(v[t])})
		}
	}
	return nil
}
