package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"waveprop/internal/field"
)

// PhaseRotationConfig drives the synthetic closed-form generator: a Gaussian
// amplitude envelope whose phase rotates uniformly in time under a constant
// potential. Targets are the input fields advanced by one step.
type PhaseRotationConfig struct {
	Trajectories int
	SeqLen       int
	GridSize     int
	Seed         int64
}

// GeneratePhaseRotation builds a deterministic synthetic trajectory set.
func GeneratePhaseRotation(cfg PhaseRotationConfig) (Set, error) {
	if cfg.Trajectories < 0 || cfg.SeqLen <= 0 || cfg.GridSize <= 0 {
		return Set{}, fmt.Errorf("%w: phase rotation dims (%d, %d, %d)", field.ErrDataFormat, cfg.Trajectories, cfg.SeqLen, cfg.GridSize)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	set := Set{
		Trajectories: cfg.Trajectories,
		SeqLen:       cfg.SeqLen,
		GridSize:     cfg.GridSize,
		X:            make([]float64, cfg.Trajectories*cfg.SeqLen*3*cfg.GridSize),
		Y:            make([]float64, cfg.Trajectories*cfg.SeqLen*2*cfg.GridSize),
	}

	g := cfg.GridSize
	widthX := 3 * g
	widthY := 2 * g
	for traj := 0; traj < cfg.Trajectories; traj++ {
		omega := 0.2 + rng.Float64()*0.6
		phase0 := rng.Float64() * 2 * math.Pi
		center := rng.Float64() * float64(g-1)
		sigma := 1.0 + rng.Float64()*float64(g)/4
		potential := rng.Float64() * 0.5

		amp := make([]float64, g)
		for x := 0; x < g; x++ {
			d := (float64(x) - center) / sigma
			amp[x] = math.Exp(-0.5 * d * d)
		}

		for t := 0; t < cfg.SeqLen; t++ {
			phiNow := phase0 - omega*float64(t)
			phiNext := phase0 - omega*float64(t+1)
			baseX := (traj*cfg.SeqLen + t) * widthX
			baseY := (traj*cfg.SeqLen + t) * widthY
			for x := 0; x < g; x++ {
				set.X[baseX+x] = amp[x] * math.Cos(phiNow)
				set.X[baseX+g+x] = amp[x] * math.Sin(phiNow)
				set.X[baseX+2*g+x] = potential
				set.Y[baseY+x] = amp[x] * math.Cos(phiNext)
				set.Y[baseY+g+x] = amp[x] * math.Sin(phiNext)
			}
		}
	}
	return set, nil
}
