// Package propagate rolls a trained model forward in time autoregressively:
// the model's own prediction at step t becomes the field it sees at step
// t+1, while the potential for each step comes from an externally supplied
// schedule. Weights are frozen for the whole rollout.
package propagate

import (
	"waveprop/internal/field"
	"waveprop/internal/seqmodel"
)

// Rollout advances the initial field through one single-step model call
// per schedule entry and returns the N predicted fields, earliest first.
// The initial field itself is not included in the result. An empty
// schedule yields an empty result without touching the model.
//
// Grid sizes are checked before the first model call: the initial field
// and every schedule row must match the model's grid exactly.
func Rollout(step *seqmodel.StepModel, initial field.Field, schedule [][]float64) ([]field.Field, error) {
	grid := step.Grid()
	if initial.Grid() != grid {
		return nil, &field.ShapeError{
			Op:       "propagate.Rollout initial",
			Expected: []int{grid},
			Actual:   []int{initial.Grid()},
		}
	}
	for i, v := range schedule {
		if len(v) != grid {
			return nil, &field.ShapeError{
				Op:       "propagate.Rollout schedule",
				Expected: []int{len(schedule), grid},
				Actual:   []int{i, len(v)},
			}
		}
	}

	out := make([]field.Field, 0, len(schedule))
	cur := initial.Clone()
	for _, v := range schedule {
		re, im, err := step.Step(cur.Re, cur.Im, v)
		if err != nil {
			return nil, err
		}
		cur = field.Field{Re: re, Im: im}
		out = append(out, cur.Clone())
	}
	return out, nil
}
