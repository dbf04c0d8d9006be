package dataset

import (
	"fmt"
	"math/rand"

	"waveprop/internal/field"
)

// Loader yields fixed-size batches of trajectory indices, reshuffled each
// epoch pass without replacement. The final batch of a pass may be short.
type Loader struct {
	set       Set
	batchSize int
	rng       *rand.Rand
}

// NewLoader wraps a set with a seeded shuffling batcher. The set must
// hold at least one trajectory; an empty set would yield zero batches
// and leave every epoch mean undefined.
func NewLoader(set Set, batchSize int, seed int64) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", field.ErrConfiguration, batchSize)
	}
	if set.Trajectories <= 0 {
		return nil, fmt.Errorf("%w: set holds %d trajectories", field.ErrConfiguration, set.Trajectories)
	}
	return &Loader{
		set:       set,
		batchSize: batchSize,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Set returns the underlying trajectory set.
func (l *Loader) Set() Set {
	return l.set
}

// Epoch draws one full shuffled pass over the trajectories.
func (l *Loader) Epoch() [][]int {
	order := l.rng.Perm(l.set.Trajectories)
	batches := make([][]int, 0, (len(order)+l.batchSize-1)/l.batchSize)
	for start := 0; start < len(order); start += l.batchSize {
		end := start + l.batchSize
		if end > len(order) {
			end = len(order)
		}
		batches = append(batches, order[start:end])
	}
	return batches
}
