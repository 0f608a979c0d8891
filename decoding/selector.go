package decoding

import (
	"math/rand/v2"
	"sync"

	"github.com/BaSui01/tokenfsm/types"
)

// Selector picks one position of a restricted distribution.
type Selector interface {
	Select(d *Distribution) (int, error)
	Name() string
}

// Argmax deterministically picks the most probable token, breaking ties by
// the smallest token id.
type Argmax struct{}

func (Argmax) Select(d *Distribution) (int, error) {
	if d.Len() == 0 {
		return 0, types.NewError(types.ErrInvalidRequest, "empty distribution")
	}
	best := 0
	for i := 1; i < d.Len(); i++ {
		// Tokens are ascending, so strict > keeps the smallest id on ties.
		if d.Probs[i] > d.Probs[best] {
			best = i
		}
	}
	return best, nil
}

func (Argmax) Name() string { return "argmax" }

// WeightedSampler draws a token with probability proportional to its
// restricted mass. It is safe for use by concurrent sessions; draws are
// serialized on the shared random source.
type WeightedSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedSampler creates a sampler drawing from src.
func NewWeightedSampler(src rand.Source) *WeightedSampler {
	return &WeightedSampler{rng: rand.New(src)}
}

// NewSeededSampler creates a sampler over a PCG source seeded with seed.
func NewSeededSampler(seed uint64) *WeightedSampler {
	return NewWeightedSampler(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (w *WeightedSampler) Select(d *Distribution) (int, error) {
	if d.Len() == 0 {
		return 0, types.NewError(types.ErrInvalidRequest, "empty distribution")
	}
	w.mu.Lock()
	u := w.rng.Float64()
	w.mu.Unlock()

	var (
		cum  float64
		last = -1
	)
	for i, p := range d.Probs {
		if p <= 0 {
			continue
		}
		last = i
		cum += p
		if u < cum {
			return i, nil
		}
	}
	if last < 0 {
		return 0, types.NewError(types.ErrScorerFailure, "distribution has no mass")
	}
	// Rounding left u just above the cumulative total.
	return last, nil
}

func (w *WeightedSampler) Name() string { return "weighted-sample" }
