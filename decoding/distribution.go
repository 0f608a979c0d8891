package decoding

import (
	"math"

	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/types"
)

// Distribution is a probability distribution restricted to the tokens
// allowed at one automaton state. Tokens are in ascending order and
// Probs[i] is the mass of Tokens[i]; tokens outside the set have no mass.
type Distribution struct {
	Tokens []int
	Probs  []float64
}

// Len returns the number of candidate tokens.
func (d *Distribution) Len() int { return len(d.Tokens) }

// Restrict normalizes scores over the allowed edges only (a softmax shifted
// by the largest allowed score). A -Inf score gives its token zero mass;
// NaN or +Inf on an allowed token, an allowed token outside the vector, or
// no allowed token with finite score is a SCORER_FAILURE.
func Restrict(scores []float64, allowed []automaton.Edge) (*Distribution, error) {
	if len(allowed) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "no allowed tokens to restrict to")
	}

	maxScore := math.Inf(-1)
	for _, e := range allowed {
		if e.Token < 0 || e.Token >= len(scores) {
			return nil, types.Errorf(types.ErrScorerFailure,
				"allowed token %d outside score vector of length %d", e.Token, len(scores))
		}
		s := scores[e.Token]
		if math.IsNaN(s) || math.IsInf(s, 1) {
			return nil, types.Errorf(types.ErrScorerFailure, "non-finite score %v for allowed token %d", s, e.Token)
		}
		if s > maxScore {
			maxScore = s
		}
	}
	if math.IsInf(maxScore, -1) {
		return nil, types.NewError(types.ErrScorerFailure, "no allowed token has a finite score")
	}

	d := &Distribution{
		Tokens: make([]int, len(allowed)),
		Probs:  make([]float64, len(allowed)),
	}
	var sum float64
	for i, e := range allowed {
		w := math.Exp(scores[e.Token] - maxScore)
		d.Tokens[i] = e.Token
		d.Probs[i] = w
		sum += w
	}
	for i := range d.Probs {
		d.Probs[i] /= sum
	}
	return d, nil
}
