package scorer

import (
	"context"
	"slices"

	"github.com/BaSui01/tokenfsm/types"
)

// BiasScorer returns the same prior for every context.
type BiasScorer struct {
	bias []float64
}

// NewBiasScorer creates a scorer whose vocabulary is len(bias).
func NewBiasScorer(bias []float64) *BiasScorer {
	return &BiasScorer{bias: slices.Clone(bias)}
}

// NewUniformScorer creates a BiasScorer of vocab zeros. Under argmax it
// always picks the smallest allowed token.
func NewUniformScorer(vocab int) *BiasScorer {
	return &BiasScorer{bias: make([]float64, vocab)}
}

func (b *BiasScorer) Score(ctx context.Context, _ []int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(b.bias), nil
}

func (b *BiasScorer) VocabSize() int { return len(b.bias) }

// OracleScorer steers decoding towards a target sequence: the token at
// position len(generated) of target gets a high score and everything else
// zero. Past the end of target all scores are zero.
type OracleScorer struct {
	vocab     int
	promptLen int
	target    []int
	high      float64
}

// NewOracleScorer creates an oracle for contexts that start with a prompt
// of promptLen tokens.
func NewOracleScorer(vocab, promptLen int, target []int) (*OracleScorer, error) {
	if vocab <= 0 {
		return nil, types.Errorf(types.ErrInvalidRequest, "vocabulary size must be positive, got %d", vocab)
	}
	for _, tok := range target {
		if tok < 0 || tok >= vocab {
			return nil, types.Errorf(types.ErrInvalidRequest, "target token %d outside vocabulary of %d", tok, vocab)
		}
	}
	return &OracleScorer{vocab: vocab, promptLen: max(promptLen, 0), target: slices.Clone(target), high: 10}, nil
}

func (o *OracleScorer) Score(ctx context.Context, tokens []int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, o.vocab)
	pos := len(tokens) - o.promptLen
	if pos >= 0 && pos < len(o.target) {
		scores[o.target[pos]] = o.high
	}
	return scores, nil
}

func (o *OracleScorer) VocabSize() int { return o.vocab }
