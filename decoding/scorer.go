package decoding

import "context"

// Scorer produces one score per vocabulary id for the next token given the
// full token context. Scores are unnormalized (logit-like); higher is better.
//
// Implementations must return a vector of exactly VocabSize() entries on
// every call, must not retain or modify the context slice, and must not keep
// hidden state between calls beyond what the context carries.
type Scorer interface {
	Score(ctx context.Context, tokens []int) ([]float64, error)
	VocabSize() int
}

type scorerFunc struct {
	vocab int
	fn    func(ctx context.Context, tokens []int) ([]float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
func ScorerFunc(vocab int, fn func(ctx context.Context, tokens []int) ([]float64, error)) Scorer {
	return &scorerFunc{vocab: vocab, fn: fn}
}

func (s *scorerFunc) Score(ctx context.Context, tokens []int) ([]float64, error) {
	return s.fn(ctx, tokens)
}

func (s *scorerFunc) VocabSize() int { return s.vocab }
