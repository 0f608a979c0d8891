package scorer

import (
	"context"

	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/llm/retry"
	"github.com/BaSui01/tokenfsm/types"
)

// RetryingScorer retries failed calls that are marked retryable. A vector of
// the wrong length is a contract violation and is never retried.
type RetryingScorer struct {
	base    decoding.Scorer
	retryer *retry.Retryer
}

// NewRetryingScorer wraps base with r.
func NewRetryingScorer(base decoding.Scorer, r *retry.Retryer) *RetryingScorer {
	return &RetryingScorer{base: base, retryer: r}
}

// WithRetry returns a retrying middleware.
func WithRetry(r *retry.Retryer) Middleware {
	return func(s decoding.Scorer) decoding.Scorer {
		return NewRetryingScorer(s, r)
	}
}

func (r *RetryingScorer) Score(ctx context.Context, tokens []int) ([]float64, error) {
	vocab := r.base.VocabSize()
	return retry.Do(ctx, r.retryer, func(ctx context.Context) ([]float64, error) {
		scores, err := r.base.Score(ctx, tokens)
		if err != nil {
			return nil, err
		}
		if len(scores) != vocab {
			return nil, types.Errorf(types.ErrScorerFailure, "score vector has %d entries, vocabulary has %d", len(scores), vocab)
		}
		return scores, nil
	})
}

func (r *RetryingScorer) VocabSize() int { return r.base.VocabSize() }
