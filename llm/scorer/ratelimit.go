package scorer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/types"
)

// RateLimitedScorer waits on a token bucket before every call to base.
type RateLimitedScorer struct {
	base    decoding.Scorer
	limiter *rate.Limiter
}

// NewRateLimitedScorer allows limit calls per second with the given burst.
// A non-positive burst is raised to 1.
func NewRateLimitedScorer(base decoding.Scorer, limit rate.Limit, burst int) *RateLimitedScorer {
	return &RateLimitedScorer{base: base, limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// WithRateLimit returns a rate limiting middleware.
func WithRateLimit(limit rate.Limit, burst int) Middleware {
	return func(s decoding.Scorer) decoding.Scorer {
		return NewRateLimitedScorer(s, limit, burst)
	}
}

func (r *RateLimitedScorer) Score(ctx context.Context, tokens []int) ([]float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, types.NewError(types.ErrCancelled, "cancelled waiting for scorer rate limit").WithCause(ctxErr)
		}
		// The wait would outlast the deadline.
		return nil, types.NewError(types.ErrRateLimited, "scorer rate limit exceeded").WithCause(err).WithRetryable(true)
	}
	return r.base.Score(ctx, tokens)
}

func (r *RateLimitedScorer) VocabSize() int { return r.base.VocabSize() }
