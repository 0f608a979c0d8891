package scorer

import (
	"github.com/BaSui01/tokenfsm/decoding"
)

// Middleware wraps a Scorer with extra behavior.
type Middleware func(decoding.Scorer) decoding.Scorer

// Chain wraps base with mws. The first middleware is the outermost, so
// Chain(base, retry, cache) retries around a cached scorer.
func Chain(base decoding.Scorer, mws ...Middleware) decoding.Scorer {
	s := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			s = mws[i](s)
		}
	}
	return s
}
