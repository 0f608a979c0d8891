package decoding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DecodeBatch runs one independent session per prompt, at most concurrency
// at a time (unbounded when concurrency <= 0). All sessions share d and its
// automaton without locking. The first failing session cancels the others;
// results are positionally aligned with prompts.
func DecodeBatch(ctx context.Context, d *Decoder, prompts [][]int, concurrency int) ([]*Result, error) {
	results := make([]*Result, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, prompt := range prompts {
		g.Go(func() error {
			res, err := d.Decode(gctx, prompt)
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
