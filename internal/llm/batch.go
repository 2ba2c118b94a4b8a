package llm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// fanOut issues call once per prompt with bounded concurrency and
// returns one Result per prompt in input order. Item failures stay in
// their slot; siblings keep running.
func fanOut(ctx context.Context, prompts []string, limit int, call func(ctx context.Context, prompt string) (string, error)) []Result {
	if limit <= 0 {
		limit = defaultConcurrency
	}

	results := make([]Result, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range prompts {
		i, p := i, p
		g.Go(func() error {
			content, err := call(gctx, p)
			if err != nil {
				results[i] = Result{Err: fmt.Errorf("prompt %d: %w", i, err)}
				return nil // item failure must not cancel siblings
			}
			results[i] = Result{Content: content}
			return nil
		})
	}
	g.Wait()
	return results
}
