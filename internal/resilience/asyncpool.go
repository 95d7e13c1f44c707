package resilience

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AsyncPool runs a bounded number of fallible operations concurrently,
// matching the outgoing-concurrency cap required of any client issuing
// overlapping remote calls (vector-store batch fetch, glossary fetch,
// LLM calls within one query).
type AsyncPool struct {
	concurrency int
}

// NewAsyncPool returns a pool that runs at most concurrency operations at
// once; additional callers queue rather than fail.
func NewAsyncPool(concurrency int) *AsyncPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AsyncPool{concurrency: concurrency}
}

// Run executes every op concurrently, bounded by the pool's concurrency
// limit, and returns the first error encountered (if any) after all
// launched operations have completed or the context is cancelled.
func (p *AsyncPool) Run(ctx context.Context, ops []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, op := range ops {
		op := op
		g.Go(func() error {
			return op(gctx)
		})
	}
	return g.Wait()
}
