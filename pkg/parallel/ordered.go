package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Ordered applies fn to every item on the pool and returns the results in
// input order, whatever order the workers finish in. Items not yet started
// when ctx is cancelled are skipped and ctx.Err() is returned alongside the
// results produced so far; skipped slots hold the zero value.
//
// A panicking fn leaves its slot at the zero value.
func Ordered[T, R any](ctx context.Context, pool *WorkerPool, items []T, fn func(context.Context, T) R) ([]R, error) {
	results := make([]R, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		err := pool.SubmitContext(ctx, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = fn(ctx, item)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			if errors.Is(err, ErrPoolClosed) {
				return results, fmt.Errorf("%w after %d of %d items", err, i, len(items))
			}
			return results, err
		}
	}

	wg.Wait()
	return results, ctx.Err()
}
