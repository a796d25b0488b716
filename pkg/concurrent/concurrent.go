package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every item with at most limit goroutines at a
// time (unbounded when limit < 1). It returns the first error; the context
// passed to action is cancelled once any action fails.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return action(ctx, item)
		})
	}
	return g.Wait()
}

// Map applies mapFn to every item in parallel, preserving order.
func Map[T, R any](ctx context.Context, items []T, limit int, mapFn func(context.Context, T) R) []R {
	out := make([]R, len(items))
	indexes := make([]int, len(items))
	for i := range indexes {
		indexes[i] = i
	}
	_ = ForEach(ctx, indexes, limit, func(ctx context.Context, i int) error {
		out[i] = mapFn(ctx, items[i])
		return nil
	})
	return out
}
