package querycache

import "context"

// Mutation describes one optimistic update against a single cache key.
// Apply computes the speculative value from the current one; Mutate performs
// the real remote call.
type Mutation[T any] struct {
	Key    Key
	Apply  func(old T, ok bool) T
	Mutate func(ctx context.Context) error
}

// RunOptimistic executes the optimistic-update-then-reconcile protocol:
//
//  1. cancel any in-flight fetch for the key, so a late response cannot
//     overwrite the speculative value,
//  2. snapshot the current cache value,
//  3. synchronously apply the optimistic value,
//  4. run the real mutation,
//  5. on success invalidate the key to force a reconciling refetch;
//     on failure restore the snapshot.
//
// The cache is never left holding the speculative value after a failure.
func RunOptimistic[T any](ctx context.Context, c *Cache, m Mutation[T]) error {
	c.CancelQueries(m.Key)

	snapshot, had := GetData[T](c, m.Key)
	SetData(c, m.Key, m.Apply)

	if err := m.Mutate(ctx); err != nil {
		if had {
			SetData(c, m.Key, func(T, bool) T { return snapshot })
		} else {
			c.Remove(m.Key)
		}
		return err
	}

	c.Invalidate(m.Key)
	return nil
}
