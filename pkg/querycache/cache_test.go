package querycache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(testLogger(), 0)
	t.Cleanup(c.Close)
	return c
}

func Test_Fetch_ReturnsCachedValueWhileFresh(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("products", "list", "1")
	var calls atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "page-1", nil
	}

	// when
	first, err1 := Fetch(context.Background(), c, key, loader, Options{StaleTime: time.Minute})
	second, err2 := Fetch(context.Background(), c, key, loader, Options{StaleTime: time.Minute})

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "page-1", first)
	assert.Equal(t, "page-1", second)
	assert.Equal(t, int32(1), calls.Load(), "fresh hit must not re-invoke the loader")
}

func Test_Fetch_SharesOneFlightAcrossConcurrentCallers(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("products", "list", "1")
	release := make(chan struct{})
	var calls atomic.Int32
	loader := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]int, waiters)
	errs := make([]error, waiters)

	// when
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Fetch(context.Background(), c, key, loader, Options{StaleTime: time.Minute})
		}(i)
	}
	// let every caller join the flight before the loader finishes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// then
	assert.Equal(t, int32(1), calls.Load(), "concurrent fetches must share one loader invocation")
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func Test_Fetch_ReloadsAfterStaleTime(t *testing.T) {
	// given
	c := newTestCache(t)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	key := NewKey("users", "byId", "7")
	var calls atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "emily", nil
	}

	// when
	_, err := Fetch(context.Background(), c, key, loader, Options{StaleTime: 24 * time.Hour})
	require.NoError(t, err)
	current = current.Add(25 * time.Hour)
	_, err = Fetch(context.Background(), c, key, loader, Options{StaleTime: 24 * time.Hour})
	require.NoError(t, err)

	// then
	assert.Equal(t, int32(2), calls.Load(), "entry older than its stale time must reload")
}

func Test_Fetch_StaleForeverNeverReloads(t *testing.T) {
	// given
	c := newTestCache(t)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	key := NewKey("products", "list", "1")
	var calls atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	// when
	_, err := Fetch(context.Background(), c, key, loader, Options{StaleTime: StaleForever})
	require.NoError(t, err)
	current = current.Add(365 * 24 * time.Hour)
	_, err = Fetch(context.Background(), c, key, loader, Options{StaleTime: StaleForever})
	require.NoError(t, err)

	// then
	assert.Equal(t, int32(1), calls.Load())
}

func Test_Fetch_PropagatesLoaderErrorToAllWaiters(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("products", "list", "9")
	boom := errors.New("upstream exploded")
	loader := func(ctx context.Context) (string, error) {
		return "", boom
	}

	// when
	_, err := Fetch(context.Background(), c, key, loader, Options{StaleTime: time.Minute})

	// then
	require.ErrorIs(t, err, boom)
	_, ok := GetData[string](c, key)
	assert.False(t, ok, "a failed load must not populate the entry")
}

func Test_Fetch_CallerCancellationDoesNotAbortTheFlight(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("products", "list", "1")
	release := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		<-release
		return "landed", nil
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, loader, Options{StaleTime: time.Minute})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// when: the only waiter gives up, then the load completes
	cancel()
	err := <-done
	close(release)

	// then: the waiter got its context error but the result still lands
	require.ErrorIs(t, err, context.Canceled)
	assert.Eventually(t, func() bool {
		v, ok := GetData[string](c, key)
		return ok && v == "landed"
	}, time.Second, 10*time.Millisecond)
}

func Test_CancelQueries_DiscardsLateResult(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("cart", "byId", "5")
	release := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), c, key, loader, Options{StaleTime: time.Minute})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// when
	c.CancelQueries(NewKey("cart"))
	close(release)
	err := <-done

	// then
	require.ErrorIs(t, err, context.Canceled)
	_, ok := GetData[string](c, key)
	assert.False(t, ok, "a cancelled load must never write its result")
}

func Test_Invalidate_ServesStaleValueUntilRefetch(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("cart", "byId", "5")
	var calls atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v2", nil
	}
	SetData(c, key, func(string, bool) string { return "v1" })

	// when
	c.Invalidate(NewKey("cart"))

	// then: the old value is still readable without the network
	stale, ok := GetData[string](c, key)
	require.True(t, ok)
	assert.Equal(t, "v1", stale)

	// and a fetch re-executes the loader even inside the stale window
	v, err := Fetch(context.Background(), c, key, loader, Options{StaleTime: StaleForever})
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int32(1), calls.Load())
}

func Test_SetData_AppliesUpdateSynchronously(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("counters", "a")

	// when
	SetData(c, key, func(old int, ok bool) int {
		if !ok {
			return 1
		}
		return old + 1
	})
	SetData(c, key, func(old int, ok bool) int {
		if !ok {
			return 1
		}
		return old + 1
	})

	// then
	v, ok := GetData[int](c, key)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func Test_GetData_ReportsTypeMismatchAsAbsent(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("products", "list", "1")
	SetData(c, key, func(string, bool) string { return "text" })

	// when
	_, ok := GetData[int](c, key)

	// then
	assert.False(t, ok)
}

func Test_GetAll_AggregatesEntriesByPrefix(t *testing.T) {
	// given
	c := newTestCache(t)
	SetData(c, NewKey("products", "list", "a", "1"), func(string, bool) string { return "p1" })
	SetData(c, NewKey("products", "list", "a", "2"), func(string, bool) string { return "p2" })
	SetData(c, NewKey("products", "byId", "7"), func(string, bool) string { return "entity" })
	SetData(c, NewKey("cart", "byId", "5"), func(int, bool) int { return 9 })

	// when
	pages := GetAll[string](c, NewKey("products", "list"))

	// then
	assert.ElementsMatch(t, []string{"p1", "p2"}, pages)
}

func Test_Remove_DropsEntry(t *testing.T) {
	// given
	c := newTestCache(t)
	key := NewKey("cart", "byId", "5")
	SetData(c, key, func(string, bool) string { return "v" })

	// when
	c.Remove(key)

	// then
	_, ok := GetData[string](c, key)
	assert.False(t, ok)
}

func Test_GC_EvictsIdleEntriesOnly(t *testing.T) {
	// given
	c := newTestCache(t)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	idle := NewKey("products", "list", "old")
	SetData(c, idle, func(string, bool) string { return "old" })

	current = current.Add(2 * time.Hour)
	active := NewKey("products", "list", "new")
	SetData(c, active, func(string, bool) string { return "new" })

	// when
	c.gc(current)

	// then
	_, ok := GetData[string](c, idle)
	assert.False(t, ok, "entry idle beyond its gc time must be evicted")
	v, ok := GetData[string](c, active)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func Test_Subscribe_NotifiesMatchingPrefix(t *testing.T) {
	// given
	c := newTestCache(t)
	events, unsubscribe := c.Subscribe(NewKey("cart"))
	defer unsubscribe()

	// when
	SetData(c, NewKey("cart", "byId", "5"), func(int, bool) int { return 1 })
	SetData(c, NewKey("products", "list", "1"), func(int, bool) int { return 2 })

	// then
	select {
	case ev := <-events:
		assert.Equal(t, "cart/byId/5", ev.Key.String())
	case <-time.After(time.Second):
		t.Fatal("expected a change event for the cart prefix")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for key %s", ev.Key.String())
	default:
	}
}
