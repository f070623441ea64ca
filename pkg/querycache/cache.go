// Package querycache implements a keyed, TTL-aware cache of asynchronous
// remote results. Concurrent fetches for the same key share a single loader
// invocation, stale entries are refreshed on demand (stale-while-revalidate),
// and idle entries are garbage collected after a configurable window.
package querycache

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// StaleForever marks an entry as fresh for the whole process lifetime.
const StaleForever = time.Duration(math.MaxInt64)

// DefaultGCTime is the idle window after which an entry becomes collectable
// when the caller did not configure one.
const DefaultGCTime = time.Hour

// Loader produces the value for a cache entry. The supplied context belongs
// to the flight, not to any single caller: it is cancelled by CancelQueries
// or by Close, never by an individual waiter going away.
type Loader[T any] func(ctx context.Context) (T, error)

// Options control freshness and retention per fetch.
type Options struct {
	// StaleTime is how long a successful result counts as fresh.
	// Zero means every fetch reloads; StaleForever means never reload.
	StaleTime time.Duration
	// GCTime is how long an idle entry survives before eviction.
	// Zero falls back to DefaultGCTime.
	GCTime time.Duration
}

// Event notifies a subscriber that the entry under Key changed.
type Event struct {
	Key Key
}

type flight struct {
	done      chan struct{}
	cancel    context.CancelFunc
	data      any
	err       error
	discarded bool
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	fetchedAt time.Time
	lastUsed  time.Time
	stale     bool
	gcTime    time.Duration
	flight    *flight
}

type subscriber struct {
	prefix Key
	ch     chan Event
}

// Cache is the process-wide query cache. It is constructed explicitly and
// passed to consumers; there is no package-level instance.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]*subscriber
	nextSub int
	logger  *slog.Logger
	now     func() time.Time
	stopGC  chan struct{}
	gcOnce  sync.Once
}

// New creates a Cache and starts its garbage collector, which wakes every
// gcInterval and evicts entries idle for longer than their gcTime.
func New(logger *slog.Logger, gcInterval time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		subs:    make(map[int]*subscriber),
		logger:  logger.With("component", "querycache"),
		now:     time.Now,
		stopGC:  make(chan struct{}),
	}
	if gcInterval > 0 {
		go c.gcLoop(gcInterval)
	}
	return c
}

// Close stops the garbage collector and cancels all in-flight loads.
func (c *Cache) Close() {
	c.gcOnce.Do(func() { close(c.stopGC) })
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.flight != nil {
			e.flight.discarded = true
			e.flight.cancel()
		}
	}
}

// Fetch returns the cached value for key when it is fresh, otherwise invokes
// loader, stores the result and notifies subscribers. Concurrent calls with
// the same key share one in-flight load. Loader errors propagate to every
// waiter of that flight.
func Fetch[T any](ctx context.Context, c *Cache, key Key, loader Loader[T], opts Options) (T, error) {
	var zero T

	c.mu.Lock()
	e := c.lookup(key)
	now := c.now()
	e.lastUsed = now
	if opts.GCTime > 0 {
		e.gcTime = opts.GCTime
	}

	if e.flight == nil && e.hasData && !e.stale && fresh(now, e.fetchedAt, opts.StaleTime) {
		data, ok := e.data.(T)
		c.mu.Unlock()
		if !ok {
			return zero, ErrTypeMismatch
		}
		return data, nil
	}

	f := e.flight
	if f == nil {
		f = c.startFlight(e, func(fctx context.Context) (any, error) { return loader(fctx) })
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.done:
	}
	if f.err != nil {
		return zero, f.err
	}
	data, ok := f.data.(T)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return data, nil
}

// Prefetch behaves like Fetch but does not block the caller and swallows
// loader failures; a prefetch is an optimization, not a requirement.
func Prefetch[T any](ctx context.Context, c *Cache, key Key, loader Loader[T], opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	now := c.now()
	e.lastUsed = now
	if opts.GCTime > 0 {
		e.gcTime = opts.GCTime
	}
	if e.flight != nil {
		return
	}
	if e.hasData && !e.stale && fresh(now, e.fetchedAt, opts.StaleTime) {
		return
	}
	key = append(Key{}, key...)
	f := c.startFlight(e, func(fctx context.Context) (any, error) { return loader(fctx) })
	go func() {
		<-f.done
		if f.err != nil && !f.discarded {
			c.logger.WarnContext(ctx, "prefetch failed", "key", key.String(), "error", f.err)
		}
	}()
}

// SetData synchronously replaces the entry under key using update, which
// receives the current value (and whether one exists). It never touches the
// network; this is the hook for optimistic writes.
func SetData[T any](c *Cache, key Key, update func(old T, ok bool) T) {
	c.mu.Lock()
	e := c.lookup(key)
	old, ok := e.data.(T)
	e.data = update(old, ok && e.hasData)
	e.hasData = true
	e.stale = false
	e.fetchedAt = c.now()
	e.lastUsed = e.fetchedAt
	c.notifyLocked(e.key)
	c.mu.Unlock()
}

// GetData returns the current value under key without touching the network.
// Stale values are still returned; absence or a type mismatch reports false.
func GetData[T any](c *Cache, key Key) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key.String()]
	if !exists || !e.hasData {
		return zero, false
	}
	e.lastUsed = c.now()
	data, ok := e.data.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// GetAll returns the values of every entry whose key matches the given
// prefix. Entries holding a different type are skipped. This is how cart
// projection aggregates results across all cached product pages.
func GetAll[T any](c *Cache, prefix Key) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) || !e.hasData {
			continue
		}
		if data, ok := e.data.(T); ok {
			out = append(out, data)
		}
	}
	return out
}

// Invalidate marks every entry matching the prefix as stale. Current values
// keep being served until the next Fetch re-executes the loader.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			c.notifyLocked(e.key)
		}
	}
}

// CancelQueries aborts in-flight loads for every entry matching the prefix.
// A cancelled load never writes its (late) result into the cache.
func (c *Cache) CancelQueries(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) && e.flight != nil {
			e.flight.discarded = true
			e.flight.cancel()
		}
	}
}

// Remove drops the entry under key entirely.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		if e.flight != nil {
			e.flight.discarded = true
			e.flight.cancel()
		}
		delete(c.entries, key.String())
		c.notifyLocked(key)
	}
}

// Subscribe registers interest in changes to entries matching the prefix.
// The returned cancel function must be called to release the subscription.
// Events are delivered best-effort: a slow consumer drops, never blocks.
func (c *Cache) Subscribe(prefix Key) (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	sub := &subscriber{prefix: prefix, ch: make(chan Event, 16)}
	c.subs[id] = sub
	return sub.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if s, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s.ch)
		}
	}
}

// lookup returns the entry for key, creating a placeholder when absent.
// Caller must hold c.mu.
func (c *Cache) lookup(key Key) *entry {
	ck := key.String()
	e, ok := c.entries[ck]
	if !ok {
		e = &entry{key: append(Key{}, key...), gcTime: DefaultGCTime, lastUsed: c.now()}
		c.entries[ck] = e
	}
	return e
}

// startFlight spawns the loader goroutine for e. Caller must hold c.mu.
// The flight context is detached from any caller context so that a waiter
// going away does not abort a load others may be joined to.
func (c *Cache) startFlight(e *entry, load func(ctx context.Context) (any, error)) *flight {
	fctx, cancel := context.WithCancel(context.Background())
	f := &flight{done: make(chan struct{}), cancel: cancel}
	e.flight = f

	go func() {
		data, err := load(fctx)

		c.mu.Lock()
		if f.discarded || fctx.Err() != nil {
			// Late result of a cancelled load: discard, never merge.
			f.err = context.Canceled
			if e.flight == f {
				e.flight = nil
			}
		} else {
			f.data, f.err = data, err
			if err == nil {
				e.data = data
				e.hasData = true
				e.stale = false
				e.fetchedAt = c.now()
			}
			e.flight = nil
			c.notifyLocked(e.key)
		}
		c.mu.Unlock()
		cancel()
		close(f.done)
	}()
	return f
}

// notifyLocked fans an event out to matching subscribers. Caller holds c.mu.
func (c *Cache) notifyLocked(key Key) {
	for _, sub := range c.subs {
		if key.HasPrefix(sub.prefix) {
			select {
			case sub.ch <- Event{Key: key}:
			default:
			}
		}
	}
}

func (c *Cache) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			c.gc(c.now())
		}
	}
}

// gc evicts entries with no active flight that were not used within their
// gcTime window.
func (c *Cache) gc(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ck, e := range c.entries {
		if e.flight != nil {
			continue
		}
		if now.Sub(e.lastUsed) > e.gcTime {
			delete(c.entries, ck)
		}
	}
}

func fresh(now, fetchedAt time.Time, staleTime time.Duration) bool {
	if staleTime == StaleForever {
		return true
	}
	return now.Sub(fetchedAt) < staleTime
}
