package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"dashboard/domain"
	"dashboard/interface/exporter"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// CachePolicy decides how long a computed value stays valid.
type CachePolicy struct {
	infinite bool
	ttl      time.Duration
}

func InfinitePolicy() CachePolicy {
	return CachePolicy{infinite: true}
}

func TTLPolicy(ttl time.Duration) CachePolicy {
	return CachePolicy{ttl: ttl}
}

func (p CachePolicy) Infinite() bool {
	return p.infinite
}

type cacheEntry struct {
	value           interface{}
	err             error
	computedAtBlock uint64
	expiresAt       time.Time // zero means never
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// volatileKey indexes a TTL entry so InvalidateVolatile can find it.
type volatileKey struct {
	query     string
	expiresAt time.Time
}

// pruneVolatile drops the index entries that expired by now. When none has,
// the entry closest to expiry is dropped so the index stays at its bound.
func pruneVolatile(keys map[string]volatileKey, now time.Time) {
	pruned := false
	oldest := ""
	var oldestAt time.Time
	for k, v := range keys {
		if !now.Before(v.expiresAt) {
			delete(keys, k)
			pruned = true
			continue
		}
		if oldest == "" || v.expiresAt.Before(oldestAt) {
			oldest, oldestAt = k, v.expiresAt
		}
	}
	if !pruned && oldest != "" {
		delete(keys, oldest)
	}
}

// QueryCache memoizes chain and index reads by BlockKey. Each query name gets
// its own size-bounded store; concurrent misses on one key share a single
// computation. Failures are remembered for negativeTTL only.
type QueryCache struct {
	mu          sync.Mutex
	stores      map[string]*ristretto.Cache
	volatile    map[domain.Address]map[string]volatileKey
	maxEntries  int64
	pendingTTL  time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	metrics     *exporter.Metrics
	now         func() time.Time
}

func NewQueryCache(maxEntries int64, pendingTTL, negativeTTL time.Duration, metrics *exporter.Metrics) *QueryCache {
	return &QueryCache{
		stores:      make(map[string]*ristretto.Cache),
		volatile:    make(map[domain.Address]map[string]volatileKey),
		maxEntries:  maxEntries,
		pendingTTL:  pendingTTL,
		negativeTTL: negativeTTL,
		metrics:     metrics,
		now:         time.Now,
	}
}

// PolicyFor returns Infinite for a finalized block and the pending TTL otherwise.
func (c *QueryCache) PolicyFor(block domain.ResolvedBlock) CachePolicy {
	if block.Finalized {
		return InfinitePolicy()
	}
	return TTLPolicy(c.pendingTTL)
}

// Cached returns the value stored under key or computes it. Concurrent callers
// with an identical key wait for the same computation, each until its own ctx
// is done. The computation runs on the context of the caller that started it;
// if that caller goes away, the others start a fresh computation instead of
// inheriting its cancellation. Cancellation errors are returned but never cached.
func Cached[T any](ctx context.Context, c *QueryCache, key domain.BlockKey, policy CachePolicy, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	if entry, ok := c.lookup(key.Query, k); ok {
		if entry.err != nil {
			c.metrics.CacheRequest(key.Query, "negative")
			return zero, entry.err
		}
		c.metrics.CacheRequest(key.Query, "hit")
		return entry.value.(T), nil
	}

	for {
		led := false
		ch := c.group.DoChan(k, func() (interface{}, error) {
			led = true
			// Another flight may have filled the slot between our lookup and DoChan.
			if entry, ok := c.lookup(key.Query, k); ok {
				if entry.err != nil {
					return nil, entry.err
				}
				return entry.value, nil
			}

			c.metrics.CacheRequest(key.Query, "miss")
			value, err := compute(ctx)
			if err != nil {
				if !isCancellation(err) {
					log.Printf("🟡 caching failure of %v for %v - %v\n", k, c.negativeTTL, err.Error())
					c.store(key, k, &cacheEntry{err: err, computedAtBlock: key.Block}, TTLPolicy(c.negativeTTL))
				}
				return nil, err
			}
			c.store(key, k, &cacheEntry{value: value, computedAtBlock: key.Block}, policy)
			return value, nil
		})

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", domain.ErrorCancelled, ctx.Err())

		case result := <-ch:
			if result.Err != nil {
				if !led && isCancellation(result.Err) && ctx.Err() == nil {
					log.Printf("⚠️ computation of %v was cancelled by another caller, retrying\n", k)
					continue
				}
				return zero, result.Err
			}
			return result.Val.(T), nil
		}
	}
}

// InvalidateVolatile drops every pending/latest entry recorded for subjects.
// Finalized entries are untouched.
func (c *QueryCache) InvalidateVolatile(subjects ...domain.Address) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for _, subject := range subjects {
		for k, v := range c.volatile[subject] {
			if store, ok := c.stores[v.query]; ok {
				store.Del(k)
				dropped++
			}
		}
		delete(c.volatile, subject)
	}
	return dropped
}

// Close releases the underlying stores.
func (c *QueryCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for query, store := range c.stores {
		store.Close()
		delete(c.stores, query)
	}
}

func (c *QueryCache) lookup(query string, k string) (*cacheEntry, bool) {
	store, err := c.storeFor(query)
	if err != nil {
		return nil, false
	}
	v, ok := store.Get(k)
	if !ok {
		return nil, false
	}
	entry := v.(*cacheEntry)
	if entry.expired(c.now()) {
		store.Del(k)
		return nil, false
	}
	return entry, true
}

func (c *QueryCache) store(key domain.BlockKey, k string, entry *cacheEntry, policy CachePolicy) {
	store, err := c.storeFor(key.Query)
	if err != nil {
		log.Printf("🔴 creating cache store for %v - %v\n", key.Query, err.Error())
		return
	}

	if policy.Infinite() {
		store.Set(k, entry, 1)
	} else {
		entry.expiresAt = c.now().Add(policy.ttl)
		store.SetWithTTL(k, entry, 1, policy.ttl)

		c.mu.Lock()
		keys, ok := c.volatile[key.Subject]
		if !ok {
			keys = make(map[string]volatileKey)
			c.volatile[key.Subject] = keys
		}
		if _, known := keys[k]; !known && int64(len(keys)) >= c.maxEntries {
			pruneVolatile(keys, c.now())
		}
		keys[k] = volatileKey{query: key.Query, expiresAt: entry.expiresAt}
		c.mu.Unlock()
	}
	// Sets are buffered; make the entry visible before the flight returns.
	store.Wait()
}

func (c *QueryCache) storeFor(query string) (*ristretto.Cache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if store, ok := c.stores[query]; ok {
		return store, nil
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        c.maxEntries * 10,
		MaxCost:            c.maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new cache store: %w", err)
	}
	c.stores[query] = store
	return store, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrorCancelled)
}
