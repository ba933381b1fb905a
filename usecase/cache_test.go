package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dashboard/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *QueryCache {
	cache := NewQueryCache(1000, 5*time.Second, 5*time.Second, nil)
	t.Cleanup(cache.Close)
	return cache
}

func TestCachedSingleFlight(t *testing.T) {
	cache := newTestCache(t)
	key := domain.NewBlockKey("q", domain.BlockAt(7).Resolve(10), testAddress, "")

	var computed int32
	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&computed, 1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := Cached(context.Background(), cache, key, InfinitePolicy(), compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computed))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestCachedSeparatesBlocks(t *testing.T) {
	cache := newTestCache(t)

	var computed int32
	compute := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&computed, 1)), nil
	}

	a, err := Cached(context.Background(), cache, domain.NewBlockKey("q", domain.BlockAt(1).Resolve(5), "", ""), InfinitePolicy(), compute)
	require.NoError(t, err)
	b, err := Cached(context.Background(), cache, domain.NewBlockKey("q", domain.BlockAt(2).Resolve(5), "", ""), InfinitePolicy(), compute)
	require.NoError(t, err)
	again, err := Cached(context.Background(), cache, domain.NewBlockKey("q", domain.BlockAt(1).Resolve(9), "", ""), InfinitePolicy(), compute)
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, again)
}

func TestCachedNegativeTTL(t *testing.T) {
	cache := newTestCache(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	key := domain.NewBlockKey("q", domain.BlockAt(3).Resolve(3), "", "")
	var computed int32
	failing := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&computed, 1)
		return 0, fmt.Errorf("%w: boom", domain.ErrorTransientNetwork)
	}

	_, err := Cached(context.Background(), cache, key, InfinitePolicy(), failing)
	assert.ErrorIs(t, err, domain.ErrorTransientNetwork)
	_, err = Cached(context.Background(), cache, key, InfinitePolicy(), failing)
	assert.ErrorIs(t, err, domain.ErrorTransientNetwork)
	assert.Equal(t, int32(1), atomic.LoadInt32(&computed))

	now = now.Add(6 * time.Second)
	v, err := Cached(context.Background(), cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&computed, 1)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&computed))
}

func TestCachedDoesNotCacheCancellation(t *testing.T) {
	cache := newTestCache(t)
	key := domain.NewBlockKey("q", domain.BlockAt(3).Resolve(3), "", "")

	_, err := Cached(context.Background(), cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)

	v, err := Cached(context.Background(), cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestCachedPendingTTL(t *testing.T) {
	cache := newTestCache(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	pending := domain.PendingBlock().Resolve(100)
	key := domain.NewBlockKey("q", pending, testAddress, "")
	var computed int32
	compute := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&computed, 1)), nil
	}

	v, _ := Cached(context.Background(), cache, key, cache.PolicyFor(pending), compute)
	assert.Equal(t, 1, v)
	v, _ = Cached(context.Background(), cache, key, cache.PolicyFor(pending), compute)
	assert.Equal(t, 1, v)

	now = now.Add(5 * time.Second)
	v, _ = Cached(context.Background(), cache, key, cache.PolicyFor(pending), compute)
	assert.Equal(t, 2, v)
}

func TestPolicyFor(t *testing.T) {
	cache := newTestCache(t)
	assert.True(t, cache.PolicyFor(domain.BlockAt(1).Resolve(9)).Infinite())
	assert.False(t, cache.PolicyFor(domain.PendingBlock().Resolve(9)).Infinite())
	assert.False(t, cache.PolicyFor(domain.LatestBlock().Resolve(9)).Infinite())
}

func TestInvalidateVolatile(t *testing.T) {
	cache := newTestCache(t)

	var computed int32
	compute := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&computed, 1)), nil
	}

	finalized := domain.BlockAt(10).Resolve(20)
	latest := domain.LatestBlock().Resolve(20)
	finalKey := domain.NewBlockKey("q", finalized, testAddress, "")
	latestKey := domain.NewBlockKey("q", latest, testAddress, "")

	f, _ := Cached(context.Background(), cache, finalKey, cache.PolicyFor(finalized), compute)
	l, _ := Cached(context.Background(), cache, latestKey, cache.PolicyFor(latest), compute)
	assert.Equal(t, 1, f)
	assert.Equal(t, 2, l)

	assert.Equal(t, 1, cache.InvalidateVolatile(testAddress))

	f, _ = Cached(context.Background(), cache, finalKey, cache.PolicyFor(finalized), compute)
	l, _ = Cached(context.Background(), cache, latestKey, cache.PolicyFor(latest), compute)
	assert.Equal(t, 1, f)
	assert.Equal(t, 3, l)
}

func TestCachedWaiterHonorsOwnDeadline(t *testing.T) {
	cache := newTestCache(t)
	key := domain.NewBlockKey("q", domain.BlockAt(3).Resolve(3), "", "")

	entered := make(chan struct{})
	gate := make(chan struct{})
	leader := make(chan int, 1)
	go func() {
		v, _ := Cached(context.Background(), cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
			close(entered)
			<-gate
			return 1, nil
		})
		leader <- v
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := Cached(ctx, cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
		return 2, nil
	})
	assert.ErrorIs(t, err, domain.ErrorCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	close(gate)
	assert.Equal(t, 1, <-leader)
}

func TestCachedFollowerSurvivesLeaderCancel(t *testing.T) {
	cache := newTestCache(t)
	key := domain.NewBlockKey("q", domain.BlockAt(3).Resolve(3), "", "")

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	entered := make(chan struct{})
	leaderErr := make(chan error, 1)
	go func() {
		_, err := Cached(leaderCtx, cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
			close(entered)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		leaderErr <- err
	}()
	<-entered

	follower := make(chan int, 1)
	followerErr := make(chan error, 1)
	go func() {
		v, err := Cached(context.Background(), cache, key, InfinitePolicy(), func(ctx context.Context) (int, error) {
			return 9, nil
		})
		follower <- v
		followerErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	assert.Equal(t, 9, <-follower)
	assert.NoError(t, <-followerErr)
}

func TestCachedStoreBoundPerQuery(t *testing.T) {
	cache := NewQueryCache(10, 5*time.Second, 5*time.Second, nil)
	t.Cleanup(cache.Close)

	var computed int32
	compute := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&computed, 1)), nil
	}
	keyAt := func(query string, n uint64) domain.BlockKey {
		return domain.NewBlockKey(query, domain.BlockAt(n).Resolve(100), "", "")
	}

	for n := uint64(1); n <= 30; n++ {
		_, err := Cached(context.Background(), cache, keyAt("a", n), InfinitePolicy(), compute)
		require.NoError(t, err)
	}

	retained := 0
	for n := uint64(1); n <= 30; n++ {
		if _, ok := cache.lookup("a", keyAt("a", n).String()); ok {
			retained++
		}
	}
	assert.LessOrEqual(t, retained, 10)
	assert.Greater(t, retained, 0)

	for n := uint64(1); n <= 5; n++ {
		_, err := Cached(context.Background(), cache, keyAt("b", n), InfinitePolicy(), compute)
		require.NoError(t, err)
	}
	for n := uint64(1); n <= 5; n++ {
		_, ok := cache.lookup("b", keyAt("b", n).String())
		assert.True(t, ok, "block %v of query b", n)
	}
}

func TestInvalidateVolatileIndexBound(t *testing.T) {
	cache := NewQueryCache(4, 5*time.Second, 5*time.Second, nil)
	t.Cleanup(cache.Close)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	compute := func(ctx context.Context) (int, error) { return 1, nil }
	latest := func(head uint64) {
		block := domain.LatestBlock().Resolve(head)
		_, err := Cached(context.Background(), cache, domain.NewBlockKey("rate", block, "", ""), cache.PolicyFor(block), compute)
		require.NoError(t, err)
	}

	for head := uint64(1); head <= 5; head++ {
		now = now.Add(time.Millisecond)
		latest(head)
	}
	// full index: only the oldest head is forgotten
	assert.Equal(t, 4, cache.InvalidateVolatile(""))
	assert.Equal(t, 0, cache.InvalidateVolatile(""))

	for head := uint64(10); head <= 13; head++ {
		latest(head)
	}
	now = now.Add(6 * time.Second)
	latest(14)
	// expired keys are pruned first
	assert.Equal(t, 1, cache.InvalidateVolatile(""))
}
