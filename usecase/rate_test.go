package usecase

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync/atomic"
	"testing"

	"dashboard/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateInteractor(t *testing.T, pool *fakePool, head uint64) *ExchangeRateInteractor {
	chain := &fakeChain{head: head}
	return NewExchangeRateInteractor(pool, NewBlockResolver(chain), newTestCache(t), 18)
}

func TestComputeRate(t *testing.T) {
	assets, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	supply, _ := new(big.Int).SetString("950000000000000000000000", 10)
	pool := newFakePool(domain.NewFixedPoint(assets, 18), domain.NewFixedPoint(supply, 18))

	rate, err := newRateInteractor(t, pool, 500).ComputeRate(context.Background(), domain.BlockAt(400))
	require.NoError(t, err)

	assert.Equal(t, "1.052631578947368421", rate.PreciseRate.String())
	assert.InDelta(t, 1.0526315789473684, rate.Rate, 1e-12)
	assert.Equal(t, uint64(400), rate.ComputedAtBlock)
	assert.False(t, rate.Pending)
}

func TestComputeRateZeroSupply(t *testing.T) {
	pool := newFakePool(fixed("10", 9), domain.ZeroFixedPoint(9))

	rate, err := newRateInteractor(t, pool, 10).ComputeRate(context.Background(), domain.LatestBlock())
	require.NoError(t, err)

	assert.True(t, rate.Unavailable())
	assert.Equal(t, 0.0, rate.Rate)
	assert.False(t, math.IsNaN(rate.Rate))
}

func TestComputeRatePending(t *testing.T) {
	pool := newFakePool(fixed("2", 9), fixed("1", 9))

	rate, err := newRateInteractor(t, pool, 77).ComputeRate(context.Background(), domain.PendingBlock())
	require.NoError(t, err)
	assert.True(t, rate.Pending)
	assert.Equal(t, uint64(77), rate.ComputedAtBlock)
	assert.Equal(t, "2.000000000000000000", rate.PreciseRate.String())
}

func TestComputeRateCachesPerBlock(t *testing.T) {
	pool := newFakePool(fixed("3", 9), fixed("2", 9))
	interactor := newRateInteractor(t, pool, 50)

	for i := 0; i < 3; i++ {
		_, err := interactor.ComputeRate(context.Background(), domain.BlockAt(40))
		require.NoError(t, err)
	}
	// one treasury state read serves both totals
	assert.Equal(t, int32(1), atomic.LoadInt32(&pool.stateCalls))

	_, err := interactor.ComputeRate(context.Background(), domain.BlockAt(41))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pool.stateCalls))
}

func TestComputeRateFailure(t *testing.T) {
	pool := newFakePool(fixed("3", 9), fixed("2", 9))
	pool.err = fmt.Errorf("%w: node down", domain.ErrorTransientNetwork)

	_, err := newRateInteractor(t, pool, 50).ComputeRate(context.Background(), domain.BlockAt(40))
	assert.ErrorIs(t, err, domain.ErrorTransientNetwork)
}

func TestComputeRateHeadFailure(t *testing.T) {
	pool := newFakePool(fixed("3", 9), fixed("2", 9))
	chain := &fakeChain{err: fmt.Errorf("unreachable")}
	interactor := NewExchangeRateInteractor(pool, NewBlockResolver(chain), newTestCache(t), 18)

	_, err := interactor.ComputeRate(context.Background(), domain.LatestBlock())
	assert.ErrorIs(t, err, domain.ErrorTransientNetwork)
	assert.Equal(t, int32(0), atomic.LoadInt32(&pool.stateCalls))
}

func TestRateFromTotalsDeterministic(t *testing.T) {
	block := domain.BlockAt(1).Resolve(1)
	a := RateFromTotals(fixed("123.456", 9), fixed("100", 9), 18, block)
	b := RateFromTotals(fixed("123.456", 9), fixed("100", 9), 18, block)
	assert.True(t, a.PreciseRate.Equal(b.PreciseRate))
	assert.Equal(t, "1.234560000000000000", a.PreciseRate.String())
}
