package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dashboard/domain"
)

const (
	testAddress = domain.Address("EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAM9c")
)

type fakeChain struct {
	mu    sync.Mutex
	head  uint64
	err   error
	calls int32
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, f.err
}

func (f *fakeChain) setHead(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
}

// fakePool answers per block number, falling back to the zero key.
type fakePool struct {
	mu         sync.Mutex
	assets     map[uint64]domain.FixedPoint
	supply     map[uint64]domain.FixedPoint
	budget     domain.FixedPoint
	err        error
	stateCalls int32
}

func newFakePool(assets, supply domain.FixedPoint) *fakePool {
	return &fakePool{
		assets: map[uint64]domain.FixedPoint{0: assets},
		supply: map[uint64]domain.FixedPoint{0: supply},
		budget: domain.ZeroFixedPoint(assets.Decimals()),
	}
}

func (f *fakePool) at(values map[uint64]domain.FixedPoint, block domain.ResolvedBlock) domain.FixedPoint {
	if v, ok := values[block.Number]; ok {
		return v
	}
	return values[0]
}

func (f *fakePool) State(ctx context.Context, block domain.ResolvedBlock) (domain.TreasuryState, error) {
	atomic.AddInt32(&f.stateCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.TreasuryState{}, f.err
	}
	return domain.TreasuryState{TotalCoins: f.at(f.assets, block), TotalTokens: f.at(f.supply, block)}, nil
}

func (f *fakePool) InstantBurnBudget(ctx context.Context, block domain.ResolvedBlock) (domain.FixedPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.budget, nil
}

func (f *fakePool) Address() domain.Address {
	return "treasury"
}

type fakeAdapter struct {
	protocol domain.ProtocolID
	staked   int64
	err      error
	delay    time.Duration

	calls    int32
	inflight *int32
	peak     *int32
}

func (f *fakeAdapter) Protocol() domain.ProtocolID {
	return f.protocol
}

func (f *fakeAdapter) FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.inflight != nil {
		n := atomic.AddInt32(f.inflight, 1)
		defer atomic.AddInt32(f.inflight, -1)
		for {
			peak := atomic.LoadInt32(f.peak)
			if n <= peak || atomic.CompareAndSwapInt32(f.peak, peak, n) {
				break
			}
		}
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Holding{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return domain.Holding{}, f.err
	}
	return domain.Holding{
		StakedTokenAmount:     domain.NewFixedPointInt64(f.staked, 9),
		UnderlyingTokenAmount: domain.ZeroFixedPoint(9),
	}, nil
}

func (f *fakeAdapter) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

type fakeQuoter struct {
	mu     sync.Mutex
	quotes []domain.Quote
	err    error
	calls  int
}

func (f *fakeQuoter) GetQuote(ctx context.Context, sell, buy domain.Address, amount domain.FixedPoint, taker domain.Address) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	quote := f.quotes[0]
	if len(f.quotes) > 1 {
		f.quotes = f.quotes[1:]
	}
	return quote, nil
}

type fakeYieldSource struct {
	components []domain.YieldComponent
	err        error
	calls      int32
}

func (f *fakeYieldSource) Name() string {
	return "fake"
}

func (f *fakeYieldSource) Components(ctx context.Context, protocol domain.ProtocolID) ([]domain.YieldComponent, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.components, f.err
}

func fixed(s string, decimals uint8) domain.FixedPoint {
	f, err := domain.ParseFixedPoint(s, decimals)
	if err != nil {
		panic(err)
	}
	return f
}
