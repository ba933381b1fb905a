package usecase

import (
	"context"
	"fmt"
	"log"

	"dashboard/domain"
	"dashboard/interface/exporter"
)

// Snapshot is everything the dashboard shows for one address at one block.
// RateErr is set when the exchange rate could not be read; Rate is then the
// zero "unavailable" value.
type Snapshot struct {
	Address  domain.Address
	Block    domain.ResolvedBlock
	Rate     domain.ExchangeRate
	RateErr  error
	Holdings domain.AggregateHoldings
}

type EngineDeps struct {
	Config       *domain.Config
	Chain        ChainReader
	Pool         StakingPool
	Adapters     []ProtocolAdapter
	Quoter       SwapQuoter
	YieldSources []YieldSource
	Metrics      *exporter.Metrics
}

// Engine owns the query cache and every interactor built on it. Each Engine
// is independent; nothing is shared through package state.
type Engine struct {
	cache    *QueryCache
	registry *Registry
	resolver *BlockResolver
	notifier *Notifier

	rates    *ExchangeRateInteractor
	holdings *HoldingsInteractor
	yields   *YieldInteractor
	unstake  *UnstakeInteractor
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("engine: config is required")
	}
	if deps.Chain == nil || deps.Pool == nil {
		return nil, fmt.Errorf("engine: chain and pool are required")
	}

	registry, err := NewRegistry(deps.Adapters...)
	if err != nil {
		return nil, err
	}

	cache := NewQueryCache(cfg.CacheSize, cfg.PendingTTL, cfg.NegativeTTL, deps.Metrics)
	resolver := NewBlockResolver(deps.Chain)
	rates := NewExchangeRateInteractor(deps.Pool, resolver, cache, cfg.StakedDecimals)

	engine := &Engine{
		cache:    cache,
		registry: registry,
		resolver: resolver,
		notifier: NewNotifier(deps.Metrics),
		rates:    rates,
		holdings: NewHoldingsInteractor(registry, resolver, cache, cfg.MaxParallelAdapters,
			cfg.StakedDecimals, cfg.UnderlyingDecimals, deps.Metrics),
		yields: NewYieldInteractor(rates, resolver, cache, deps.YieldSources, cfg.SuppliedSource,
			cfg.APRLookbackBlocks, cfg.BlockTime),
		unstake: NewUnstakeInteractor(rates, resolver, deps.Quoter,
			NewRouteSelector(cfg.StakedDecimals, cfg.UnderlyingDecimals, cfg.QuoteMaxAge),
			cfg.StakedJettonMaster, cfg.UnderlyingToken, deps.Metrics),
	}
	return engine, nil
}

func (e *Engine) Rate(ctx context.Context, block domain.BlockReference) (domain.ExchangeRate, error) {
	return e.rates.ComputeRate(ctx, block)
}

func (e *Engine) Holdings(ctx context.Context, address domain.Address, block domain.BlockReference, opts AggregateOptions) (domain.AggregateHoldings, error) {
	return e.holdings.Aggregate(ctx, address, block, opts)
}

func (e *Engine) Yield(ctx context.Context, protocol domain.ProtocolID) (domain.CompositeYield, error) {
	if _, err := e.registry.Get(protocol); err != nil {
		return domain.CompositeYield{}, err
	}
	return e.yields.CompositeYield(ctx, protocol)
}

func (e *Engine) UnstakeQuote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) (domain.UnstakeQuote, error) {
	return e.unstake.Quote(ctx, amount, taker)
}

func (e *Engine) NewQuoteSession(taker domain.Address) *QuoteSession {
	return NewQuoteSession(e.unstake, taker)
}

func (e *Engine) Protocols() []domain.ProtocolID {
	return e.registry.Protocols()
}

// Snapshot reads the exchange rate and holdings against the same head. A rate
// failure degrades to an unavailable rate; only head resolution or
// cancellation fail the call.
func (e *Engine) Snapshot(ctx context.Context, address domain.Address, block domain.BlockReference, opts AggregateOptions) (Snapshot, error) {
	resolved, err := e.resolver.Resolve(ctx, block)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Address: address, Block: resolved}

	rate, err := e.rates.RateAt(ctx, resolved)
	if err != nil {
		if isCancellation(err) {
			return Snapshot{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
		}
		log.Printf("🟡 exchange rate unavailable at %v - %v\n", resolved, err.Error())
		rate = RateFromTotals(domain.ZeroFixedPoint(0), domain.ZeroFixedPoint(0), e.rates.stakedDecimals, resolved)
		snapshot.RateErr = err
	}
	snapshot.Rate = rate

	holdings, err := e.holdings.AggregateAt(ctx, address, resolved, opts)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.Holdings = holdings
	return snapshot, nil
}

// Refresh drops the volatile cache entries of address and of the shared
// treasury reads, recomputes the snapshot and pushes it to subscribers.
func (e *Engine) Refresh(ctx context.Context, address domain.Address, block domain.BlockReference) (Snapshot, error) {
	e.cache.InvalidateVolatile(address, "")

	snapshot, err := e.Snapshot(ctx, address, block, AggregateOptions{})
	if err != nil {
		return Snapshot{}, err
	}
	e.notifier.Publish(address, block, snapshot)
	return snapshot, nil
}

func (e *Engine) Subscribe(address domain.Address, block domain.BlockReference) (<-chan Snapshot, func()) {
	return e.notifier.Subscribe(address, block)
}

func (e *Engine) Close() {
	e.cache.Close()
}
