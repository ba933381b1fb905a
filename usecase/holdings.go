package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"dashboard/domain"
	"dashboard/interface/exporter"

	"golang.org/x/sync/errgroup"
)

const (
	QueryHolding = "holding"
)

type AggregateOptions struct {
	// AllowPartial returns the adapters that finished before cancellation
	// instead of failing the whole call.
	AllowPartial bool
}

type HoldingsInteractor struct {
	registry           *Registry
	resolver           *BlockResolver
	cache              *QueryCache
	maxParallel        int
	stakedDecimals     uint8
	underlyingDecimals uint8
	metrics            *exporter.Metrics
}

func NewHoldingsInteractor(registry *Registry,
	resolver *BlockResolver,
	cache *QueryCache,
	maxParallel int,
	stakedDecimals uint8,
	underlyingDecimals uint8,
	metrics *exporter.Metrics) *HoldingsInteractor {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	interactor := &HoldingsInteractor{
		registry:           registry,
		resolver:           resolver,
		cache:              cache,
		maxParallel:        maxParallel,
		stakedDecimals:     stakedDecimals,
		underlyingDecimals: underlyingDecimals,
		metrics:            metrics,
	}
	return interactor
}

// Aggregate runs every registered adapter for address at block.
func (interactor *HoldingsInteractor) Aggregate(ctx context.Context, address domain.Address, block domain.BlockReference, opts AggregateOptions) (domain.AggregateHoldings, error) {
	return interactor.AggregateWith(ctx, address, block, interactor.registry.All(), opts)
}

// AggregateWith fans out to adapters on a bounded pool, waits for all of them
// and sums the successful ones. An adapter error never fails the aggregate;
// it becomes a zero Holding carrying the error.
func (interactor *HoldingsInteractor) AggregateWith(ctx context.Context, address domain.Address, block domain.BlockReference, adapters []ProtocolAdapter, opts AggregateOptions) (domain.AggregateHoldings, error) {
	resolved, err := interactor.resolver.Resolve(ctx, block)
	if err != nil {
		return domain.AggregateHoldings{}, err
	}
	return interactor.aggregateAt(ctx, address, resolved, adapters, opts)
}

// AggregateAt is Aggregate for a block that was already resolved, so callers
// can pair holdings with other reads at the same head.
func (interactor *HoldingsInteractor) AggregateAt(ctx context.Context, address domain.Address, resolved domain.ResolvedBlock, opts AggregateOptions) (domain.AggregateHoldings, error) {
	return interactor.aggregateAt(ctx, address, resolved, interactor.registry.All(), opts)
}

func (interactor *HoldingsInteractor) aggregateAt(ctx context.Context, address domain.Address, resolved domain.ResolvedBlock, adapters []ProtocolAdapter, opts AggregateOptions) (domain.AggregateHoldings, error) {
	results := make([]domain.Holding, len(adapters))

	g := new(errgroup.Group)
	g.SetLimit(interactor.maxParallel)
	for i, adapter := range adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = interactor.cancelled(adapter.Protocol(), ctx.Err())
				return nil
			}
			results[i] = interactor.fetch(ctx, adapter, address, resolved)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		if !opts.AllowPartial {
			return domain.AggregateHoldings{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
		}
		aggregate := domain.NewAggregateHoldings(resolved, results, interactor.stakedDecimals, interactor.underlyingDecimals)
		aggregate.Partial = true
		return aggregate, nil
	}

	return domain.NewAggregateHoldings(resolved, results, interactor.stakedDecimals, interactor.underlyingDecimals), nil
}

func (interactor *HoldingsInteractor) fetch(ctx context.Context, adapter ProtocolAdapter, address domain.Address, resolved domain.ResolvedBlock) domain.Holding {
	protocol := adapter.Protocol()
	key := domain.NewBlockKey(QueryHolding, resolved, address, protocol.String())

	holding, err := Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(resolved), func(ctx context.Context) (domain.Holding, error) {
		start := time.Now()
		h, err := adapter.FetchHolding(ctx, address, resolved)
		interactor.metrics.ObserveAdapter(protocol.String(), time.Since(start))
		return h, err
	})

	if err != nil {
		if isCancellation(err) {
			return interactor.cancelled(protocol, err)
		}
		log.Printf("🔴 fetching %v holding [address: %v, block: %v] - %v\n", protocol, address, resolved, err.Error())
		interactor.metrics.AdapterError(protocol.String())
		return domain.FailedHolding(protocol, interactor.stakedDecimals, interactor.underlyingDecimals,
			&domain.ProtocolError{Protocol: protocol, Err: err})
	}

	holding.Source = protocol
	return holding
}

func (interactor *HoldingsInteractor) cancelled(protocol domain.ProtocolID, cause error) domain.Holding {
	return domain.FailedHolding(protocol, interactor.stakedDecimals, interactor.underlyingDecimals,
		fmt.Errorf("%v: %w: %v", protocol, domain.ErrorCancelled, cause))
}
