package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"dashboard/domain"

	"github.com/shopspring/decimal"
)

const (
	QueryYieldComponents = "yieldComponents"

	AppreciationTitle = "Staking appreciation"

	secondsPerYear = 365 * 24 * 60 * 60
)

// Compose sums component values into the composite total. Components are
// additive percentage contributions over a short horizon, so they are added,
// not compounded, and each stays attributable in the breakdown.
// At most one component may declare TotalSupplied.
func Compose(components []domain.YieldComponent) (domain.CompositeYield, error) {
	result := domain.CompositeYield{
		Total:      decimal.Zero,
		Components: make([]domain.YieldComponent, len(components)),
	}
	copy(result.Components, components)

	supplier := ""
	for _, component := range components {
		result.Total = result.Total.Add(component.Value)
		if component.TotalSupplied == nil {
			continue
		}
		if result.TotalSupplied != nil {
			return domain.CompositeYield{}, fmt.Errorf("%w: %q and %q", domain.ErrorConflictingSupply, supplier, component.Title)
		}
		supplied := *component.TotalSupplied
		result.TotalSupplied = &supplied
		supplier = component.Title
	}
	return result, nil
}

type YieldInteractor struct {
	rates          *ExchangeRateInteractor
	resolver       *BlockResolver
	cache          *QueryCache
	sources        []YieldSource
	suppliedSource map[domain.ProtocolID]string
	lookbackBlocks uint64
	blockTime      time.Duration
}

func NewYieldInteractor(rates *ExchangeRateInteractor,
	resolver *BlockResolver,
	cache *QueryCache,
	sources []YieldSource,
	suppliedSource map[domain.ProtocolID]string,
	lookbackBlocks uint64,
	blockTime time.Duration) *YieldInteractor {
	if suppliedSource == nil {
		suppliedSource = make(map[domain.ProtocolID]string)
	}
	return &YieldInteractor{
		rates:          rates,
		resolver:       resolver,
		cache:          cache,
		sources:        sources,
		suppliedSource: suppliedSource,
		lookbackBlocks: lookbackBlocks,
		blockTime:      blockTime,
	}
}

// CompositeYield gathers the appreciation APR and every source's components
// for protocol and composes them. Failing sources are left out.
func (interactor *YieldInteractor) CompositeYield(ctx context.Context, protocol domain.ProtocolID) (domain.CompositeYield, error) {
	components := make([]domain.YieldComponent, 0, 4)

	appreciation, err := interactor.AppreciationAPR(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.CompositeYield{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
		}
		log.Printf("🟡 appreciation APR unavailable - %v\n", err.Error())
	} else if appreciation != nil {
		components = append(components, *appreciation)
	}

	for _, source := range interactor.sources {
		found, err := interactor.sourceComponents(ctx, source, protocol)
		if err != nil {
			if isCancellation(err) {
				return domain.CompositeYield{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
			}
			log.Printf("🟡 yield source %v unavailable for %v - %v\n", source.Name(), protocol, err.Error())
			continue
		}
		components = append(components, found...)
	}

	authoritative := interactor.suppliedSource[protocol]
	for i := range components {
		if components[i].TotalSupplied != nil && components[i].Title != authoritative {
			components[i].TotalSupplied = nil
		}
	}

	return Compose(components)
}

func (interactor *YieldInteractor) sourceComponents(ctx context.Context, source YieldSource, protocol domain.ProtocolID) ([]domain.YieldComponent, error) {
	block := domain.ResolvedBlock{Pending: true}
	key := domain.NewBlockKey(QueryYieldComponents, block, "", source.Name()+":"+protocol.String())
	return Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(block), func(ctx context.Context) ([]domain.YieldComponent, error) {
		return source.Components(ctx, protocol)
	})
}

// AppreciationAPR annualizes the exchange-rate growth over the lookback
// window. It returns nil when there is no usable history.
func (interactor *YieldInteractor) AppreciationAPR(ctx context.Context) (*domain.YieldComponent, error) {
	now, err := interactor.resolver.Resolve(ctx, domain.LatestBlock())
	if err != nil {
		return nil, err
	}
	if interactor.lookbackBlocks == 0 || now.Number <= interactor.lookbackBlocks {
		return nil, nil
	}

	current, err := interactor.rates.RateAt(ctx, now)
	if err != nil {
		return nil, err
	}
	past, err := interactor.rates.RateAt(ctx, domain.BlockAt(now.Number-interactor.lookbackBlocks).Resolve(now.Number))
	if err != nil {
		return nil, err
	}

	apr, ok := AnnualizedGrowth(past.PreciseRate, current.PreciseRate, time.Duration(interactor.lookbackBlocks)*interactor.blockTime)
	if !ok {
		return nil, nil
	}
	return &domain.YieldComponent{
		Title:   AppreciationTitle,
		Value:   apr,
		Kind:    domain.YieldBearing,
		Remarks: fmt.Sprintf("exchange rate growth over the last %d blocks", interactor.lookbackBlocks),
	}, nil
}

// AnnualizedGrowth returns (to/from - 1) * year/elapsed as a percentage,
// rounded to 4 places. The growth ratio is computed in FixedPoint.
func AnnualizedGrowth(from, to domain.FixedPoint, elapsed time.Duration) (decimal.Decimal, bool) {
	if from.Sign() <= 0 || to.Sign() <= 0 || elapsed <= 0 {
		return decimal.Zero, false
	}
	const precision = 18
	growth, err := to.Sub(from).Div(from, precision)
	if err != nil {
		return decimal.Zero, false
	}
	ratio := decimal.NewFromBigInt(growth.Raw(), -precision)
	seconds := decimal.NewFromFloat(elapsed.Seconds())
	return ratio.Mul(decimal.NewFromInt(secondsPerYear)).Div(seconds).Mul(decimal.NewFromInt(100)).Round(4), true
}
