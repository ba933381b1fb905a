package usecase

import (
	"context"

	"dashboard/domain"
)

const (
	QueryTreasuryState = "treasuryState"
	QueryTotalAssets   = "totalAssets"
	QueryTotalSupply   = "totalSupply"
	QueryBurnBudget    = "burnBudget"
)

type ExchangeRateInteractor struct {
	pool           StakingPool
	resolver       *BlockResolver
	cache          *QueryCache
	stakedDecimals uint8
}

func NewExchangeRateInteractor(pool StakingPool, resolver *BlockResolver, cache *QueryCache, stakedDecimals uint8) *ExchangeRateInteractor {
	return &ExchangeRateInteractor{
		pool:           pool,
		resolver:       resolver,
		cache:          cache,
		stakedDecimals: stakedDecimals,
	}
}

// ComputeRate reads total assets and total supply at block, each through its
// own cache slot backed by a single treasury state read, and derives the
// exchange rate.
func (interactor *ExchangeRateInteractor) ComputeRate(ctx context.Context, block domain.BlockReference) (domain.ExchangeRate, error) {
	resolved, err := interactor.resolver.Resolve(ctx, block)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return interactor.RateAt(ctx, resolved)
}

func (interactor *ExchangeRateInteractor) RateAt(ctx context.Context, resolved domain.ResolvedBlock) (domain.ExchangeRate, error) {
	assets, err := interactor.TotalAssets(ctx, resolved)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	supply, err := interactor.TotalSupply(ctx, resolved)
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return RateFromTotals(assets, supply, interactor.stakedDecimals, resolved), nil
}

func (interactor *ExchangeRateInteractor) TotalAssets(ctx context.Context, resolved domain.ResolvedBlock) (domain.FixedPoint, error) {
	key := domain.NewBlockKey(QueryTotalAssets, resolved, "", string(interactor.pool.Address()))
	return Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(resolved), func(ctx context.Context) (domain.FixedPoint, error) {
		state, err := interactor.state(ctx, resolved)
		if err != nil {
			return domain.FixedPoint{}, err
		}
		return state.TotalCoins, nil
	})
}

func (interactor *ExchangeRateInteractor) TotalSupply(ctx context.Context, resolved domain.ResolvedBlock) (domain.FixedPoint, error) {
	key := domain.NewBlockKey(QueryTotalSupply, resolved, "", string(interactor.pool.Address()))
	return Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(resolved), func(ctx context.Context) (domain.FixedPoint, error) {
		state, err := interactor.state(ctx, resolved)
		if err != nil {
			return domain.FixedPoint{}, err
		}
		return state.TotalTokens, nil
	})
}

func (interactor *ExchangeRateInteractor) state(ctx context.Context, resolved domain.ResolvedBlock) (domain.TreasuryState, error) {
	key := domain.NewBlockKey(QueryTreasuryState, resolved, "", string(interactor.pool.Address()))
	return Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(resolved), func(ctx context.Context) (domain.TreasuryState, error) {
		return interactor.pool.State(ctx, resolved)
	})
}

// BurnBudget is the amount of staked tokens the treasury can redeem without
// queueing at block.
func (interactor *ExchangeRateInteractor) BurnBudget(ctx context.Context, resolved domain.ResolvedBlock) (domain.FixedPoint, error) {
	key := domain.NewBlockKey(QueryBurnBudget, resolved, "", string(interactor.pool.Address()))
	return Cached(ctx, interactor.cache, key, interactor.cache.PolicyFor(resolved), func(ctx context.Context) (domain.FixedPoint, error) {
		return interactor.pool.InstantBurnBudget(ctx, resolved)
	})
}

// RateFromTotals computes assets * ONE / supply floored to decimals.
// A zero supply yields a zero rate: the treasury is in an unexpected state
// and a 1:1 rate would be a lie.
func RateFromTotals(assets, supply domain.FixedPoint, decimals uint8, block domain.ResolvedBlock) domain.ExchangeRate {
	rate := domain.ExchangeRate{
		PreciseRate:     domain.ZeroFixedPoint(decimals),
		ComputedAtBlock: block.Number,
		Pending:         block.Pending,
	}
	if supply.Sign() <= 0 {
		return rate
	}

	precise, err := assets.MulDiv(domain.OneFixedPoint(decimals), supply, decimals)
	if err != nil {
		return rate
	}
	rate.PreciseRate = precise
	rate.Rate = precise.Float64()
	return rate
}
