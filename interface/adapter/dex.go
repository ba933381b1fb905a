package adapter

import (
	"context"
	"fmt"
	"math/big"

	"dashboard/domain"
)

const (
	MethodPoolData   = "get_pool_data"
	MethodJettonData = "get_jetton_data"
)

// DexAdapter reports the user's share of a staked/underlying liquidity pool.
// The pool's first reserve is the staked token, the second the underlying.
type DexAdapter struct {
	guard
	chain    JettonReader
	pool     domain.Address
	lpMaster domain.Address
}

func NewDexAdapter(chain JettonReader, cfg domain.AdapterConfig, decimals Decimals) *DexAdapter {
	return &DexAdapter{
		guard:    guard{protocol: cfg.Protocol, deployedAt: cfg.DeployedAt, decimals: decimals},
		chain:    chain,
		pool:     cfg.Address,
		lpMaster: cfg.LPMaster,
	}
}

func (a *DexAdapter) FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error) {
	if a.notDeployed(block) {
		return a.zero(), nil
	}

	lpWallet, err := a.chain.JettonWallet(ctx, a.lpMaster, address, block)
	if err != nil {
		return domain.Holding{}, err
	}
	lpBalance, err := a.chain.JettonBalance(ctx, lpWallet, block)
	if err != nil {
		return domain.Holding{}, err
	}
	if lpBalance.Sign() == 0 {
		return a.zero(), nil
	}

	reserves, err := a.chain.RunIntGetMethod(ctx, a.pool, MethodPoolData, block)
	if err != nil {
		return domain.Holding{}, err
	}
	if len(reserves) < 2 || reserves[0] == nil || reserves[1] == nil {
		return domain.Holding{}, fmt.Errorf("%w: %v of %v", domain.ErrorMalformedResponse, MethodPoolData, a.pool)
	}

	jettonData, err := a.chain.RunIntGetMethod(ctx, a.lpMaster, MethodJettonData, block)
	if err != nil {
		return domain.Holding{}, err
	}
	if len(jettonData) < 1 || jettonData[0] == nil {
		return domain.Holding{}, fmt.Errorf("%w: %v of %v", domain.ErrorMalformedResponse, MethodJettonData, a.lpMaster)
	}

	return PoolShare(a.protocol, lpBalance, reserves[0], reserves[1], jettonData[0], a.decimals)
}

// PoolShare returns lp/lpSupply of both reserves, each as a single widened
// mul-div so no intermediate is truncated.
func PoolShare(protocol domain.ProtocolID, lp, reserveStaked, reserveUnderlying, lpSupply *big.Int, decimals Decimals) (domain.Holding, error) {
	share := domain.NewFixedPoint(lp, 0)
	supply := domain.NewFixedPoint(lpSupply, 0)
	if supply.Sign() <= 0 || share.Cmp(supply) > 0 {
		return domain.Holding{}, fmt.Errorf("%w: lp balance %v with supply %v", domain.ErrorMalformedResponse, lp, lpSupply)
	}

	staked, err := share.MulDiv(domain.NewFixedPoint(reserveStaked, decimals.Staked), supply, decimals.Staked)
	if err != nil {
		return domain.Holding{}, err
	}
	underlying, err := share.MulDiv(domain.NewFixedPoint(reserveUnderlying, decimals.Underlying), supply, decimals.Underlying)
	if err != nil {
		return domain.Holding{}, err
	}

	return domain.Holding{
		StakedTokenAmount:     staked,
		UnderlyingTokenAmount: underlying,
		Source:                protocol,
	}, nil
}
