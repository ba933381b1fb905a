package adapter

import (
	"context"

	"dashboard/domain"
)

// PositionIndex is an off-chain index of lending positions.
type PositionIndex interface {
	Position(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Position, error)
}

// LendingAdapter reports the staked token a user supplied to a lending market.
type LendingAdapter struct {
	guard
	index PositionIndex
}

func NewLendingAdapter(index PositionIndex, cfg domain.AdapterConfig, decimals Decimals) *LendingAdapter {
	return &LendingAdapter{
		guard: guard{protocol: cfg.Protocol, deployedAt: cfg.DeployedAt, decimals: decimals},
		index: index,
	}
}

func (a *LendingAdapter) FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error) {
	if a.notDeployed(block) {
		return a.zero(), nil
	}

	position, err := a.index.Position(ctx, address, block)
	if err != nil {
		return domain.Holding{}, err
	}
	return position.Holding(a.protocol, a.decimals.Staked, a.decimals.Underlying), nil
}
