package adapter

import (
	"context"

	"dashboard/domain"
)

// VaultIndex returns the latest indexed vault position at or below block.
type VaultIndex interface {
	LatestPosition(ctx context.Context, vault domain.Address, owner domain.Address, block uint64) (domain.Position, bool, error)
}

type VaultAdapter struct {
	guard
	index VaultIndex
	vault domain.Address
}

func NewVaultAdapter(index VaultIndex, cfg domain.AdapterConfig, decimals Decimals) *VaultAdapter {
	return &VaultAdapter{
		guard: guard{protocol: cfg.Protocol, deployedAt: cfg.DeployedAt, decimals: decimals},
		index: index,
		vault: cfg.Address,
	}
}

func (a *VaultAdapter) FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error) {
	if a.notDeployed(block) {
		return a.zero(), nil
	}

	position, found, err := a.index.LatestPosition(ctx, a.vault, address, block.Number)
	if err != nil {
		return domain.Holding{}, err
	}
	if !found {
		return a.zero(), nil
	}
	return position.Holding(a.protocol, a.decimals.Staked, a.decimals.Underlying), nil
}
