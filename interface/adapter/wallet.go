package adapter

import (
	"context"

	"dashboard/domain"
)

// WalletAdapter reports the staked token held directly in the user's jetton wallet.
type WalletAdapter struct {
	guard
	chain  JettonReader
	master domain.Address
}

func NewWalletAdapter(chain JettonReader, master domain.Address, cfg domain.AdapterConfig, decimals Decimals) *WalletAdapter {
	return &WalletAdapter{
		guard:  guard{protocol: cfg.Protocol, deployedAt: cfg.DeployedAt, decimals: decimals},
		chain:  chain,
		master: master,
	}
}

func (a *WalletAdapter) FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error) {
	if a.notDeployed(block) {
		return a.zero(), nil
	}

	wallet, err := a.chain.JettonWallet(ctx, a.master, address, block)
	if err != nil {
		return domain.Holding{}, err
	}
	balance, err := a.chain.JettonBalance(ctx, wallet, block)
	if err != nil {
		return domain.Holding{}, err
	}

	holding := a.zero()
	holding.StakedTokenAmount = domain.NewFixedPoint(balance, a.decimals.Staked)
	return holding, nil
}
