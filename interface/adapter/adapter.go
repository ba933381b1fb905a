package adapter

import (
	"context"
	"math/big"

	"dashboard/domain"
)

// JettonReader is the chain access the on-chain adapters need.
type JettonReader interface {
	RunIntGetMethod(ctx context.Context, contract domain.Address, method string, block domain.ResolvedBlock) ([]*big.Int, error)
	JettonWallet(ctx context.Context, master domain.Address, owner domain.Address, block domain.ResolvedBlock) (domain.Address, error)
	JettonBalance(ctx context.Context, wallet domain.Address, block domain.ResolvedBlock) (*big.Int, error)
}

// Decimals are the precisions adapters report holdings in.
type Decimals struct {
	Staked     uint8
	Underlying uint8
}

// guard embeds the protocol identity and the pre-deployment check shared by
// every adapter.
type guard struct {
	protocol   domain.ProtocolID
	deployedAt uint64
	decimals   Decimals
}

func (g guard) Protocol() domain.ProtocolID {
	return g.protocol
}

// notDeployed reports whether block predates the protocol. Pending reads are
// always at the head.
func (g guard) notDeployed(block domain.ResolvedBlock) bool {
	return !block.Pending && g.deployedAt > 0 && block.Number < g.deployedAt
}

func (g guard) zero() domain.Holding {
	return domain.ZeroHolding(g.protocol, g.decimals.Staked, g.decimals.Underlying)
}
