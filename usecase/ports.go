package usecase

import (
	"context"

	"dashboard/domain"
)

// ChainReader is the head lookup the engine needs from the chain.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// StakingPool reads the staking treasury at a block. Total assets and total
// supply both come from one State read.
type StakingPool interface {
	State(ctx context.Context, block domain.ResolvedBlock) (domain.TreasuryState, error)
	InstantBurnBudget(ctx context.Context, block domain.ResolvedBlock) (domain.FixedPoint, error)
	Address() domain.Address
}

// ProtocolAdapter reports a user's staked-token exposure inside one protocol.
// Implementations perform a single external call pattern and keep no cache.
// A zero balance, or a block before the protocol was deployed, is a zero
// Holding and not an error.
type ProtocolAdapter interface {
	Protocol() domain.ProtocolID
	FetchHolding(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Holding, error)
}

// SwapQuoter fetches a live swap quote selling amount of sell for buy.
type SwapQuoter interface {
	GetQuote(ctx context.Context, sell, buy domain.Address, amount domain.FixedPoint, taker domain.Address) (domain.Quote, error)
}

// YieldSource provides off-chain yield components for a protocol.
type YieldSource interface {
	Name() string
	Components(ctx context.Context, protocol domain.ProtocolID) ([]domain.YieldComponent, error)
}
