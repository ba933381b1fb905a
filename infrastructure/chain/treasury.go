package chain

import (
	"context"
	"fmt"

	"dashboard/domain"

	"github.com/tonkeeper/tongo/tlb"
)

const (
	MethodTreasuryState     = "get_treasury_state"
	MethodMaxBurnableTokens = "get_max_burnable_tokens"
)

type getMethodRunner interface {
	RunGetMethod(ctx context.Context, contract domain.Address, method string, block domain.ResolvedBlock) (tlb.VmStack, error)
}

// Treasury is the staking pool backed by the treasury contract.
type Treasury struct {
	chain              getMethodRunner
	address            domain.Address
	underlyingDecimals uint8
	stakedDecimals     uint8
}

func NewTreasury(chain getMethodRunner, address domain.Address, stakedDecimals uint8, underlyingDecimals uint8) *Treasury {
	return &Treasury{
		chain:              chain,
		address:            address,
		underlyingDecimals: underlyingDecimals,
		stakedDecimals:     stakedDecimals,
	}
}

func (t *Treasury) Address() domain.Address {
	return t.address
}

// State runs get_treasury_state once; TotalCoins is the underlying held by
// the treasury and TotalTokens the staked-token supply.
func (t *Treasury) State(ctx context.Context, block domain.ResolvedBlock) (domain.TreasuryState, error) {
	stack, err := t.chain.RunGetMethod(ctx, t.address, MethodTreasuryState, block)
	if err != nil {
		return domain.TreasuryState{}, err
	}
	return ParseTreasuryState(stack, t.stakedDecimals, t.underlyingDecimals)
}

// InstantBurnBudget is how many staked tokens can be burned without waiting
// for the next round.
func (t *Treasury) InstantBurnBudget(ctx context.Context, block domain.ResolvedBlock) (domain.FixedPoint, error) {
	stack, err := t.chain.RunGetMethod(ctx, t.address, MethodMaxBurnableTokens, block)
	if err != nil {
		return domain.FixedPoint{}, err
	}
	values := StackInts(stack)
	if len(values) < 1 || values[0] == nil {
		return domain.FixedPoint{}, fmt.Errorf("%w: %v", domain.ErrorMalformedResponse, MethodMaxBurnableTokens)
	}
	return domain.NewFixedPoint(values[0], t.stakedDecimals), nil
}

// ParseTreasuryState reads the leading integer fields of get_treasury_state:
// total coins, total tokens, total staking, total unstaking, total validator
// stake, then the stopped flag. Entry 5 holds the governor cell and is skipped.
func ParseTreasuryState(stack tlb.VmStack, stakedDecimals uint8, underlyingDecimals uint8) (domain.TreasuryState, error) {
	if len(stack) < 7 {
		return domain.TreasuryState{}, fmt.Errorf("%w: %v entries", domain.ErrorInvalidTreasuryState, len(stack))
	}

	values := StackInts(stack[:7])
	for i, v := range values {
		if i == 5 {
			continue
		}
		if v == nil {
			return domain.TreasuryState{}, fmt.Errorf("%w: entry %v is %v", domain.ErrorInvalidTreasuryState, i, stack[i].SumType)
		}
		if v.Sign() < 0 {
			return domain.TreasuryState{}, fmt.Errorf("%w: entry %v is negative", domain.ErrorInvalidTreasuryState, i)
		}
	}

	return domain.TreasuryState{
		TotalCoins:          domain.NewFixedPoint(values[0], underlyingDecimals),
		TotalTokens:         domain.NewFixedPoint(values[1], stakedDecimals),
		TotalStaking:        domain.NewFixedPoint(values[2], underlyingDecimals),
		TotalUnstaking:      domain.NewFixedPoint(values[3], stakedDecimals),
		TotalValidatorStake: domain.NewFixedPoint(values[4], underlyingDecimals),
		Stopped:             values[6].Sign() != 0,
	}, nil
}
