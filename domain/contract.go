package domain

import (
	"fmt"
)

var (
	ErrorInvalidTreasuryState = fmt.Errorf("invalid treasury state")
)

// TreasuryState is the subset of the staking treasury's get_treasury_state
// result the dashboard needs. TotalCoins is the underlying asset held by the
// treasury, TotalTokens the staked-token supply.
type TreasuryState struct {
	TotalCoins          FixedPoint
	TotalTokens         FixedPoint
	TotalStaking        FixedPoint
	TotalUnstaking      FixedPoint
	TotalValidatorStake FixedPoint
	Stopped             bool
}

// ExchangeRate is the staked-to-underlying conversion at one block.
// Rate is for display only; PreciseRate is authoritative for any conversion.
// A zero PreciseRate is the "unavailable" sentinel (zero supply).
type ExchangeRate struct {
	Rate            float64
	PreciseRate     FixedPoint
	ComputedAtBlock uint64
	Pending         bool
}

func (r ExchangeRate) Unavailable() bool {
	return r.PreciseRate.IsZero()
}

// ToUnderlying converts a staked-token amount using PreciseRate.
func (r ExchangeRate) ToUnderlying(staked FixedPoint, underlyingDecimals uint8) FixedPoint {
	converted, err := staked.MulDiv(r.PreciseRate, OneFixedPoint(r.PreciseRate.Decimals()), underlyingDecimals)
	if err != nil {
		return ZeroFixedPoint(underlyingDecimals)
	}
	return converted
}
