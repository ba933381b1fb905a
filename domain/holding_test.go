package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAggregateHoldingsSkipsFailures(t *testing.T) {
	failure := errors.New("endpoint down")
	holdings := []Holding{
		{StakedTokenAmount: NewFixedPointInt64(100, 9), UnderlyingTokenAmount: NewFixedPointInt64(5, 9), Source: ProtocolWallet},
		FailedHolding(ProtocolLending, 9, 9, failure),
		{StakedTokenAmount: NewFixedPointInt64(50, 9), UnderlyingTokenAmount: NewFixedPointInt64(7, 9), Source: ProtocolDex},
	}

	aggregate := NewAggregateHoldings(ResolvedBlock{Number: 3, Finalized: true}, holdings, 9, 9)

	assert.Equal(t, "0.000000150", aggregate.Total.StakedTokenAmount.String())
	assert.Equal(t, "0.000000012", aggregate.Total.UnderlyingTokenAmount.String())
	require.Len(t, aggregate.PerProtocol, 3)
	assert.Equal(t, failure, aggregate.PerProtocol[ProtocolLending].Err)
	assert.True(t, aggregate.PerProtocol[ProtocolLending].StakedTokenAmount.IsZero())
	assert.Equal(t, []ProtocolID{ProtocolLending}, aggregate.Failures())
}

func TestParseProtocolID(t *testing.T) {
	p, err := ParseProtocolID(" DEX ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolDex, p)
	assert.Equal(t, "dex", p.String())

	_, err = ParseProtocolID("bridge")
	assert.True(t, errors.Is(err, ErrorUnknownProtocol))

	assert.Equal(t, []ProtocolID{ProtocolWallet, ProtocolDex, ProtocolLending, ProtocolVault}, AllProtocols())
}

func TestPositionHolding(t *testing.T) {
	position := Position{Staked: NewFixedPointInt64(15, 1), Underlying: ZeroFixedPoint(0)}
	holding := position.Holding(ProtocolVault, 9, 9)

	assert.Equal(t, "1.500000000", holding.StakedTokenAmount.String())
	assert.Equal(t, "0.000000000", holding.UnderlyingTokenAmount.String())
	assert.Equal(t, ProtocolVault, holding.Source)
	assert.False(t, holding.Failed())
}

func TestExchangeRateToUnderlying(t *testing.T) {
	rate := ExchangeRate{PreciseRate: NewFixedPointInt64(1_500_000_000, 9)}
	staked := NewFixedPointInt64(2_000_000_000, 9)

	assert.Equal(t, "3.000000000", rate.ToUnderlying(staked, 9).String())
	assert.False(t, rate.Unavailable())
	assert.True(t, ExchangeRate{PreciseRate: ZeroFixedPoint(9)}.Unavailable())
}

func TestProtocolErrorMatchesUnavailable(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&ProtocolError{Protocol: ProtocolDex, Err: cause})

	assert.True(t, errors.Is(err, ErrorProtocolUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "dex: timeout", err.Error())
}
