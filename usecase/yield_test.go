package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"dashboard/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComposeAdditive(t *testing.T) {
	composite, err := Compose([]domain.YieldComponent{
		{Title: "Supply APY", Value: pct("5"), Kind: domain.YieldNatural},
		{Title: "Incentive APR", Value: pct("2"), Kind: domain.YieldIncentive},
	})
	require.NoError(t, err)

	assert.True(t, composite.Total.Equal(pct("7")), composite.Total.String())
	assert.Len(t, composite.Components, 2)
	assert.Equal(t, "Supply APY", composite.Components[0].Title)
	assert.Nil(t, composite.TotalSupplied)
}

func TestComposeEmpty(t *testing.T) {
	composite, err := Compose(nil)
	require.NoError(t, err)
	assert.True(t, composite.Total.IsZero())
	assert.Empty(t, composite.Components)
}

func TestComposeTotalSupplied(t *testing.T) {
	supplied := fixed("1000", 9)
	composite, err := Compose([]domain.YieldComponent{
		{Title: "Supply APY", Value: pct("3.5"), TotalSupplied: &supplied},
		{Title: "Incentive APR", Value: pct("1.25")},
	})
	require.NoError(t, err)
	require.NotNil(t, composite.TotalSupplied)
	assert.Equal(t, "1000.000000000", composite.TotalSupplied.String())
	assert.True(t, composite.Total.Equal(pct("4.75")))
}

func TestComposeConflictingSupply(t *testing.T) {
	a, b := fixed("1", 9), fixed("2", 9)
	_, err := Compose([]domain.YieldComponent{
		{Title: "A", Value: pct("1"), TotalSupplied: &a},
		{Title: "B", Value: pct("1"), TotalSupplied: &b},
	})
	assert.ErrorIs(t, err, domain.ErrorConflictingSupply)
}

func TestAnnualizedGrowth(t *testing.T) {
	year := 365 * 24 * time.Hour

	apr, ok := AnnualizedGrowth(fixed("1", 18), fixed("1.001", 18), year)
	require.True(t, ok)
	assert.True(t, apr.Equal(pct("0.1")), apr.String())

	apr, ok = AnnualizedGrowth(fixed("1", 18), fixed("1.01", 18), year/2)
	require.True(t, ok)
	assert.True(t, apr.Equal(pct("2")), apr.String())

	_, ok = AnnualizedGrowth(domain.ZeroFixedPoint(18), fixed("1", 18), year)
	assert.False(t, ok)
	_, ok = AnnualizedGrowth(fixed("1", 18), fixed("1", 18), 0)
	assert.False(t, ok)
}

func newYieldInteractor(t *testing.T, head uint64, sources []YieldSource, supplied map[domain.ProtocolID]string) *YieldInteractor {
	pool := newFakePool(fixed("1.001", 9), fixed("1", 9))
	pool.assets[900] = fixed("1", 9)

	cache := newTestCache(t)
	resolver := NewBlockResolver(&fakeChain{head: head})
	rates := NewExchangeRateInteractor(pool, resolver, cache, 18)
	return NewYieldInteractor(rates, resolver, cache, sources, supplied, 100, 315360*time.Second)
}

func TestCompositeYield(t *testing.T) {
	supplyA, supplyB := fixed("5000", 9), fixed("7000", 9)
	source := &fakeYieldSource{components: []domain.YieldComponent{
		{Title: "Supply APY", Value: pct("3"), Kind: domain.YieldNatural, TotalSupplied: &supplyA},
		{Title: "Boost", Value: pct("1"), Kind: domain.YieldIncentive, TotalSupplied: &supplyB},
	}}
	interactor := newYieldInteractor(t, 1000, []YieldSource{source}, map[domain.ProtocolID]string{domain.ProtocolLending: "Supply APY"})

	composite, err := interactor.CompositeYield(context.Background(), domain.ProtocolLending)
	require.NoError(t, err)

	require.Len(t, composite.Components, 3)
	assert.Equal(t, AppreciationTitle, composite.Components[0].Title)
	assert.Equal(t, domain.YieldBearing, composite.Components[0].Kind)
	assert.True(t, composite.Components[0].Value.Equal(pct("0.1")), composite.Components[0].Value.String())
	assert.True(t, composite.Total.Equal(pct("4.1")), composite.Total.String())
	require.NotNil(t, composite.TotalSupplied)
	assert.True(t, composite.TotalSupplied.Equal(supplyA))
	assert.Nil(t, composite.Components[2].TotalSupplied)

	_, err = interactor.CompositeYield(context.Background(), domain.ProtocolLending)
	require.NoError(t, err)
	assert.Equal(t, int32(1), source.calls)
}

func TestCompositeYieldWithoutSupplySource(t *testing.T) {
	supply := fixed("5000", 9)
	source := &fakeYieldSource{components: []domain.YieldComponent{
		{Title: "Supply APY", Value: pct("3"), TotalSupplied: &supply},
	}}
	interactor := newYieldInteractor(t, 1000, []YieldSource{source}, nil)

	composite, err := interactor.CompositeYield(context.Background(), domain.ProtocolDex)
	require.NoError(t, err)
	assert.Nil(t, composite.TotalSupplied)
}

func TestCompositeYieldSkipsFailingSource(t *testing.T) {
	source := &fakeYieldSource{err: errors.New("pools endpoint down")}
	interactor := newYieldInteractor(t, 1000, []YieldSource{source}, nil)

	composite, err := interactor.CompositeYield(context.Background(), domain.ProtocolDex)
	require.NoError(t, err)
	require.Len(t, composite.Components, 1)
	assert.Equal(t, AppreciationTitle, composite.Components[0].Title)
}

func TestAppreciationAPRWithoutHistory(t *testing.T) {
	interactor := newYieldInteractor(t, 100, nil, nil)

	component, err := interactor.AppreciationAPR(context.Background())
	require.NoError(t, err)
	assert.Nil(t, component)

	composite, err := interactor.CompositeYield(context.Background(), domain.ProtocolWallet)
	require.NoError(t, err)
	assert.Empty(t, composite.Components)
	assert.True(t, composite.Total.IsZero())
}
