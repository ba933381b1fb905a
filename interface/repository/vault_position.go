package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"dashboard/domain"

	"github.com/behrang/sqlbatch"
)

const (
	sqlVaultPositionFindLatest = `
	select
		coalesce(staked_amount, 0)::text, coalesce(underlying_amount, 0)::text, block_number
	from vault_positions
	where vault = $1 and owner = $2 and block_number <= $3
	order by block_number desc
	limit 1
`
)

type vaultPositionRow struct {
	Staked      string
	Underlying  string
	BlockNumber int64
}

type VaultPositionRepository struct {
	batchHandler       BatchHandler
	stakedDecimals     uint8
	underlyingDecimals uint8
}

func NewVaultPositionRepository(db BatchHandler, stakedDecimals uint8, underlyingDecimals uint8) *VaultPositionRepository {
	return &VaultPositionRepository{
		batchHandler:       db,
		stakedDecimals:     stakedDecimals,
		underlyingDecimals: underlyingDecimals,
	}
}

func readVaultPosition(scan func(...interface{}) error) (interface{}, error) {
	r := vaultPositionRow{}
	err := scan(&r.Staked, &r.Underlying, &r.BlockNumber)
	return &r, err
}

// LatestPosition returns the newest position of owner in vault at or below
// block. found is false when the owner has no indexed position yet.
func (repo *VaultPositionRepository) LatestPosition(ctx context.Context, vault domain.Address, owner domain.Address, block uint64) (domain.Position, bool, error) {
	results, err := repo.batchHandler.Batch(ctx, &BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlVaultPositionFindLatest,
			Args:    []interface{}{string(vault), string(owner), int64(block)},
			ReadOne: readVaultPosition,
		},
	})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return domain.Position{}, false, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
		}
		return domain.Position{}, false, fmt.Errorf("%w: vault positions - %v", domain.ErrorTransientNetwork, err)
	}

	row, ok := results[0].(*vaultPositionRow)
	if !ok || row == nil {
		return domain.Position{}, false, nil
	}

	staked, err := parseNumeric(row.Staked, repo.stakedDecimals)
	if err != nil {
		return domain.Position{}, false, err
	}
	underlying, err := parseNumeric(row.Underlying, repo.underlyingDecimals)
	if err != nil {
		return domain.Position{}, false, err
	}
	return domain.Position{Staked: staked, Underlying: underlying}, true, nil
}

// parseNumeric reads a base-unit numeric column. Null or empty is zero.
func parseNumeric(s string, decimals uint8) (domain.FixedPoint, error) {
	if s == "" {
		return domain.ZeroFixedPoint(decimals), nil
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return domain.FixedPoint{}, fmt.Errorf("%w: numeric %q", domain.ErrorMalformedResponse, s)
	}
	return domain.NewFixedPoint(raw, decimals), nil
}
