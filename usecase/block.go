package usecase

import (
	"context"
	"fmt"

	"dashboard/domain"
)

// BlockResolver pins pending/latest references to the current head.
type BlockResolver struct {
	chain ChainReader
}

func NewBlockResolver(chain ChainReader) *BlockResolver {
	return &BlockResolver{chain: chain}
}

func (r *BlockResolver) Resolve(ctx context.Context, block domain.BlockReference) (domain.ResolvedBlock, error) {
	if n, ok := block.Number(); ok {
		return block.Resolve(n), nil
	}
	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		if isCancellation(err) {
			return domain.ResolvedBlock{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
		}
		return domain.ResolvedBlock{}, fmt.Errorf("%w: head block: %v", domain.ErrorTransientNetwork, err)
	}
	return block.Resolve(head), nil
}
