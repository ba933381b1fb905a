package gateway

import (
	"context"
	"errors"
	"net/url"

	"dashboard/domain"
)

type positionResponse struct {
	Supplied   rawAmount `json:"supplied"`
	Underlying rawAmount `json:"underlying"`
}

// LendingClient reads supplied positions from a lending market's indexer.
type LendingClient struct {
	client
	stakedDecimals     uint8
	underlyingDecimals uint8
}

func NewLendingClient(baseURL string, requestsPerSecond float64, stakedDecimals uint8, underlyingDecimals uint8) *LendingClient {
	return &LendingClient{
		client:             newClient(baseURL, requestsPerSecond),
		stakedDecimals:     stakedDecimals,
		underlyingDecimals: underlyingDecimals,
	}
}

// Position fetches GET /positions/{address}?block=. An unknown address has
// no position.
func (c *LendingClient) Position(ctx context.Context, address domain.Address, block domain.ResolvedBlock) (domain.Position, error) {
	query := url.Values{}
	query.Set("block", block.String())

	zero := domain.Position{
		Staked:     domain.ZeroFixedPoint(c.stakedDecimals),
		Underlying: domain.ZeroFixedPoint(c.underlyingDecimals),
	}

	var resp positionResponse
	if err := c.getJSON(ctx, "/positions/"+url.PathEscape(string(address)), query, &resp); err != nil {
		if errors.Is(err, ErrorNotFound) {
			return zero, nil
		}
		return domain.Position{}, err
	}

	staked, err := resp.Supplied.fixed(c.stakedDecimals)
	if err != nil {
		return domain.Position{}, err
	}
	underlying, err := resp.Underlying.fixed(c.underlyingDecimals)
	if err != nil {
		return domain.Position{}, err
	}
	return domain.Position{Staked: staked, Underlying: underlying}, nil
}
