package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"dashboard/domain"
)

type quoteResponse struct {
	SellAmount rawAmount `json:"sellAmount"`
	BuyAmount  rawAmount `json:"buyAmount"`
	Timestamp  int64     `json:"timestamp"`
}

// QuoteClient asks a DEX aggregator how much buy token a sell amount fetches.
type QuoteClient struct {
	client
	sellDecimals uint8
	buyDecimals  uint8
	now          func() time.Time
}

func NewQuoteClient(baseURL string, requestsPerSecond float64, sellDecimals uint8, buyDecimals uint8) *QuoteClient {
	return &QuoteClient{
		client:       newClient(baseURL, requestsPerSecond),
		sellDecimals: sellDecimals,
		buyDecimals:  buyDecimals,
		now:          time.Now,
	}
}

// GetQuote fetches GET /quote. A quote without a buy amount is unavailable.
// A missing timestamp means the quote was made now.
func (c *QuoteClient) GetQuote(ctx context.Context, sell, buy domain.Address, amount domain.FixedPoint, taker domain.Address) (domain.Quote, error) {
	query := url.Values{}
	query.Set("sellToken", string(sell))
	query.Set("buyToken", string(buy))
	query.Set("sellAmount", amount.Rescale(c.sellDecimals).Raw().String())
	if !taker.IsZero() {
		query.Set("taker", string(taker))
	}

	var resp quoteResponse
	if err := c.getJSON(ctx, "/quote", query, &resp); err != nil {
		if errors.Is(err, ErrorNotFound) || errors.Is(err, domain.ErrorMalformedResponse) {
			return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrorQuoteUnavailable, err)
		}
		return domain.Quote{}, err
	}

	if resp.BuyAmount == "" {
		return domain.Quote{}, fmt.Errorf("%w: no buy amount", domain.ErrorQuoteUnavailable)
	}
	buyAmount, err := resp.BuyAmount.fixed(c.buyDecimals)
	if err != nil {
		return domain.Quote{}, err
	}

	sellAmount := amount.Rescale(c.sellDecimals)
	if resp.SellAmount != "" {
		if sellAmount, err = resp.SellAmount.fixed(c.sellDecimals); err != nil {
			return domain.Quote{}, err
		}
	}

	timestamp := c.now()
	if resp.Timestamp > 0 {
		timestamp = time.Unix(resp.Timestamp, 0)
	}

	return domain.Quote{
		SellToken:  sell,
		BuyToken:   buy,
		SellAmount: sellAmount,
		BuyAmount:  buyAmount,
		Timestamp:  timestamp,
	}, nil
}
