package gateway

import (
	"context"
	"fmt"
	"net/url"

	"dashboard/domain"

	"github.com/shopspring/decimal"
)

const (
	SupplyAPYTitle    = "Supply APY"
	IncentiveAPRTitle = "Incentive APR"
)

type yieldsResponse struct {
	Status string      `json:"status"`
	Data   []yieldPool `json:"data"`
}

type yieldPool struct {
	Pool        string           `json:"pool"`
	Project     string           `json:"project"`
	Symbol      string           `json:"symbol"`
	APYBase     *decimal.Decimal `json:"apyBase"`
	APYReward   *decimal.Decimal `json:"apyReward"`
	TotalSupply rawAmount        `json:"totalSupply"`
}

// YieldsClient reads pool yields from a yields index in the DefiLlama shape.
type YieldsClient struct {
	client
	symbol         string
	stakedDecimals uint8
}

func NewYieldsClient(baseURL string, requestsPerSecond float64, symbol string, stakedDecimals uint8) *YieldsClient {
	return &YieldsClient{
		client:         newClient(baseURL, requestsPerSecond),
		symbol:         symbol,
		stakedDecimals: stakedDecimals,
	}
}

func (c *YieldsClient) Name() string {
	return "yields"
}

// Components returns the supply APY (natural) and incentive APR of the
// protocol's pool. Missing fields produce no component.
func (c *YieldsClient) Components(ctx context.Context, protocol domain.ProtocolID) ([]domain.YieldComponent, error) {
	query := url.Values{}
	query.Set("project", protocol.String())

	var resp yieldsResponse
	if err := c.getJSON(ctx, "/pools", query, &resp); err != nil {
		return nil, err
	}

	pool, ok := c.findPool(resp.Data, protocol)
	if !ok {
		return nil, nil
	}

	components := make([]domain.YieldComponent, 0, 2)
	if pool.APYBase != nil {
		component := domain.YieldComponent{
			Title:   SupplyAPYTitle,
			Value:   *pool.APYBase,
			Kind:    domain.YieldNatural,
			Remarks: fmt.Sprintf("%v pool %v", pool.Project, pool.Symbol),
		}
		if pool.TotalSupply != "" {
			supplied, err := pool.TotalSupply.fixed(c.stakedDecimals)
			if err != nil {
				return nil, err
			}
			component.TotalSupplied = &supplied
		}
		components = append(components, component)
	}
	if pool.APYReward != nil && !pool.APYReward.IsZero() {
		components = append(components, domain.YieldComponent{
			Title:   IncentiveAPRTitle,
			Value:   *pool.APYReward,
			Kind:    domain.YieldIncentive,
			Remarks: fmt.Sprintf("%v rewards", pool.Project),
		})
	}
	return components, nil
}

func (c *YieldsClient) findPool(pools []yieldPool, protocol domain.ProtocolID) (yieldPool, bool) {
	for _, pool := range pools {
		if pool.Project != "" && pool.Project != protocol.String() {
			continue
		}
		if c.symbol == "" || pool.Symbol == c.symbol {
			return pool, true
		}
	}
	return yieldPool{}, false
}
