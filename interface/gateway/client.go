package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard/domain"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 4 << 20
)

var (
	ErrorNotFound = fmt.Errorf("not found")
)

// client is the rate-limited JSON GET shared by the gateways.
type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newClient(baseURL string, requestsPerSecond float64) client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// getJSON decodes the response of GET baseURL+path?query into out.
// 404 maps to ErrorNotFound, 429 and 5xx to ErrorTransientNetwork and any
// other non-2xx status or undecodable body to ErrorMalformedResponse.
func (c client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrorCancelled, err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrorCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", domain.ErrorTransientNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrorTransientNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrorNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %v returned %v", domain.ErrorTransientNetwork, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %v returned %v", domain.ErrorMalformedResponse, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrorMalformedResponse, err)
	}
	return nil
}

// parseRaw reads an optional integer amount in base units. Empty means zero.
func parseRaw(s string, decimals uint8) (domain.FixedPoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.ZeroFixedPoint(decimals), nil
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return domain.FixedPoint{}, fmt.Errorf("%w: amount %q", domain.ErrorMalformedResponse, s)
	}
	return domain.NewFixedPoint(raw, decimals), nil
}

// rawAmount accepts an integer amount given either as a JSON string or number.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		s = ""
	}
	*a = rawAmount(s)
	return nil
}

func (a rawAmount) fixed(decimals uint8) (domain.FixedPoint, error) {
	return parseRaw(string(a), decimals)
}
