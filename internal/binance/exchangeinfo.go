package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradelens/tradelens/internal/connector"
	"github.com/tradelens/tradelens/internal/query"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// RateLimitInfo is one server-reported rate limit window.
type RateLimitInfo struct {
	RateLimitType string `json:"rateLimitType"`
	Interval      string `json:"interval"`
	IntervalNum   int    `json:"intervalNum"`
	Limit         int    `json:"limit"`
}

// SymbolInfo is the subset of per-symbol metadata this client surfaces.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// ExchangeInfo is the exchange metadata document.
type ExchangeInfo struct {
	Timezone   string          `json:"timezone"`
	ServerTime int64           `json:"serverTime"`
	RateLimits []RateLimitInfo `json:"rateLimits"`
	Symbols    []SymbolInfo    `json:"symbols"`
}

// ExchangeInfoQuery prepares a metadata request.
func (c *Client) ExchangeInfoQuery() (*query.Deferred[*ExchangeInfo], error) {
	return query.New(
		connector.Request{Path: "/api/v3/exchangeInfo"},
		c.send,
		func(resp *connector.Response) (*ExchangeInfo, error) {
			var info ExchangeInfo
			if err := json.Unmarshal(resp.Content, &info); err != nil {
				return nil, err
			}
			return &info, nil
		},
		query.WithWeights[*ExchangeInfo]([]ratelimit.Weight{
			{Dimension: DimensionIPWeight, Amount: 20},
			{Dimension: DimensionRawRequests, Amount: 1},
		}),
	)
}

// ExchangeInfo fetches the metadata document immediately and applies
// the server-reported rate limits to the registry.
func (c *Client) ExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	q, err := c.ExchangeInfoQuery()
	if err != nil {
		return nil, err
	}
	defer q.Close()

	info, resp, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessful {
		return nil, apiError(resp)
	}

	if err := c.ApplyRateLimits(info); err != nil {
		return nil, err
	}
	return info, nil
}

// ApplyRateLimits reconciles the registry with server-reported limits:
// known windows get their ceiling revised in place, new windows are
// registered. Windows of an unrecognized type are logged and skipped.
func (c *Client) ApplyRateLimits(info *ExchangeInfo) error {
	if info == nil {
		return nil
	}

	for _, reported := range info.RateLimits {
		dimension, ok := dimensionForType(reported.RateLimitType)
		if !ok {
			c.logger.Debug("skipping unrecognized rate limit type",
				zap.String("type", reported.RateLimitType),
			)
			continue
		}

		interval, suffix, err := reportedInterval(reported)
		if err != nil {
			return err
		}

		id := fmt.Sprintf("%s:%s", reported.RateLimitType, suffix)
		if c.limits.ContainsLimit(id) {
			if err := c.limits.ModifyLimit(id, reported.Limit); err != nil {
				return err
			}
			continue
		}

		if _, err := c.limits.TryRegisterLimit(id, ratelimit.LimitSpec{
			Dimension:     dimension,
			Limit:         reported.Limit,
			ResetInterval: interval,
			Name:          strings.ToLower(strings.ReplaceAll(reported.RateLimitType, "_", " ")),
		}); err != nil {
			return err
		}
	}
	return nil
}

func dimensionForType(rateLimitType string) (ratelimit.Dimension, bool) {
	switch rateLimitType {
	case "REQUEST_WEIGHT":
		return DimensionIPWeight, true
	case "RAW_REQUESTS":
		return DimensionRawRequests, true
	case "ORDERS":
		return DimensionOrders, true
	default:
		return 0, false
	}
}

func reportedInterval(reported RateLimitInfo) (time.Duration, string, error) {
	num := reported.IntervalNum
	if num < 1 {
		num = 1
	}

	var unit time.Duration
	var suffix string
	switch reported.Interval {
	case "SECOND":
		unit, suffix = time.Second, "s"
	case "MINUTE":
		unit, suffix = time.Minute, "m"
	case "HOUR":
		unit, suffix = time.Hour, "h"
	case "DAY":
		unit, suffix = 24*time.Hour, "d"
	default:
		return 0, "", fmt.Errorf("unrecognized rate limit interval %q", reported.Interval)
	}

	return time.Duration(num) * unit, fmt.Sprintf("%d%s", num, suffix), nil
}
