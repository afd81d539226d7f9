package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradelens/tradelens/internal/ratelimit"
)

const exchangeInfoBody = `{
  "timezone": "UTC",
  "serverTime": 1767225600000,
  "rateLimits": [
    {"rateLimitType": "REQUEST_WEIGHT", "interval": "MINUTE", "intervalNum": 1, "limit": 6000},
    {"rateLimitType": "ORDERS", "interval": "SECOND", "intervalNum": 10, "limit": 100},
    {"rateLimitType": "REQUEST_WEIGHT", "interval": "DAY", "intervalNum": 1, "limit": 120000},
    {"rateLimitType": "CONNECTIONS", "interval": "MINUTE", "intervalNum": 5, "limit": 300}
  ],
  "symbols": [
    {"symbol": "BTCUSDT", "status": "TRADING", "baseAsset": "BTC", "quoteAsset": "USDT"}
  ]
}`

func TestExchangeInfoAppliesReportedLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(exchangeInfoBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	info, err := client.ExchangeInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "UTC", info.Timezone)
	require.Len(t, info.Symbols, 1)

	statuses := client.Limits().Snapshot()
	byID := make(map[string]ratelimit.LimitStatus, len(statuses))
	for _, status := range statuses {
		byID[status.ID] = status
	}

	// Known windows revised in place.
	require.Equal(t, 6000, byID[LimitRequestWeight1m].Limit)
	require.Equal(t, 100, byID[LimitOrders10s].Limit)
	require.Equal(t, 10*time.Second, byID[LimitOrders10s].ResetInterval)

	// Previously unknown windows are registered from the report.
	require.Contains(t, byID, "REQUEST_WEIGHT:1d")
	require.Equal(t, 120000, byID["REQUEST_WEIGHT:1d"].Limit)
	require.Equal(t, 24*time.Hour, byID["REQUEST_WEIGHT:1d"].ResetInterval)

	// Unrecognized types are skipped, not fatal.
	require.NotContains(t, byID, "CONNECTIONS:5m")
}

func TestApplyRateLimitsRejectsBadInterval(t *testing.T) {
	client := newTestClient(t, "https://api.example.com", nil)

	err := client.ApplyRateLimits(&ExchangeInfo{RateLimits: []RateLimitInfo{
		{RateLimitType: "REQUEST_WEIGHT", Interval: "FORTNIGHT", IntervalNum: 1, Limit: 100},
	}})
	require.Error(t, err)
}

func TestApplyRateLimitsNilInfo(t *testing.T) {
	client := newTestClient(t, "https://api.example.com", nil)
	require.NoError(t, client.ApplyRateLimits(nil))
}
