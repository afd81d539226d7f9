package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelens/tradelens/internal/binance"
)

// mockExchange is an in-process stand-in for the exchange's REST API.
// It charges a weight per endpoint, reports the running total through
// the usage header, and starts rejecting with 429 once the per-minute
// budget is spent.
type mockExchange struct {
	mu         sync.Mutex
	usedWeight int
	limit      int
	requests   int
}

const usedWeightHeader = "X-MBX-USED-WEIGHT-1M"

func (m *mockExchange) charge(w http.ResponseWriter, weight int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if m.usedWeight+weight > m.limit {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
		return false
	}

	m.usedWeight += weight
	w.Header().Set(usedWeightHeader, strconv.Itoa(m.usedWeight))
	return true
}

func (m *mockExchange) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func newMockExchange(t *testing.T, limit int) (*mockExchange, *httptest.Server) {
	t.Helper()

	exchange := &mockExchange{limit: limit}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)

	mux.Get("/api/v3/ping", func(w http.ResponseWriter, r *http.Request) {
		if !exchange.charge(w, 1) {
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	mux.Get("/api/v3/time", func(w http.ResponseWriter, r *http.Request) {
		if !exchange.charge(w, 1) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"serverTime": time.Now().UnixMilli(),
		})
	})

	mux.Get("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		if !exchange.charge(w, 2) {
			return
		}
		if r.URL.Query().Get("symbol") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1102,"msg":"Mandatory parameter 'symbol' was not sent."}`))
			return
		}
		_, _ = w.Write([]byte(`[
			[1767225600000,"43000.1","43100.0","42900.5","43050.7","12.5",1767229199999,"537000.2",42,"6.1","262000.9","0"],
			[1767229200000,"43050.7","43200.0","43000.0","43150.0","8.2",1767232799999,"353000.4",31,"4.0","172000.1","0"]
		]`))
	})

	mux.Get("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		if !exchange.charge(w, 20) {
			return
		}
		_, _ = w.Write([]byte(`{
			"timezone": "UTC",
			"serverTime": 1767225600000,
			"rateLimits": [
				{"rateLimitType": "REQUEST_WEIGHT", "interval": "MINUTE", "intervalNum": 1, "limit": 6000},
				{"rateLimitType": "ORDERS", "interval": "SECOND", "intervalNum": 10, "limit": 100}
			],
			"symbols": [
				{"symbol": "BTCUSDT", "status": "TRADING", "baseAsset": "BTC", "quoteAsset": "USDT"}
			]
		}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return exchange, server
}

func newIntegrationClient(t *testing.T, serverURL string, mutate func(*binance.Options)) *binance.Client {
	t.Helper()

	opts := binance.Options{
		BaseURL:  serverURL,
		PreCheck: true,
	}
	if mutate != nil {
		mutate(&opts)
	}

	client, err := binance.NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestEndToEndUsageTracking(t *testing.T) {
	exchange, server := newMockExchange(t, 1200)
	client := newIntegrationClient(t, server.URL, nil)

	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	serverTime, err := client.ServerTime(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), serverTime, time.Minute)

	candles, err := client.Klines(ctx, binance.KlinesParams{
		Symbol:   "BTCUSDT",
		Interval: binance.Interval1h,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, "43000.1", candles[0].Open.String())
	assert.Equal(t, int64(42), candles[0].Trades)

	// ping(1) + time(1) + klines(2) = 4 weight points, echoed back by
	// the server headers and folded into the local window.
	statuses := client.Limits().Snapshot()
	var weightUsage int
	for _, status := range statuses {
		if status.ID == binance.LimitRequestWeight1m {
			weightUsage = status.Usage
		}
	}
	assert.Equal(t, 4, weightUsage)
	assert.Equal(t, 4, exchange.requestCount())
}

func TestEndToEndAdmissionStopsBeforeServerBan(t *testing.T) {
	exchange, server := newMockExchange(t, 1200)
	client := newIntegrationClient(t, server.URL, func(opts *binance.Options) {
		opts.LimitTemplates = []binance.LimitTemplate{
			{
				ID:        binance.LimitRequestWeight1m,
				Name:      "request weight",
				Dimension: int(binance.DimensionIPWeight),
				Limit:     3,
				Interval:  time.Minute,
			},
			{
				ID:        binance.LimitRawRequests5m,
				Name:      "raw requests",
				Dimension: int(binance.DimensionRawRequests),
				Limit:     6100,
				Interval:  5 * time.Minute,
			},
		}
	})

	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Ping(ctx))

	// Third ping would make usage+1 reach the local limit of 3, so the
	// admission check refuses it without touching the wire.
	err := client.Ping(ctx)
	require.ErrorIs(t, err, binance.ErrLocalLimit)
	assert.Equal(t, 2, exchange.requestCount())
}

func TestEndToEndServerRejectionArmsCoolDown(t *testing.T) {
	exchange, server := newMockExchange(t, 2)
	client := newIntegrationClient(t, server.URL, func(opts *binance.Options) {
		opts.PreCheck = false
	})

	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Ping(ctx))

	// Budget exhausted server-side: the 429 plus Retry-After arms the
	// cool-down for subsequent requests.
	err := client.Ping(ctx)
	require.Error(t, err)

	var apiErr *binance.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, -1003, apiErr.Code)

	assert.True(t, client.Connector().CoolDownActive())
	remaining := client.Connector().CoolDownRemaining()
	assert.Greater(t, remaining, 25*time.Second)
	assert.LessOrEqual(t, remaining, 30*time.Second)

	// While cooling down nothing reaches the server.
	before := exchange.requestCount()
	err = client.Ping(ctx)
	require.Error(t, err)
	assert.Equal(t, before, exchange.requestCount())
}

func TestEndToEndExchangeInfoRevisesWindows(t *testing.T) {
	_, server := newMockExchange(t, 1200)
	client := newIntegrationClient(t, server.URL, nil)

	info, err := client.ExchangeInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, info.Symbols, 1)
	assert.Equal(t, "BTCUSDT", info.Symbols[0].Symbol)

	// The advertised REQUEST_WEIGHT limit replaces the default of 1200.
	var found bool
	for _, status := range client.Limits().Snapshot() {
		if status.ID == binance.LimitRequestWeight1m {
			found = true
			assert.Equal(t, 6000, status.Limit)
		}
	}
	assert.True(t, found)
}
