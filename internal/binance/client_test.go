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

func newTestClient(t *testing.T, serverURL string, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{BaseURL: serverURL}
	if mutate != nil {
		mutate(&opts)
	}
	client, err := NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestNewClientRegistersDefaultWindows(t *testing.T) {
	client := newTestClient(t, "https://api.example.com", nil)

	for _, id := range []string{LimitRequestWeight1m, LimitRawRequests5m, LimitOrders10s, LimitOrders1d} {
		require.True(t, client.Limits().ContainsLimit(id), id)
	}
}

func TestClientReconcilesUsageFromHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MBX-USED-WEIGHT-1M", "123")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	require.NoError(t, client.Ping(context.Background()))

	statuses := client.Limits().Snapshot()
	byID := make(map[string]ratelimit.LimitStatus, len(statuses))
	for _, status := range statuses {
		byID[status.ID] = status
	}

	// The server-reported value overwrites the locally predicted one.
	require.Equal(t, 123, byID[LimitRequestWeight1m].Usage)
	// No header feeds the raw request window, so local accounting holds.
	require.Equal(t, 1, byID[LimitRawRequests5m].Usage)
}

func TestClientPreCheckBlocksWithoutNetworkIO(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(opts *Options) {
		opts.PreCheck = true
		opts.LimitTemplates = []LimitTemplate{
			{ID: LimitRequestWeight1m, Dimension: int(DimensionIPWeight), Limit: 3, Interval: time.Minute},
			{ID: LimitRawRequests5m, Dimension: int(DimensionRawRequests), Limit: 1000, Interval: 5 * time.Minute},
		}
	})

	// Each ping costs 1 ip-weight point; the third would reach the
	// ceiling of 3 and must be refused locally.
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Ping(context.Background()))

	err := client.Ping(context.Background())
	require.ErrorIs(t, err, ErrLocalLimit)
	require.Contains(t, err.Error(), LimitRequestWeight1m)
	require.Equal(t, 2, calls)
}

func TestClientWithoutPreCheckReliesOnReactiveThrottling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too much request weight used."}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	err := client.Ping(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, -1003, apiErr.Code)

	require.True(t, client.Connector().CoolDownActive())
}

func TestServerTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"serverTime":1767225600000}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)

	serverTime, err := client.ServerTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), serverTime)
}
