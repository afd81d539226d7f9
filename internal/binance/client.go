// Package binance is the endpoint client for the exchange's public
// REST API. It is deliberately thin plumbing: parameters map to query
// strings, bytes map to records, and everything rate-limit related is
// delegated to the connector and registry it composes.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tradelens/tradelens/internal/connector"
	"github.com/tradelens/tradelens/internal/metrics"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// DefaultBaseURLs lists the exchange's public REST endpoints. The first
// entry is used when no base URL is configured; the rest are
// interchangeable alternatives callers may pick to spread load.
var DefaultBaseURLs = []string{
	"https://api.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
}

// ErrLocalLimit marks requests refused by the local admission check
// before any network I/O. The caller should wait for the violated
// window to roll over.
var ErrLocalLimit = errors.New("local rate limit would be exceeded")

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	APIKey    string
	APISecret string

	RequestTimeout time.Duration
	RecvWindow     time.Duration
	BanPrevention  time.Duration

	// PreCheck enables the optimistic local admission check before each
	// request. Callers may leave it off and rely purely on reactive
	// throttling.
	PreCheck bool

	// LimitTemplates overrides the default window set.
	LimitTemplates []LimitTemplate

	HTTPClient *http.Client
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Client composes the connector and the rate limit registry behind the
// exchange's endpoint operations. It is safe for concurrent use.
type Client struct {
	conn         *connector.Connector
	limits       *ratelimit.Registry
	headerLimits map[string]string
	logger       *zap.Logger
	clock        func() time.Time
	preCheck     bool
}

// NewClient builds a client, registers the limit windows and wires the
// usage-metric header map for the /api endpoint group.
func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURLs[0]
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	conn, err := connector.New(connector.Config{
		BaseURL:        baseURL,
		APIKey:         opts.APIKey,
		APISecret:      opts.APISecret,
		RequestTimeout: opts.RequestTimeout,
		RecvWindow:     opts.RecvWindow,
		BanPrevention:  opts.BanPrevention,
		HTTPClient:     opts.HTTPClient,
		Logger:         logger,
		Clock:          clock,
	})
	if err != nil {
		return nil, err
	}

	registry := ratelimit.NewRegistry(clock)
	templates := opts.LimitTemplates
	if len(templates) == 0 {
		templates = DefaultLimitTemplates()
	}
	for _, tmpl := range templates {
		if _, err := registry.TryRegisterLimit(tmpl.ID, tmpl.Spec()); err != nil {
			return nil, err
		}
	}

	headerLimits := map[string]string{
		headerUsedWeight1m:  LimitRequestWeight1m,
		headerOrderCount10s: LimitOrders10s,
		headerOrderCount1d:  LimitOrders1d,
	}
	conn.SetLimitMetricsMap(apiEndpointGroup, headerLimits)

	return &Client{
		conn:         conn,
		limits:       registry,
		headerLimits: headerLimits,
		logger:       logger,
		clock:        clock,
		preCheck:     opts.PreCheck,
	}, nil
}

// Limits exposes the registry so callers can batch-test planned weights
// or inspect window usage.
func (c *Client) Limits() *ratelimit.Registry { return c.limits }

// Connector exposes the underlying transport, mainly for cool-down
// introspection and cancellation.
func (c *Client) Connector() *connector.Connector { return c.conn }

// send is the execute handler every deferred query of this client is
// bound to: optional admission check, the network call, then usage
// reconciliation. Counters are touched only after the call completed,
// never mid-flight.
func (c *Client) send(ctx context.Context, req connector.Request, weights []ratelimit.Weight, headerMap map[string]string) (*connector.Response, error) {
	if c.preCheck && len(weights) > 0 {
		ok, violated, err := c.limits.TestUsage(weights)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: window %s", ErrLocalLimit, violated)
		}
	}

	resp, err := c.conn.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	ts := c.clock()

	// A rejected request still consumed its weight on the server.
	if len(weights) > 0 {
		if err := c.limits.IncrementUsage(weights, ts); err != nil {
			return nil, err
		}
	}

	if headerMap == nil {
		headerMap = c.headerLimits
	}
	for _, usage := range resp.LimitsUsage {
		limitID, ok := headerMap[usage.Header]
		if !ok {
			continue
		}
		value, err := strconv.Atoi(usage.Value)
		if err != nil {
			c.logger.Debug("unparseable usage header",
				zap.String("header", usage.Header),
				zap.String("value", usage.Value),
			)
			continue
		}
		if err := c.limits.UpdateUsage(limitID, value, ts); err != nil {
			c.logger.Debug("usage header for unknown limit",
				zap.String("header", usage.Header),
				zap.String("limit_id", limitID),
			)
			continue
		}
		metrics.LimitUsage.WithLabelValues(limitID).Set(float64(value))
	}

	// A 429 after the local admission check passed means clock skew,
	// another process consuming the same quota, or drift in the weight
	// manifests. Worth surfacing, not worth failing over.
	if resp.StatusCode == http.StatusTooManyRequests && c.preCheck {
		c.logger.Warn("rate limited despite local admission check",
			zap.String("path", req.Path),
		)
	}

	return resp, nil
}
