package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelens/tradelens/internal/metrics"
)

const (
	// DefaultRequestTimeout bounds each HTTP exchange.
	DefaultRequestTimeout = 10 * time.Second
	// MaxRequestTimeout is the hard ceiling for configured timeouts.
	MaxRequestTimeout = 30 * time.Second

	// DefaultRecvWindow is the validity window appended to signed
	// requests.
	DefaultRecvWindow = 5 * time.Second
	// MaxRecvWindow is the hard ceiling the exchange accepts.
	MaxRecvWindow = 60 * time.Second

	// DefaultBanPrevention is the cool-down applied when the server
	// throttles without an explicit Retry-After.
	DefaultBanPrevention = 2 * time.Minute

	apiKeyHeader = "X-MBX-APIKEY"
)

// Config carries connector construction options. Zero values fall back
// to conservative defaults; out-of-bounds timeouts are clamped.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string

	RequestTimeout time.Duration
	RecvWindow     time.Duration
	BanPrevention  time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Connector performs the actual network exchange for any number of
// concurrent callers sharing one ban prevention window and one set of
// usage-metric header registrations.
type Connector struct {
	baseURL       string
	apiKey        string
	apiSecret     string
	timeout       time.Duration
	recvWindow    time.Duration
	banPrevention time.Duration

	httpClient *http.Client
	throttle   *Throttle
	logger     *zap.Logger
	clock      func() time.Time

	mu          sync.RWMutex
	metricsMaps map[string]map[string]string // endpoint prefix -> header name -> limit id
}

// New builds a connector. The base URL is required; credentials are
// optional, but secured requests on a credential-less connector fail
// with ErrNotSupported.
func New(cfg Config) (*Connector, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if timeout > MaxRequestTimeout {
		timeout = MaxRequestTimeout
	}

	recvWindow := cfg.RecvWindow
	if recvWindow <= 0 {
		recvWindow = DefaultRecvWindow
	}
	if recvWindow > MaxRecvWindow {
		recvWindow = MaxRecvWindow
	}

	banPrevention := cfg.BanPrevention
	if banPrevention <= 0 {
		banPrevention = DefaultBanPrevention
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Connector{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		timeout:       timeout,
		recvWindow:    recvWindow,
		banPrevention: banPrevention,
		httpClient:    httpClient,
		throttle:      NewThrottle(clock),
		logger:        logger,
		clock:         clock,
		metricsMaps:   make(map[string]map[string]string),
	}, nil
}

// SetLimitMetricsMap registers which response headers carry usage
// metrics for an endpoint group, and which limit id each one feeds. A
// map registered for a path prefix serves all of its sub-paths unless a
// more specific registration exists.
func (c *Connector) SetLimitMetricsMap(endpoint string, headers map[string]string) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" || len(headers) == 0 {
		return
	}

	copied := make(map[string]string, len(headers))
	for header, limitID := range headers {
		copied[header] = limitID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metricsMaps[endpoint] = copied
}

// CoolDownActive reports whether the ban prevention window is in force.
func (c *Connector) CoolDownActive() bool { return c.throttle.Active() }

// CoolDownRemaining returns how long the ban prevention window has
// left, or zero when inactive.
func (c *Connector) CoolDownRemaining() time.Duration { return c.throttle.Remaining() }

// CancelCoolDown clears the ban prevention window explicitly.
func (c *Connector) CancelCoolDown() { c.throttle.Cancel() }

// Send issues the request. Transport-level failures (cool-down block,
// timeout, cancellation, unreachable server) are returned as typed
// errors; an HTTP-level rejection is returned as a Response with
// IsSuccessful set to false and the raw error body attached.
func (c *Connector) Send(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, errors.New("request path is required")
	}
	if req.Secured && c.apiSecret == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, req.Path)
	}

	if c.throttle.Active() {
		metrics.ThrottleBlockedTotal.Inc()
		return nil, fmt.Errorf("%w: retry in %s", ErrBanPrevention, c.throttle.Remaining().Round(time.Millisecond))
	}

	query := req.Query
	if query == nil {
		query = make(map[string][]string)
	}
	rawQuery := query.Encode()
	if req.Secured {
		rawQuery = c.signQuery(rawQuery)
	}

	endpoint := c.baseURL + req.Path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	// The connector's own deadline is layered on top of the caller's
	// context so the two abort causes stay distinguishable.
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	requestID := uuid.New().String()
	c.logger.Debug("sending request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Bool("secured", req.Secured),
	)

	started := c.clock()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, req.Path, requestID, err)
	}
	defer httpResp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError(ctx, req.Path, requestID, err)
	}

	metrics.RequestDuration.WithLabelValues(req.Path).Observe(c.clock().Sub(started).Seconds())
	metrics.RequestsTotal.WithLabelValues(req.Path, fmt.Sprintf("%d", httpResp.StatusCode)).Inc()

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return &Response{
			Content:      body,
			LimitsUsage:  c.extractUsage(req.Path, httpResp, requestID),
			StatusCode:   httpResp.StatusCode,
			IsSuccessful: true,
		}, nil
	}

	c.armThrottleFor(httpResp, req.Path, requestID)

	return &Response{
		Content:      body,
		StatusCode:   httpResp.StatusCode,
		IsSuccessful: false,
	}, nil
}

// signQuery appends the timestamp, receive window and HMAC signature to
// an assembled query string.
func (c *Connector) signQuery(rawQuery string) string {
	if rawQuery != "" {
		rawQuery += "&"
	}
	rawQuery += fmt.Sprintf("recvWindow=%d&timestamp=%d", c.recvWindow.Milliseconds(), c.clock().UnixMilli())
	return rawQuery + "&signature=" + sign(c.apiSecret, rawQuery)
}

// extractUsage pulls the configured usage-metric headers off a
// successful response. A missing registration is logged and swallowed:
// usage feedback is a secondary signal, never required for correctness.
func (c *Connector) extractUsage(path string, resp *http.Response, requestID string) []HeaderUsage {
	headerMap := c.limitMetricsFor(path)
	if headerMap == nil {
		c.logger.Debug("no usage metrics registered for endpoint",
			zap.String("request_id", requestID),
			zap.String("path", path),
		)
		return nil
	}

	names := make([]string, 0, len(headerMap))
	for name := range headerMap {
		names = append(names, name)
	}
	sort.Strings(names)

	var usage []HeaderUsage
	for _, name := range names {
		value := resp.Header.Get(name)
		if value == "" {
			continue
		}
		usage = append(usage, HeaderUsage{Header: name, Value: value})
	}
	return usage
}

// limitMetricsFor resolves the header registration for a path, walking
// from the most to the least specific prefix segment so a broad map
// registered for "/api" serves "/api/v3/klines" too.
func (c *Connector) limitMetricsFor(path string) map[string]string {
	path = strings.TrimRight(path, "/")

	c.mu.RLock()
	defer c.mu.RUnlock()

	for path != "" {
		if m, ok := c.metricsMaps[path]; ok {
			return m
		}
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			break
		}
		path = path[:idx]
	}
	return nil
}

// armThrottleFor inspects a failed response for throttling signals. A
// 429 or 418 always arms the cool-down, using Retry-After when present
// and the configured default otherwise; any other failure arms it only
// when the server supplied a parseable Retry-After.
func (c *Connector) armThrottleFor(resp *http.Response, path, requestID string) {
	retryAfter := retryAfterHeader(resp)

	throttled := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot
	if throttled && retryAfter <= 0 {
		retryAfter = c.banPrevention
	}
	if retryAfter <= 0 {
		return
	}

	c.throttle.Arm(retryAfter)
	metrics.ThrottleArmedTotal.Inc()
	c.logger.Warn("server throttling signal armed ban prevention window",
		zap.String("request_id", requestID),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cool_down", retryAfter),
	)
}

// transportError maps a failed HTTP exchange onto one typed failure.
// The caller's context aborting is distinguished from the connector's
// own timeout even though both cancel the same underlying call.
func (c *Connector) transportError(callerCtx context.Context, path, requestID string, err error) error {
	var kind string
	var typed error
	switch {
	case callerCtx.Err() != nil:
		kind, typed = "cancelled", ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind, typed = "timeout", ErrRequestTimeout
	default:
		kind, typed = "connection", ErrConnectionFailed
	}

	metrics.TransportErrorsTotal.WithLabelValues(kind).Inc()
	c.logger.Debug("transport failure",
		zap.String("request_id", requestID),
		zap.String("path", path),
		zap.String("kind", kind),
		zap.Error(err),
	)

	return fmt.Errorf("%w: %s: %v", typed, path, err)
}

// retryAfterHeader parses the Retry-After header as whole seconds, with
// an HTTP-date fallback. Returns zero when absent or unparseable.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed)
	}
	return 0
}
