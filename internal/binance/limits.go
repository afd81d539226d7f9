package binance

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradelens/tradelens/internal/ratelimit"
)

// Weight dimensions the exchange discriminates between. A request may
// cost on several of them at once.
const (
	// DimensionIPWeight is the per-IP request weight quota.
	DimensionIPWeight ratelimit.Dimension = 1
	// DimensionRawRequests is the per-IP raw request count quota.
	DimensionRawRequests ratelimit.Dimension = 2
	// DimensionOrders is the per-account order placement quota.
	DimensionOrders ratelimit.Dimension = 3
)

// Stable limit ids for the default windows. The ids double as the
// reconciliation targets for the usage headers the exchange returns.
const (
	LimitRequestWeight1m = "REQUEST_WEIGHT:1m"
	LimitRawRequests5m   = "RAW_REQUESTS:5m"
	LimitOrders10s       = "ORDERS:10s"
	LimitOrders1d        = "ORDERS:1d"
)

// Usage-metric headers returned on /api responses.
const (
	headerUsedWeight1m   = "X-MBX-USED-WEIGHT-1M"
	headerOrderCount10s  = "X-MBX-ORDER-COUNT-10S"
	headerOrderCount1d   = "X-MBX-ORDER-COUNT-1D"
	apiEndpointGroup     = "/api"
)

// LimitTemplate is one rate limit window description, loadable from a
// YAML overrides file.
type LimitTemplate struct {
	ID        string        `yaml:"id"`
	Dimension int           `yaml:"dimension"`
	Limit     int           `yaml:"limit"`
	Interval  time.Duration `yaml:"interval"`
	Name      string        `yaml:"name,omitempty"`
}

// UnmarshalYAML accepts Go duration strings ("1m", "10s") for the
// interval field.
func (t *LimitTemplate) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID        string `yaml:"id"`
		Dimension int    `yaml:"dimension"`
		Limit     int    `yaml:"limit"`
		Interval  string `yaml:"interval"`
		Name      string `yaml:"name"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	interval, err := time.ParseDuration(raw.Interval)
	if err != nil {
		return fmt.Errorf("limit template %s: bad interval %q: %w", raw.ID, raw.Interval, err)
	}

	t.ID = raw.ID
	t.Dimension = raw.Dimension
	t.Limit = raw.Limit
	t.Interval = interval
	t.Name = raw.Name
	return nil
}

// Spec converts the template into a registry spec.
func (t LimitTemplate) Spec() ratelimit.LimitSpec {
	return ratelimit.LimitSpec{
		Dimension:     ratelimit.Dimension(t.Dimension),
		Limit:         t.Limit,
		ResetInterval: t.Interval,
		Name:          t.Name,
	}
}

// DefaultLimitTemplates returns the static window set registered when
// the server has not yet reported its own (matching the exchange's
// published defaults).
func DefaultLimitTemplates() []LimitTemplate {
	return []LimitTemplate{
		{ID: LimitRequestWeight1m, Dimension: int(DimensionIPWeight), Limit: 1200, Interval: time.Minute, Name: "request weight per minute"},
		{ID: LimitRawRequests5m, Dimension: int(DimensionRawRequests), Limit: 6100, Interval: 5 * time.Minute, Name: "raw requests per 5 minutes"},
		{ID: LimitOrders10s, Dimension: int(DimensionOrders), Limit: 50, Interval: 10 * time.Second, Name: "orders per 10 seconds"},
		{ID: LimitOrders1d, Dimension: int(DimensionOrders), Limit: 160000, Interval: 24 * time.Hour, Name: "orders per day"},
	}
}

// LoadLimitTemplates reads window overrides from a YAML file of the
// form:
//
//	limits:
//	  - id: REQUEST_WEIGHT:1m
//	    dimension: 1
//	    limit: 600
//	    interval: 1m
func LoadLimitTemplates(path string) ([]LimitTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limit templates: %w", err)
	}

	var doc struct {
		Limits []LimitTemplate `yaml:"limits"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse limit templates: %w", err)
	}

	for _, tmpl := range doc.Limits {
		if strings.TrimSpace(tmpl.ID) == "" {
			return nil, fmt.Errorf("limit template without id in %s", path)
		}
		if err := tmpl.Spec().Validate(); err != nil {
			return nil, fmt.Errorf("limit template %s: %w", tmpl.ID, err)
		}
	}
	return doc.Limits, nil
}
