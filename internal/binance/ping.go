package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradelens/tradelens/internal/connector"
	"github.com/tradelens/tradelens/internal/query"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// PingQuery prepares a connectivity probe against /api/v3/ping.
func (c *Client) PingQuery() (*query.Deferred[struct{}], error) {
	return query.New(
		connector.Request{Path: "/api/v3/ping"},
		c.send,
		func(resp *connector.Response) (struct{}, error) { return struct{}{}, nil },
		query.WithWeights[struct{}]([]ratelimit.Weight{
			{Dimension: DimensionIPWeight, Amount: 1},
			{Dimension: DimensionRawRequests, Amount: 1},
		}),
	)
}

// Ping executes the connectivity probe immediately.
func (c *Client) Ping(ctx context.Context) error {
	q, err := c.PingQuery()
	if err != nil {
		return err
	}
	defer q.Close()

	_, resp, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	if !resp.IsSuccessful {
		return apiError(resp)
	}
	return nil
}

// ServerTimeQuery prepares a request for the exchange's clock.
func (c *Client) ServerTimeQuery() (*query.Deferred[time.Time], error) {
	return query.New(
		connector.Request{Path: "/api/v3/time"},
		c.send,
		parseServerTime,
		query.WithWeights[time.Time]([]ratelimit.Weight{
			{Dimension: DimensionIPWeight, Amount: 1},
			{Dimension: DimensionRawRequests, Amount: 1},
		}),
	)
}

// ServerTime fetches the exchange's clock immediately.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	q, err := c.ServerTimeQuery()
	if err != nil {
		return time.Time{}, err
	}
	defer q.Close()

	serverTime, resp, err := q.Execute(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !resp.IsSuccessful {
		return time.Time{}, apiError(resp)
	}
	return serverTime, nil
}

func parseServerTime(resp *connector.Response) (time.Time, error) {
	var payload struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(resp.Content, &payload); err != nil {
		return time.Time{}, err
	}
	if payload.ServerTime == 0 {
		return time.Time{}, fmt.Errorf("missing serverTime field")
	}
	return time.UnixMilli(payload.ServerTime).UTC(), nil
}
