package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradelens/tradelens/internal/connector"
	"github.com/tradelens/tradelens/internal/query"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// Interval is a candlestick aggregation period in the exchange's
// notation.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

const maxKlinesLimit = 1000

// KlinesParams selects a candlestick range.
type KlinesParams struct {
	Symbol    string
	Interval  Interval
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

func (p KlinesParams) validate() error {
	if p.Symbol == "" {
		return errors.New("symbol is required")
	}
	if p.Interval == "" {
		return errors.New("interval is required")
	}
	if p.Limit < 0 || p.Limit > maxKlinesLimit {
		return fmt.Errorf("limit must be between 0 and %d", maxKlinesLimit)
	}
	return nil
}

// Candle is one parsed candlestick.
type Candle struct {
	OpenTime    time.Time
	CloseTime   time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
	Trades      int64
}

// KlinesQuery prepares a candlestick request so its cost can be
// inspected (or batch-tested against the registry) before execution.
func (c *Client) KlinesQuery(params KlinesParams) (*query.Deferred[[]Candle], error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("symbol", params.Symbol)
	values.Set("interval", string(params.Interval))
	if !params.StartTime.IsZero() {
		values.Set("startTime", strconv.FormatInt(params.StartTime.UnixMilli(), 10))
	}
	if !params.EndTime.IsZero() {
		values.Set("endTime", strconv.FormatInt(params.EndTime.UnixMilli(), 10))
	}
	if params.Limit > 0 {
		values.Set("limit", strconv.Itoa(params.Limit))
	}

	return query.New(
		connector.Request{Path: "/api/v3/klines", Query: values},
		c.send,
		parseKlines,
		query.WithWeights[[]Candle]([]ratelimit.Weight{
			{Dimension: DimensionIPWeight, Amount: 2},
			{Dimension: DimensionRawRequests, Amount: 1},
		}),
	)
}

// Klines fetches candlesticks immediately.
func (c *Client) Klines(ctx context.Context, params KlinesParams) ([]Candle, error) {
	q, err := c.KlinesQuery(params)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	candles, resp, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessful {
		return nil, apiError(resp)
	}
	return candles, nil
}

// parseKlines decodes the exchange's kline rows: positional arrays
// mixing millisecond integers and decimal strings.
func parseKlines(resp *connector.Response) ([]Candle, error) {
	var rows [][]any
	if err := json.Unmarshal(resp.Content, &rows); err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 9 {
			return nil, fmt.Errorf("kline row %d has %d fields, want at least 9", i, len(row))
		}

		openTime, err := klineMillis(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		closeTime, err := klineMillis(row[6])
		if err != nil {
			return nil, fmt.Errorf("kline row %d close time: %w", i, err)
		}
		trades, err := klineMillis(row[8])
		if err != nil {
			return nil, fmt.Errorf("kline row %d trade count: %w", i, err)
		}

		candle := Candle{
			OpenTime:  time.UnixMilli(openTime).UTC(),
			CloseTime: time.UnixMilli(closeTime).UTC(),
			Trades:    trades,
		}

		for idx, target := range map[int]*decimal.Decimal{
			1: &candle.Open,
			2: &candle.High,
			3: &candle.Low,
			4: &candle.Close,
			5: &candle.Volume,
			7: &candle.QuoteVolume,
		} {
			value, err := klineDecimal(row[idx])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, idx, err)
			}
			*target = value
		}

		candles = append(candles, candle)
	}
	return candles, nil
}

func klineMillis(field any) (int64, error) {
	number, ok := field.(float64)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", field)
	}
	return int64(number), nil
}

func klineDecimal(field any) (decimal.Decimal, error) {
	text, ok := field.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("expected string, got %T", field)
	}
	return decimal.NewFromString(text)
}
