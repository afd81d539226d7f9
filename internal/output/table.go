package output

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tradelens/tradelens/internal/binance"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// FormatCandles renders candlesticks as an ASCII table.
func FormatCandles(candles []binance.Candle) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Open Time", "Open", "High", "Low", "Close", "Volume", "Trades"})

	for _, c := range candles {
		t.AppendRow(table.Row{
			c.OpenTime.Format(time.RFC3339),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
			c.Trades,
		})
	}

	return t.Render()
}

// FormatLimits renders the registered rate limit windows and their
// current usage as an ASCII table.
func FormatLimits(statuses []ratelimit.LimitStatus) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Limit", "Dimension", "Usage", "Ceiling", "Window", "Name"})

	for _, s := range statuses {
		t.AppendRow(table.Row{
			s.ID,
			int(s.Dimension),
			s.Usage,
			s.Limit,
			s.ResetInterval.String(),
			s.Name,
		})
	}

	return t.Render()
}
