package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradelens/tradelens/internal/binance"
	"github.com/tradelens/tradelens/internal/output"
)

var (
	klinesSymbol   string
	klinesInterval string
	klinesLimit    int
	klinesOutput   string
)

var klinesCmd = &cobra.Command{
	Use:   "klines",
	Short: "Fetch candlestick data for a symbol",
	Long: `Fetch candlestick (kline) data for a trading symbol. The request
weight is checked against the local rate limit windows before any
network traffic happens.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(klinesOutput)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		candles, err := client.Klines(cmd.Context(), binance.KlinesParams{
			Symbol:   klinesSymbol,
			Interval: binance.Interval(klinesInterval),
			Limit:    klinesLimit,
		})
		if err != nil {
			return err
		}

		if format == output.FormatJSON {
			payload, err := output.FormatJSONValue(candles)
			if err != nil {
				return err
			}
			fmt.Println(payload)
			return nil
		}

		fmt.Println(output.FormatCandles(candles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(klinesCmd)
	klinesCmd.Flags().StringVar(&klinesSymbol, "symbol", "", "trading symbol, e.g. BTCUSDT (required)")
	klinesCmd.Flags().StringVar(&klinesInterval, "interval", "1h", "candlestick interval (1m, 5m, 15m, 1h, 4h, 1d, 1w)")
	klinesCmd.Flags().IntVar(&klinesLimit, "limit", 0, "number of candles to fetch (server default when 0)")
	klinesCmd.Flags().StringVarP(&klinesOutput, "output", "o", "table", "output format: table or json")
	_ = klinesCmd.MarkFlagRequired("symbol")
}
