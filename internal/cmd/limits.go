package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradelens/tradelens/internal/output"
)

var (
	limitsOutput string
	limitsSync   bool
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the tracked rate limit windows",
	Long: `Show the rate limit windows the client tracks locally, with their
current usage. With --sync the exchange's advertised limits are fetched
first and folded into the local set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(limitsOutput)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		if limitsSync {
			if _, err := client.ExchangeInfo(cmd.Context()); err != nil {
				return err
			}
		}

		statuses := client.Limits().Snapshot()

		if format == output.FormatJSON {
			payload, err := output.FormatJSONValue(statuses)
			if err != nil {
				return err
			}
			fmt.Println(payload)
			return nil
		}

		fmt.Println(output.FormatLimits(statuses))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)
	limitsCmd.Flags().StringVarP(&limitsOutput, "output", "o", "table", "output format: table or json")
	limitsCmd.Flags().BoolVar(&limitsSync, "sync", false, "fetch the exchange's advertised limits before listing")
}
