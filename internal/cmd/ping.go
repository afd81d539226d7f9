package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the exchange REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		start := time.Now()
		if err := client.Ping(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Print the exchange server time",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		serverTime, err := client.ServerTime(cmd.Context())
		if err != nil {
			return err
		}

		local := time.Now().UTC()
		fmt.Printf("server: %s\n", serverTime.UTC().Format(time.RFC3339Nano))
		fmt.Printf("local:  %s\n", local.Format(time.RFC3339Nano))
		fmt.Printf("drift:  %s\n", local.Sub(serverTime).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(timeCmd)
}
