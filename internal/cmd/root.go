package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tradelens/tradelens/internal/binance"
	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/metrics"
	"github.com/tradelens/tradelens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Loaded configuration, valid after initConfig.
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradelens",
	Short: "Rate-limit-aware exchange REST client",
	Long: `tradelens talks to the exchange's public REST API while tracking
every rate limit window the server enforces, so a busy caller never
walks into an IP or account ban.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	metrics.Register()
}

// initConfig reads the config file and environment, then sets up the
// CLI logger.
func initConfig() {
	observability.InitCLILogger("tradelens", verbose)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		ExitWithCodeStderr(exitCodeConfigInvalid, "Failed to load configuration", err)
	}
	appConfig = cfg
}

// newClient builds an exchange client from the loaded configuration.
func newClient() (*binance.Client, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	opts := binance.Options{
		BaseURL:        appConfig.Exchange.BaseURL,
		APIKey:         appConfig.Exchange.APIKey,
		APISecret:      appConfig.Exchange.APISecret,
		RequestTimeout: appConfig.Exchange.RequestTimeout,
		RecvWindow:     appConfig.Exchange.RecvWindow,
		BanPrevention:  appConfig.Exchange.BanPrevention,
		PreCheck:       appConfig.Exchange.PreCheck,
		Logger:         observability.NewClientLogger(verbose),
	}

	if appConfig.LimitTemplatesFile != "" {
		templates, err := binance.LoadLimitTemplates(appConfig.LimitTemplatesFile)
		if err != nil {
			return nil, err
		}
		opts.LimitTemplates = templates
	}

	return binance.NewClient(opts)
}
