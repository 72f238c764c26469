// Package cli implements the cartsync command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/cartsync/internal/infrastructure/config"
	"github.com/eshaffer321/cartsync/internal/infrastructure/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	BaseURL    string
	Verbose    bool

	// Set in PersistentPreRunE
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the cartsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cartsync",
		Short: "Drive a storefront cart and checkout from the terminal",
		Long: `cartsync edits a storefront cart, keeps totals in step with the server,
and places orders through the checkout form.

Configuration is read from --config, then config.yaml, then CARTSYNC_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "storefront base URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewDevServerCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		o.Config = cfg
	} else {
		o.Config = config.LoadOrEnv()
	}

	if o.BaseURL != "" {
		o.Config.Storefront.BaseURL = o.BaseURL
	}

	loggingCfg := o.Config.Observability.Logging
	if o.Verbose {
		loggingCfg.Level = "debug"
	}
	o.Logger = logging.NewLoggerTo(cmd.ErrOrStderr(), loggingCfg)
	return nil
}

// component scopes the shared logger.
func (o *RootOptions) component(name string) *slog.Logger {
	return o.Logger.With(logging.ComponentKey, name)
}
