// Package cli holds the backoffice command tree.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"backoffice/internal/config"
	"backoffice/internal/observability"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	LogLevel string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Restaurant back-office and dual-screen POS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Load()
			if opts.LogLevel != "" {
				config.AppEnv.LogLevel = opts.LogLevel
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config.AppEnv)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewPaymentMethodsCommand())
	cmd.AddCommand(NewDisplayCommand())

	return cmd
}

func newLogger() (*zap.Logger, error) {
	return observability.NewLogger(config.AppEnv.LogLevel)
}
