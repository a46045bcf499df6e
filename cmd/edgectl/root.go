package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanizio/pageedge/internal/config"
	"github.com/yanizio/pageedge/internal/logger"
	"github.com/yanizio/pageedge/internal/vault"
)

func newRootCmd() *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:           "edgectl",
		Short:         "Operator tooling for the tenant edge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.Console(level)
		},
	}
	cmd.PersistentFlags().StringVar(&level, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newInvalidateCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the same config tree as cmd/web.
func loadConfig(ctx context.Context) (*config.Config, error) {
	var sr config.SecretResolver
	if config.NeedsVault() {
		vc, err := vault.New(ctx)
		if err != nil {
			return nil, err
		}
		sr = vc
	}
	return config.Load(ctx, sr)
}
