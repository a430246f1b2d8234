package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/assetsum/assetsum/internal/config"
	"github.com/assetsum/assetsum/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "assetsum",
		Short:        "CRC-32 fingerprints for game assets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return logging.Setup(cfg.Logging)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "assetsum.yaml", "path to config file")

	root.AddCommand(
		newSumCmd(),
		newServeCmd(),
		newScanCmd(),
		newVerifyCmd(),
		newRebuildCmd(),
		newCompactCmd(),
		newGenCmd(),
	)
	return root
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
