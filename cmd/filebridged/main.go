// Command filebridged is a standalone host answering the built-in methods
// on the configured channel until it receives SIGINT or SIGTERM.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/berrythewa/filebridge/internal/common"
	"github.com/berrythewa/filebridge/internal/config"
	"github.com/berrythewa/filebridge/internal/daemon"
)

func main() {
	var configPath, dir string

	rootCmd := &cobra.Command{
		Use:           "filebridged",
		Short:         "Serve the filebridge channel until interrupted",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config first
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Channel.Dir = dir
			}

			logger, err := common.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return daemon.Run(ctx, daemon.Options{Config: cfg, Logger: logger})
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default is the user config dir)")
	rootCmd.Flags().StringVarP(&dir, "dir", "d", "", "channel directory (overrides channel.dir)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
