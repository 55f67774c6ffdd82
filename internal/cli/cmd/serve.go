package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/internal/config"
	"github.com/berrythewa/filebridge/internal/daemon"
)

func newServeCmd() *cobra.Command {
	var (
		pollInterval time.Duration
		noJournal    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a host answering the built-in methods",
		Long: `Run a bridge server in the foreground until interrupted.

The host answers ping, echo, sleep, fail and methods, plus journal.history,
journal.get and journal.stats while the journal is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pollInterval > 0 {
				cfg.Server.PollInterval = config.Duration(pollInterval)
			}
			if noJournal {
				cfg.Journal.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return daemon.Run(ctx, daemon.Options{
				Config: cfg,
				Logger: GetZapLogger(),
				Started: func(server *bridge.Server) {
					if !quiet {
						fmt.Fprintf(out, "✓ Serving %s (Ctrl+C to stop)\n", server.Dir().Root())
					}
				},
			})
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "how often to look for a request (default from config)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record handled calls")
	return cmd
}
