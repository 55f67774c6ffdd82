package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/ipc"
)

func newCleanCmd() *cobra.Command {
	var removeDir bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover coordination files from the channel",
		Long: `Remove request, response and lock files left behind by a crashed client
or host. Do not run this while a call is in flight.

With --remove-dir the channel directory itself is removed as well, which
makes clients report a connection error until a host starts again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			dir := ipc.NewDir(cfg.Channel.Dir)
			out := cmd.OutOrStdout()

			if !dir.Exists() {
				fmt.Fprintf(out, "Channel %s does not exist, nothing to clean\n", dir.Root())
				return nil
			}

			present := dir.Present()
			if err := dir.Clean(); err != nil {
				return fmt.Errorf("failed to clean channel: %w", err)
			}
			logger.Info("Channel cleaned",
				zap.String("dir", dir.Root()),
				zap.Strings("removed", present))

			if removeDir {
				if err := os.Remove(dir.CallLockPath()); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to remove call lock: %w", err)
				}
				if err := os.Remove(dir.Root()); err != nil {
					return fmt.Errorf("failed to remove channel directory: %w", err)
				}
				fmt.Fprintf(out, "✓ Removed channel %s\n", dir.Root())
				return nil
			}

			if len(present) == 0 {
				fmt.Fprintln(out, "✓ Channel already clean")
				return nil
			}
			fmt.Fprintf(out, "✓ Removed %d file(s) from %s\n", len(present), dir.Root())
			for _, name := range present {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&removeDir, "remove-dir", false, "also remove the channel directory")
	return cmd
}
