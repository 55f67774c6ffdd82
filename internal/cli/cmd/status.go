package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/pkg/format"
)

// channelStatus is the --json rendering of the status command.
type channelStatus struct {
	Dir     string   `json:"dir"`
	Exists  bool     `json:"exists"`
	Files   []string `json:"files"`
	Pinged  bool     `json:"pinged,omitempty"`
	Healthy bool     `json:"healthy,omitempty"`
	Latency string   `json:"latency,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var (
		ping    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the channel directory",
		Long: `Show whether the channel directory exists and which coordination files
are present. With --ping, also check that a host answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ipc.NewDir(cfg.Channel.Dir)
			status := channelStatus{
				Dir:    dir.Root(),
				Exists: dir.Exists(),
				Files:  dir.Present(),
			}
			if status.Files == nil {
				status.Files = []string{}
			}

			var pingErr error
			if ping {
				status.Pinged = true
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				start := time.Now()
				_, pingErr = newClient(timeout).Call(ctx, "ping", nil)
				if pingErr == nil {
					status.Healthy = true
					status.Latency = format.FormatDuration(time.Since(start))
				} else {
					status.Error = pingErr.Error()
				}
			}

			out := cmd.OutOrStdout()
			if useJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(status); err != nil {
					return err
				}
			} else {
				colors := colorsFor(out)
				fmt.Fprintf(out, "Channel: %s\n", status.Dir)
				if !status.Exists {
					fmt.Fprintln(out, format.ColorizeIf("✗ Directory missing (no host running)", format.Yellow, colors))
				} else {
					fmt.Fprintln(out, format.ColorizeIf("✓ Directory exists", format.Green, colors))
					for _, name := range []string{ipc.LockFileName, ipc.RequestFileName, ipc.ResponseFileName} {
						mark := "-"
						for _, present := range status.Files {
							if present == name {
								mark = "●"
							}
						}
						fmt.Fprintf(out, "  %s %s\n", mark, name)
					}
				}
				if status.Pinged {
					if status.Healthy {
						fmt.Fprintln(out, format.ColorizeIf("✓ Host answered ping in "+status.Latency, format.Green, colors))
					} else {
						fmt.Fprintln(out, format.ColorizeIf("✗ Host did not answer: "+status.Error, format.Red, colors))
					}
				}
			}

			if pingErr != nil {
				return &ExitError{Code: exitCodeFor(pingErr), Err: pingErr}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "call ping on the host")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "ping timeout")
	return cmd
}
