package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/config"
)

// skipSetupAnnotation marks commands that run without config or logger.
const skipSetupAnnotation = "filebridge/skip-setup"

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// flags never leak between executions.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filebridge",
		Short: "Call methods in a host process through a shared directory",
		Long: `filebridge exchanges JSON request/response messages with a host process
through files in a shared directory, for callers that cannot open sockets:
  • call methods on a running host and print the result
  • run a host that answers built-in methods
  • inspect and clean the channel directory
  • browse the journal of handled calls`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetupAnnotation] != "" {
				return nil
			}
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if zapLogger != nil {
				_ = zapLogger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")
	flags.StringVarP(&channelDir, "dir", "d", "", "channel directory (overrides channel.dir)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	flags.BoolVar(&useJSON, "json", false, "output in JSON format")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(GetCommands()...)
	return rootCmd
}

// setup loads the configuration and builds the logger shared by commands.
func setup() error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if channelDir != "" {
		loaded.Channel.Dir = channelDir
	}

	logger, err := SetupLogger(loaded)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	SetConfig(loaded)
	SetZapLogger(logger)

	logger.Debug("Configuration loaded",
		zap.String("channel_dir", loaded.Channel.Dir),
		zap.Bool("journal", loaded.Journal.Enabled),
		zap.String("log_level", loaded.Log.Level))
	return nil
}
