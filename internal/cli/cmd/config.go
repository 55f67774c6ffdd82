package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage filebridge configuration",
		Long: `Manage filebridge configuration:
  • Initialize configuration for first-time setup
  • Show the effective configuration
  • Edit configuration in your preferred editor
  • Print the active config file path
  • Validate configuration`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEditCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

// noSetup marks a config command that must not load (and so create) the
// config file before it runs.
var noSetup = map[string]string{skipSetupAnnotation: "true"}

func activeConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	path, err := config.GetActiveConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get active config path: %w", err)
	}
	return path, nil
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		asTOML bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Initialize configuration for first-time setup",
		Annotations: noSetup,
		Long: `Write a configuration file with defaults to the config directory.
YAML is written unless --toml is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()

			configPath, err := activeConfigPath()
			if err != nil {
				return err
			}
			if asTOML && cfgFile == "" {
				configPath = filepath.Join(filepath.Dir(configPath), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("configuration already exists at %s\nUse --force to overwrite or 'filebridge config show' to view current config", configPath)
			}

			defaults := config.DefaultConfig()
			logger.Info("Initializing configuration", zap.String("config_path", configPath))
			if err := defaults.Save(configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration initialized at: %s\n", configPath)
			fmt.Fprintf(out, "✓ Channel directory: %s\n", defaults.Channel.Dir)
			fmt.Fprintf(out, "✓ Journal: %s\n", defaults.Journal.DBPath)
			fmt.Fprintln(out, "\nTo start a host, run: filebridge serve")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force overwrite existing configuration")
	cmd.Flags().BoolVar(&asTOML, "toml", false, "write config.toml instead of config.yaml")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after environment and flag overrides.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useJSON {
				format = "json"
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml", "toml":
				data, err := cfg.Encode(format)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = out.Write(data)
				return err
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, toml or json)")
	return cmd
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "edit",
		Short:       "Edit configuration in your preferred editor",
		Annotations: noSetup,
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			// If config doesn't exist, create with defaults
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.DefaultConfig().Save(configPath); err != nil {
					return fmt.Errorf("failed to create default config: %w", err)
				}
				fmt.Fprintln(out, "Created new configuration file with defaults")
			}

			editor := os.Getenv("VISUAL")
			if editor == "" {
				editor = os.Getenv("EDITOR")
			}
			if editor == "" {
				editor = "vi"
			}

			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}

			if _, err := config.Load(configPath); err != nil {
				fmt.Fprintf(out, "Warning: Configuration validation failed: %v\n", err)
				fmt.Fprintln(out, "The file has been saved, but may contain errors.")
				return nil
			}

			fmt.Fprintln(out, "Configuration updated and validated successfully")
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the active config file path",
		Annotations: noSetup,
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "validate [config-file]",
		Short:       "Validate configuration",
		Annotations: noSetup,
		Args:        cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := activeConfigPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				configPath = args[0]
			}

			if _, err := os.Stat(configPath); err != nil {
				return fmt.Errorf("cannot read %s: %w", configPath, err)
			}
			if _, err := config.Load(configPath); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration is valid: %s\n", configPath)
			return nil
		},
	}
}
