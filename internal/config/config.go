// File: internal/config/config.go

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/berrythewa/filebridge/internal/ipc"
	"github.com/berrythewa/filebridge/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	// Channel directory shared by client and host
	Channel ChannelConfig `json:"channel" yaml:"channel" toml:"channel"`

	// Client-side call behavior
	Client ClientConfig `json:"client" yaml:"client" toml:"client"`

	// Host-side polling
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`

	// Call journal kept by the server
	Journal JournalConfig `json:"journal" yaml:"journal" toml:"journal"`

	// Logging configuration
	Log LogConfig `json:"log" yaml:"log" toml:"log"`

	// System paths, resolved at load time and never persisted
	SystemPaths ConfigPaths `json:"-" yaml:"-" toml:"-"`
}

// ChannelConfig locates the channel directory
type ChannelConfig struct {
	Dir string `json:"dir" yaml:"dir" toml:"dir"`
}

// ClientConfig holds call timing
type ClientConfig struct {
	Timeout      Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	ReadGrace    Duration `json:"read_grace" yaml:"read_grace" toml:"read_grace"`
}

// ServerConfig holds the host poll tick
type ServerConfig struct {
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
}

// JournalConfig holds call journal settings
type JournalConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	DBPath    string `json:"db_path" yaml:"db_path" toml:"db_path"`
	KeepItems int    `json:"keep_items" yaml:"keep_items" toml:"keep_items"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level             string `json:"level" yaml:"level" toml:"level"`
	Format            string `json:"format" yaml:"format" toml:"format"` // "json" or "console"
	EnableFileLogging bool   `json:"enable_file_logging" yaml:"enable_file_logging" toml:"enable_file_logging"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	paths, _ := resolvePaths() // Ignore error, paths stay empty and the journal falls back to the data dir at load

	return &Config{
		Channel: ChannelConfig{
			Dir: ipc.DefaultRoot(),
		},
		Client: ClientConfig{
			Timeout:      Duration(30 * time.Second),
			PollInterval: Duration(50 * time.Millisecond),
			ReadGrace:    Duration(10 * time.Millisecond),
		},
		Server: ServerConfig{
			PollInterval: Duration(100 * time.Millisecond),
		},
		Journal: JournalConfig{
			Enabled:   true,
			DBPath:    paths.DBFile,
			KeepItems: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		SystemPaths: *paths,
	}
}

// Load loads the configuration from the specified file or creates default if not exists.
// Environment overrides are applied last.
func Load(configPath string) (*Config, error) {
	// If no config path provided, use default
	if configPath == "" {
		var err error
		configPath, err = GetActiveConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()

	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Create default config if it doesn't exist
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err := decode(configPath, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Journal.DBPath == "" {
		cfg.Journal.DBPath = cfg.SystemPaths.DBFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to the specified file. The encoding follows
// the file extension: .toml for TOML, anything else YAML.
func (c *Config) Save(configPath string) error {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Encode(formatOf(configPath))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := utils.WriteFileAtomic(configPath, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders the config as "yaml" or "toml".
func (c *Config) Encode(format string) ([]byte, error) {
	switch format {
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "yaml", "":
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Channel.Dir) == "" {
		return fmt.Errorf("channel.dir must not be empty")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive, got %s", c.Client.Timeout)
	}
	if c.Client.PollInterval <= 0 {
		return fmt.Errorf("client.poll_interval must be positive, got %s", c.Client.PollInterval)
	}
	if c.Client.ReadGrace < 0 {
		return fmt.Errorf("client.read_grace must not be negative, got %s", c.Client.ReadGrace)
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("server.poll_interval must be positive, got %s", c.Server.PollInterval)
	}
	if c.Journal.KeepItems < 0 {
		return fmt.Errorf("journal.keep_items must not be negative, got %d", c.Journal.KeepItems)
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required when the journal is enabled")
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// GetActiveConfigPath returns the path to the currently active config:
// the first existing config.{yaml,yml,toml} in the config dir, else config.yaml.
func GetActiveConfigPath() (string, error) {
	if path := os.Getenv("FILEBRIDGE_CONFIG"); path != "" {
		return path, nil
	}
	paths, err := GetConfigPaths()
	if err != nil {
		return "", err
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		candidate := filepath.Join(paths.BaseDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return paths.ActiveConfig, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch formatOf(path) {
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// overrideFromEnv overrides configuration values from environment variables
func overrideFromEnv(config *Config) error {
	if val := os.Getenv("FILEBRIDGE_DIR"); val != "" {
		config.Channel.Dir = val
	}

	durations := []struct {
		env    string
		target *Duration
	}{
		{"FILEBRIDGE_TIMEOUT", &config.Client.Timeout},
		{"FILEBRIDGE_CLIENT_POLL", &config.Client.PollInterval},
		{"FILEBRIDGE_READ_GRACE", &config.Client.ReadGrace},
		{"FILEBRIDGE_SERVER_POLL", &config.Server.PollInterval},
	}
	for _, d := range durations {
		val := os.Getenv(d.env)
		if val == "" {
			continue
		}
		if err := d.target.UnmarshalText([]byte(val)); err != nil {
			return fmt.Errorf("%s: %w", d.env, err)
		}
	}

	if val := os.Getenv("FILEBRIDGE_JOURNAL"); val != "" {
		switch strings.ToLower(val) {
		case "off", "false", "0", "no":
			config.Journal.Enabled = false
		case "on", "true", "1", "yes":
			config.Journal.Enabled = true
		default:
			config.Journal.Enabled = true
			config.Journal.DBPath = val
		}
	}
	if val := os.Getenv("FILEBRIDGE_JOURNAL_KEEP"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("FILEBRIDGE_JOURNAL_KEEP: %w", err)
		}
		config.Journal.KeepItems = n
	}
	if val := os.Getenv("FILEBRIDGE_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv("FILEBRIDGE_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
	return nil
}
