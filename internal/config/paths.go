// File: internal/config/paths.go
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigPaths holds all relevant paths for the application
type ConfigPaths struct {
	BaseDir      string // Base directory for config files
	ActiveConfig string // Path to active config file
	DataDir      string // Directory for application data
	DBFile       string // Path to the call journal
	LogDir       string // Directory for log files
}

// GetConfigPaths returns the platform-specific configuration paths,
// creating the directories if they don't exist.
func GetConfigPaths() (*ConfigPaths, error) {
	paths, err := resolvePaths()
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{paths.BaseDir, paths.DataDir, paths.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// resolvePaths computes the paths without touching the filesystem. The
// returned value is never nil.
func resolvePaths() (*ConfigPaths, error) {
	paths := &ConfigPaths{}

	baseDir, err := configBaseDir()
	if err != nil {
		return paths, err
	}
	dataDir, err := dataBaseDir()
	if err != nil {
		return paths, err
	}

	paths.BaseDir = baseDir
	paths.ActiveConfig = filepath.Join(baseDir, "config.yaml")
	paths.DataDir = dataDir
	paths.DBFile = filepath.Join(dataDir, "journal.db")
	paths.LogDir = filepath.Join(dataDir, "logs")
	return paths, nil
}

func configBaseDir() (string, error) {
	// First check environment variable
	if dir := os.Getenv("FILEBRIDGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(configDir, "FileBridge"), nil
	case "darwin":
		return filepath.Join(configDir, "com.berrythewa.filebridge"), nil
	default: // Linux and others
		return filepath.Join(configDir, "filebridge"), nil
	}
}

func dataBaseDir() (string, error) {
	// First check environment variable
	if dir := os.Getenv("FILEBRIDGE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		if appData, err := os.UserConfigDir(); err == nil {
			return filepath.Join(appData, "FileBridge", "Data"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "FileBridge"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "FileBridge"), nil
	default: // Linux and others
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "filebridge"), nil
		}
		return filepath.Join(homeDir, ".filebridge"), nil
	}
}
