package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the paths wt uses when nothing else is configured.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - WT_CONFIG_PATH: config file location (default: ~/.config/wt.toml)
//   - WT_HOME: base directory for wt data (default: ~/.local/share/wt)
func GetDefaults() (Defaults, error) {
	configPath, err := fromEnvOrHome("WT_CONFIG_PATH", ".config", "wt.toml")
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := fromEnvOrHome("WT_HOME", ".local", "share", "wt")
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns $name if set, else the home-relative path.
func fromEnvOrHome(name string, rel ...string) (string, error) {
	if path := os.Getenv(name); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
