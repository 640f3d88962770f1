package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "COURTROOM_CONFIG"

// GetConfigPath returns $COURTROOM_CONFIG when set and non-empty, else
// ~/.courtroom/config.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".courtroom", "config"), nil
}

// EnsureConfigDir creates the directory GetConfigPath points into.
func EnsureConfigDir() error {
	path, err := GetConfigPath()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0755)
	}
	return err
}
