package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "BIGFISH_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "bigfish.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "bigfish"
	// CredentialMarker identifies Firebase service-account key files
	CredentialMarker = "firebase-adminsdk"
)

// SearchPaths lists config file candidates in priority order:
// 1. $BIGFISH_CONFIG (explicit path)
// 2. ./bigfish.yaml (working directory)
// 3. $XDG_CONFIG_HOME/bigfish/config.yaml
// 4. ~/.config/bigfish/config.yaml
// 5. /etc/bigfish/config.yaml
func SearchPaths(getenv func(string) string) []string {
	var paths []string
	if path := getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing search path, or empty string
func FindConfigPath() string {
	for _, path := range SearchPaths(os.Getenv) {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

// ErrNoCredentials is returned when no service-account key can be found
var ErrNoCredentials = errors.New("could not find service account JSON file")

// FindCredentialFile returns explicit when set, otherwise the first *.json
// file in dir, then its parent, whose name contains CredentialMarker.
// An explicit path must exist.
func FindCredentialFile(explicit, dir string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoCredentials, explicit)
		}
		return explicit, nil
	}
	searched := []string{dir, filepath.Join(dir, "..")}
	for _, d := range searched {
		matches, err := filepath.Glob(filepath.Join(d, "*.json"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if strings.Contains(filepath.Base(m), CredentialMarker) {
				return m, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no *%s*.json in %s", ErrNoCredentials, CredentialMarker, strings.Join(searched, ", "))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
