package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the sources file name searched in the current and home directories.
const DefaultConfigFile = ".coursecrawl.yaml"

// XDGConfigFile is the sources file name inside the XDG config directory.
const XDGConfigFile = "sources.yaml"

// LoadConfigFile loads the sources file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Sources == nil {
		cf.Sources = make([]SourceConfig, 0)
	}

	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the sources file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .coursecrawl.yaml in the current directory
// 3. Look for .coursecrawl.yaml in the user's home directory
// 4. Look for sources.yaml in the XDG config directory
//
// Returns the path to the sources file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	return ""
}
