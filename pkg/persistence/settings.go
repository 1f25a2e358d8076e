package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings is process-wide CLI configuration, separate from any single
// workbook: the last workbook opened, and defaults for flags the user
// otherwise has to pass on every invocation.
type Settings struct {
	LastWorkbookPath string `json:"lastWorkbookPath,omitempty"`
	DefaultTimeoutMs int64  `json:"defaultTimeoutMs,omitempty"`
}

func settingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// LoadSettings reads settings.json, returning zero-value Settings if the
// file has never been created.
func LoadSettings() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// SaveSettings writes s to settings.json atomically.
func SaveSettings(s *Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	return writeJSONAtomic(path, s)
}
