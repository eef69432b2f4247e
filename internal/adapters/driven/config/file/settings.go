// Package file loads application settings from a TOML file in the
// mirrornote config directory.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultDirName is the per-user directory holding settings and data.
const DefaultDirName = ".mirrornote"

// Settings is the application configuration read from settings.toml. All
// fields are optional; zero values select the built-in defaults.
type Settings struct {
	// AppVersion identifies this build against the remote min_app_version
	// gate.
	AppVersion string `toml:"app_version"`

	// DataDir is where configuration blobs and the profile live.
	DataDir string `toml:"data_dir"`

	Remote struct {
		// BaseURL of the remote configuration service. Empty disables
		// remote updates.
		BaseURL string `toml:"base_url"`

		// APIKey sent as a bearer token.
		APIKey string `toml:"api_key"`

		// FetchTimeout bounds a single fetch attempt. A duration string
		// like "15s" or "1m".
		FetchTimeout string `toml:"fetch_timeout"`

		// MaxRetries bounds retry attempts per update.
		MaxRetries int `toml:"max_retries"`
	} `toml:"remote"`

	Storage struct {
		// Backend selects the blob store: "file" (default) or "sqlite".
		Backend string `toml:"backend"`
	} `toml:"storage"`

	Generation struct {
		// APIKey for the generation backend. Falls back to the
		// OPENAI_API_KEY environment variable.
		APIKey string `toml:"api_key"`

		// BaseURL overrides the generation API endpoint.
		BaseURL string `toml:"base_url"`

		// Model selects the generation model.
		Model string `toml:"model"`
	} `toml:"generation"`
}

// FetchTimeoutDuration parses the configured fetch timeout. Returns zero
// when unset or unparseable so callers fall back to their default.
func (s *Settings) FetchTimeoutDuration() time.Duration {
	if s.Remote.FetchTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Remote.FetchTimeout)
	if err != nil {
		return 0
	}
	return d
}

// DefaultDir returns ~/.mirrornote.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Load reads settings from path. A missing file yields zero-value
// settings so the application runs with defaults out of the box.
func Load(path string) (*Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &s, nil
}

// Save writes settings to path, creating the directory if needed.
func Save(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
