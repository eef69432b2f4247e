package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.toml"))

	require.NoError(t, err)
	assert.Equal(t, "", s.AppVersion)
	assert.Equal(t, "", s.Remote.BaseURL)
	assert.Equal(t, "", s.Storage.Backend)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := `
app_version = "1.4.0"
data_dir = "/tmp/mirrornote"

[remote]
base_url = "https://config.example.com"
api_key = "secret"
fetch_timeout = "15s"
max_retries = 5

[storage]
backend = "sqlite"

[generation]
model = "gpt-4o"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "1.4.0", s.AppVersion)
	assert.Equal(t, "/tmp/mirrornote", s.DataDir)
	assert.Equal(t, "https://config.example.com", s.Remote.BaseURL)
	assert.Equal(t, "secret", s.Remote.APIKey)
	assert.Equal(t, "15s", s.Remote.FetchTimeout)
	assert.Equal(t, 15*time.Second, s.FetchTimeoutDuration())
	assert.Equal(t, 5, s.Remote.MaxRetries)
	assert.Equal(t, "sqlite", s.Storage.Backend)
	assert.Equal(t, "gpt-4o", s.Generation.Model)
}

func TestSettings_FetchTimeoutDuration_BadValueFallsBack(t *testing.T) {
	var s Settings
	s.Remote.FetchTimeout = "soon"

	assert.Equal(t, time.Duration(0), s.FetchTimeoutDuration())
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("app_version = ["), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")

	var s Settings
	s.AppVersion = "2.0.0"
	s.Remote.BaseURL = "https://config.example.com"
	s.Remote.MaxRetries = 2
	s.Storage.Backend = "file"
	require.NoError(t, Save(path, &s))

	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, &s, loaded)
}
