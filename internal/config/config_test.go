package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, v, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "https://pstream.vercel.app", cfg.API.BaseURL)
	assert.Equal(t, 0, cfg.API.MaxRetries, "the aggregator client does not retry by default")
	assert.Equal(t, "p-stream", cfg.API.ProviderID)
	assert.Equal(t, 3*time.Second, cfg.Player.ControlsTimeout)
	assert.Equal(t, 3, cfg.Player.MaxRetries)
	assert.Equal(t, "esc", cfg.Player.Keys.Close)
	assert.Equal(t, "space", cfg.Player.Keys.ShowControls)
	assert.Equal(t, "fbc9ff", cfg.Providers.Theme.PrimaryColor)
	assert.True(t, cfg.Providers.Theme.Autoplay)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  base_url: https://aggregator.example
  timeout: 5s
player:
  max_retries: 5
  keys:
    close: q
providers:
  disabled: [superembed]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("VIDSOURCE_SERVER_ADDRESS", "0.0.0.0:9999")

	cfg, _, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://aggregator.example", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.Player.MaxRetries)
	assert.Equal(t, "q", cfg.Player.Keys.Close)
	assert.Equal(t, "space", cfg.Player.Keys.ShowControls, "unset keys keep defaults")
	assert.Equal(t, []string{"superembed"}, cfg.Providers.Disabled)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Address)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player: [unclosed"), 0644))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			API:    APIConfig{BaseURL: "https://aggregator.example"},
			Player: PlayerConfig{MaxRetries: 3, ControlsTimeout: time.Second},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.API.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Player.MaxRetries = -1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Player.ControlsTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Cache.Size = -1
	assert.Error(t, cfg.Validate())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Player.MaxRetries)

	assert.Error(t, WriteDefault(path), "existing files are not overwritten")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("WARNING").String())
	assert.Equal(t, "ERROR", parseLogLevel("error").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidsource.log")
	logger, err := InitLogger(&LoggingConfig{Level: "debug", File: path, Format: "json", MaxSize: 1})
	require.NoError(t, err)

	logger.With("session", "abc").Info("hello", "provider", "vidplus")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"session":"abc"`)
}
