package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for vidsource
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Subtitles SubtitlesConfig `mapstructure:"subtitles"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Player    PlayerConfig    `mapstructure:"player"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Advanced  AdvancedConfig  `mapstructure:"advanced"`
}

// APIConfig configures the source aggregation API
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	// ProviderID tags sources that do not name their own provider
	ProviderID string `mapstructure:"provider_id"`
}

// SubtitlesConfig configures the subtitle listing endpoint
type SubtitlesConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProvidersConfig configures the built-in embed providers
type ProvidersConfig struct {
	Disabled []string    `mapstructure:"disabled"`
	Theme    ThemeConfig `mapstructure:"theme"`
}

// ThemeConfig holds presentation parameters passed to embed players
type ThemeConfig struct {
	PrimaryColor   string `mapstructure:"primary_color"`
	SecondaryColor string `mapstructure:"secondary_color"`
	IconColor      string `mapstructure:"icon_color"`
	Autoplay       bool   `mapstructure:"autoplay"`
}

// PlayerConfig configures playback sessions
type PlayerConfig struct {
	ControlsTimeout time.Duration `mapstructure:"controls_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Keys            KeysConfig    `mapstructure:"keys"`
	LoadUserConfig  bool          `mapstructure:"load_user_config"` // let mpv read ~/.config/mpv
	MPVArgs         []string      `mapstructure:"mpv_args"`
}

// KeysConfig holds the session-wide key bindings
type KeysConfig struct {
	Close        string `mapstructure:"close"`
	ShowControls string `mapstructure:"show_controls"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	RateLimit       int           `mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowPrivateCaptions lets /api/captions fetch from loopback and private hosts
	AllowPrivateCaptions bool `mapstructure:"allow_private_captions"`
}

// CacheConfig configures resolution memoization in long-running processes
type CacheConfig struct {
	Size int           `mapstructure:"size"` // 0 disables
	TTL  time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig configures the preference store
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode"`
}

// LoggingConfig configures the application logger
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AdvancedConfig holds debugging switches and platform overrides
type AdvancedConfig struct {
	Debug            bool   `mapstructure:"debug"`
	ClipboardCommand string `mapstructure:"clipboard_command"` // e.g. "wl-copy" or "xclip -selection clipboard"
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://pstream.vercel.app")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.max_retries", 0)
	v.SetDefault("api.provider_id", "p-stream")

	v.SetDefault("subtitles.base_url", "http://localhost:8080/api/subtitles")
	v.SetDefault("subtitles.timeout", 10*time.Second)

	v.SetDefault("providers.disabled", []string{})
	v.SetDefault("providers.theme.primary_color", "fbc9ff")
	v.SetDefault("providers.theme.secondary_color", "f8b4ff")
	v.SetDefault("providers.theme.icon_color", "fbc9ff")
	v.SetDefault("providers.theme.autoplay", true)

	v.SetDefault("player.controls_timeout", 3*time.Second)
	v.SetDefault("player.max_retries", 3)
	v.SetDefault("player.keys.close", "esc")
	v.SetDefault("player.keys.show_controls", "space")
	v.SetDefault("player.load_user_config", true)
	v.SetDefault("player.mpv_args", []string{})

	v.SetDefault("server.address", "127.0.0.1:7878")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_private_captions", false)

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("database.path", filepath.Join(getDataDir(), "vidsource", "vidsource.db"))
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.wal_mode", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("advanced.debug", false)
	v.SetDefault("advanced.clipboard_command", "")
}

// Load reads configuration from cfgFile (or the default location), the
// environment and defaults. The returned viper instance can be used to watch
// the file for changes.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(getConfigDir(), "vidsource"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VIDSOURCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// Validate checks values that would make the application misbehave
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Player.MaxRetries < 0 {
		return fmt.Errorf("player.max_retries must not be negative")
	}
	if c.Player.ControlsTimeout <= 0 {
		return fmt.Errorf("player.controls_timeout must be positive")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	return nil
}

// DefaultConfigPath returns the config file used when none is given
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "vidsource", "config.yaml")
}

// WriteDefault writes a config file holding every default value. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// InitializeDirs creates the config, data and state directories
func InitializeDirs() error {
	for _, dir := range []string{
		filepath.Join(getConfigDir(), "vidsource"),
		filepath.Join(getDataDir(), "vidsource"),
		filepath.Join(getStateDir(), "vidsource"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func getDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
	}
	return filepath.Join(home, ".local", "share")
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	if runtime.GOOS == "windows" {
		return getDataDir()
	}
	return filepath.Join(home, ".local", "state")
}
