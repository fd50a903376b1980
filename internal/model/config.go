package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig points the client at the platform backend.
type APIConfig struct {
	// BaseURL is the root of the REST API, including any path prefix
	// (e.g., https://novels.example.com/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// FeedConfig controls how the notification feed is synchronized.
type FeedConfig struct {
	PageSize        int `mapstructure:"page_size" yaml:"page_size"`
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// OpenLinks hands selected notification links to the system browser.
	OpenLinks bool `mapstructure:"open_links" yaml:"open_links"`
}

// LogConfig configures the diagnostic log. The terminal belongs to the
// UI, so logs always go to a file.
type LogConfig struct {
	File   string `mapstructure:"file" yaml:"file"`
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Feed    FeedConfig    `mapstructure:"feed" yaml:"feed"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

const (
	DefaultBaseURL         = "http://localhost:8080/api"
	DefaultTimeoutSec      = 15
	DefaultPageSize        = 10
	DefaultPollIntervalSec = 30
)

// ConfigDir returns ~/.config/novelbell, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "novelbell")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/novelbell/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: DefaultTimeoutSec,
		},
		Feed: FeedConfig{
			PageSize:        DefaultPageSize,
			PollIntervalSec: DefaultPollIntervalSec,
		},
		Log: LogConfig{
			File:   filepath.Join(ConfigDir(), "novelbell.log"),
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values can be overridden by NOVELBELL_* environment variables, e.g.
// NOVELBELL_API_BASE_URL. If the file does not exist, defaults (plus any
// environment overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("novelbell")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv knows which keys exist.
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("feed.page_size", def.Feed.PageSize)
	v.SetDefault("feed.poll_interval_sec", def.Feed.PollIntervalSec)
	v.SetDefault("display.open_links", def.Display.OpenLinks)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Feed.PageSize <= 0 {
		cfg.Feed.PageSize = DefaultPageSize
	}
	if cfg.Feed.PollIntervalSec <= 0 {
		cfg.Feed.PollIntervalSec = DefaultPollIntervalSec
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = DefaultTimeoutSec
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("feed", cfg.Feed)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
