package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Store   StoreConfig   `mapstructure:"store"`
	Player  PlayerConfig  `mapstructure:"player"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig holds remote catalog API configuration
type CatalogConfig struct {
	BaseURL  string        `mapstructure:"base_url"`  // e.g. https://interesnoitochka.ru/api/v1
	PageSize int           `mapstructure:"page_size"` // Records per fetchPage call
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FeedConfig holds the loading policy windows
type FeedConfig struct {
	PrefetchWindow  int `mapstructure:"prefetch_window"`  // K items ahead of a visible item
	PagingThreshold int `mapstructure:"paging_threshold"` // Load more when index >= len-threshold
	RetentionRadius int `mapstructure:"retention_radius"` // Players kept around the active index
}

// CacheConfig bounds the decoded image cache
type CacheConfig struct {
	CountLimit int   `mapstructure:"count_limit"`
	CostLimit  int64 `mapstructure:"cost_limit"` // Bytes of decoded RGBA
}

// StoreConfig holds the on-disk catalog cache configuration
type StoreConfig struct {
	Path   string        `mapstructure:"path"` // Empty for memory-only
	TagTTL time.Duration `mapstructure:"tag_ttl"`
}

// PlayerConfig holds external media player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:  "https://interesnoitochka.ru/api/v1",
			PageSize: 10,
			Timeout:  30 * time.Second,
		},
		Feed: FeedConfig{
			PrefetchWindow:  2,
			PagingThreshold: 3,
			RetentionRadius: 3,
		},
		Cache: CacheConfig{
			CountLimit: 100,
			CostLimit:  50 * 1024 * 1024,
		},
		Store: StoreConfig{
			Path:   defaultCachePath(),
			TagTTL: 24 * time.Hour,
		},
		Player: PlayerConfig{
			Command: "",
			Args:    []string{},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel", "reel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "reel.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reel", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "cache")
	}
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return load(viper.New(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration from an explicit file
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper, searchPaths ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(searchPaths) > 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	// Environment variable overrides (REEL_CATALOG_BASE_URL, ...)
	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override keys absent
// from the file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("catalog.base_url", cfg.Catalog.BaseURL)
	v.SetDefault("catalog.page_size", cfg.Catalog.PageSize)
	v.SetDefault("catalog.timeout", cfg.Catalog.Timeout)
	v.SetDefault("feed.prefetch_window", cfg.Feed.PrefetchWindow)
	v.SetDefault("feed.paging_threshold", cfg.Feed.PagingThreshold)
	v.SetDefault("feed.retention_radius", cfg.Feed.RetentionRadius)
	v.SetDefault("cache.count_limit", cfg.Cache.CountLimit)
	v.SetDefault("cache.cost_limit", cfg.Cache.CostLimit)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.tag_ttl", cfg.Store.TagTTL)
	v.SetDefault("player.command", cfg.Player.Command)
	v.SetDefault("player.args", cfg.Player.Args)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate checks values the feed cannot run without
func (c *Config) Validate() error {
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: catalog.base_url %q must be an absolute URL", domain.ErrInvalidConfiguration, c.Catalog.BaseURL)
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("%w: catalog.page_size %d must be positive", domain.ErrInvalidConfiguration, c.Catalog.PageSize)
	}
	if c.Feed.PrefetchWindow <= 0 || c.Feed.PagingThreshold <= 0 || c.Feed.RetentionRadius <= 0 {
		return fmt.Errorf("%w: feed windows must be positive", domain.ErrInvalidConfiguration)
	}
	if c.Cache.CountLimit <= 0 || c.Cache.CostLimit <= 0 {
		return fmt.Errorf("%w: cache limits must be positive", domain.ErrInvalidConfiguration)
	}
	return nil
}

// SaveConfig writes the configuration to the default config file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	return SaveConfigTo(cfg, filepath.Join(configPath, "config.yaml"))
}

// SaveConfigTo writes the configuration to path
func SaveConfigTo(cfg *Config, path string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	// Set fields individually to ensure correct key names (snake_case)
	v.Set("catalog.base_url", cfg.Catalog.BaseURL)
	v.Set("catalog.page_size", cfg.Catalog.PageSize)
	v.Set("catalog.timeout", cfg.Catalog.Timeout.String())

	v.Set("feed.prefetch_window", cfg.Feed.PrefetchWindow)
	v.Set("feed.paging_threshold", cfg.Feed.PagingThreshold)
	v.Set("feed.retention_radius", cfg.Feed.RetentionRadius)

	v.Set("cache.count_limit", cfg.Cache.CountLimit)
	v.Set("cache.cost_limit", cfg.Cache.CostLimit)

	v.Set("store.path", cfg.Store.Path)
	v.Set("store.tag_ttl", cfg.Store.TagTTL.String())

	v.Set("player.command", cfg.Player.Command)
	v.Set("player.args", cfg.Player.Args)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ClearCache removes the on-disk catalog cache
func ClearCache(cfg *Config) error {
	if cfg.Store.Path == "" {
		return nil
	}
	if err := os.RemoveAll(cfg.Store.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
