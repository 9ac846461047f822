// Package config loads and saves finscore settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/finscore/internal/period"
)

// Environment overrides, applied after the config file and .env.
const (
	EnvUser     = "FINSCORE_USER"
	EnvDBDriver = "FINSCORE_DB_DRIVER"
	EnvDBDSN    = "FINSCORE_DB_DSN"
)

// Config holds all finscore configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Store      StoreConfig      `toml:"store"`
	Cache      CacheConfig      `toml:"cache"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultPeriod string `toml:"default_period"`
	UserID        string `toml:"user_id"`
	ImportDir     string `toml:"import_dir,omitempty"`
	LogLevel      string `toml:"log_level"`
}

// StoreConfig selects the record database.
type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn,omitempty"`
}

// CacheConfig controls report caching.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	TTLMinutes int  `toml:"ttl_minutes"`
	MemoryMB   int  `toml:"memory_mb"`
}

// DaemonConfig holds settings of the background service.
type DaemonConfig struct {
	Addr         string   `toml:"addr"`
	Schedule     string   `toml:"schedule"`
	EventsBuffer int      `toml:"events_buffer"`
	AllowOrigins []string `toml:"allow_origins,omitempty"`
}

// AppearanceConfig holds display settings.
type AppearanceConfig struct {
	Theme    string `toml:"theme"`
	Locale   string `toml:"locale"`
	Currency string `toml:"currency"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultPeriod: string(period.Month),
			LogLevel:      "warn",
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLMinutes: 15,
			MemoryMB:   32,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			Schedule:     "@every 5m",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme:    "flexoki-dark",
			Locale:   "en-US",
			Currency: "$",
		},
	}
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := period.ParseLabel(c.General.DefaultPeriod); err != nil {
		return fmt.Errorf("general.default_period: %w", err)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return errors.New("store.dsn: required for postgres")
	}
	if c.Cache.TTLMinutes < 0 {
		return errors.New("cache.ttl_minutes: must not be negative")
	}
	return nil
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finscore")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finscore")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the platform-appropriate data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "finscore")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "finscore")
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "finscore.db")
}

// Load reads .env (when present) and the config file, returning defaults
// if it doesn't exist, then applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("reading .env: %w", err)
	}

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg from FINSCORE_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvUser); v != "" {
		cfg.General.UserID = v
	}
	if v := os.Getenv(EnvDBDriver); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		cfg.Store.DSN = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
