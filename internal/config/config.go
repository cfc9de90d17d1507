// Package config loads server settings from a YAML file, SHRAMBA_*
// environment variables and built-in defaults, in increasing order of
// precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Query     QueryConfig     `mapstructure:"query"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// AdminUser is the name of the admin account created with a new
	// database.
	AdminUser string `mapstructure:"admin_user"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Path is an optional file that receives a copy of every log line.
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// InventoryConfig holds inventory thresholds.
type InventoryConfig struct {
	LowStockThreshold     float64 `mapstructure:"low_stock_threshold"`
	ExpirationWarningDays int     `mapstructure:"expiration_warning_days"`
}

// QueryConfig tunes live browsing.
type QueryConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// EnvPrefix prefixes every environment override, e.g.
// SHRAMBA_SERVER_ADDR.
const EnvPrefix = "SHRAMBA"

var defaults = map[string]any{
	"database.path":                     "shramba.sqlite3",
	"server.addr":                       ":8080",
	"server.admin_user":                 "Admin",
	"log.path":                          "",
	"log.level":                         "info",
	"inventory.low_stock_threshold":     1.0,
	"inventory.expiration_warning_days": 7,
	"query.debounce":                    "300ms",
}

// DefaultPath returns ~/.config/shramba/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "shramba", "config.yaml")
}

// Load reads the configuration at path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Server.AdminUser == "" {
		return errors.New("server.admin_user must not be empty")
	}
	if c.Inventory.LowStockThreshold < 0 {
		return errors.New("inventory.low_stock_threshold must not be negative")
	}
	if c.Inventory.ExpirationWarningDays < 0 {
		return errors.New("inventory.expiration_warning_days must not be negative")
	}
	if c.Query.Debounce < 0 {
		return errors.New("query.debounce must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ExpirationWarning is the look-ahead window for near-expiration queries.
func (c InventoryConfig) ExpirationWarning() time.Duration {
	return time.Duration(c.ExpirationWarningDays) * 24 * time.Hour
}
