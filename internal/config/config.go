// Package config loads zabbixdash configuration with Viper and builds the logger.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for session.storage.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config is the typed view of the settings the binary uses.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Zabbix   ZabbixConfig   `mapstructure:"zabbix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	WSOrigins      []string      `mapstructure:"ws_origins"`    // extra origins allowed on /api/v1/events
	DevMode        bool          `mapstructure:"dev_mode"`      // serves Swagger UI
	APISecret      string        `mapstructure:"api_secret"`    // requires bearer tokens on /api/ when set
	APITokenTTL    time.Duration `mapstructure:"api_token_ttl"` // default lifetime of issued tokens
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	Storage    string `mapstructure:"storage"`    // "sqlite" or "memory"
	Passphrase string `mapstructure:"passphrase"` // seals the token at rest when set
}

// ZabbixConfig holds defaults for reaching the Zabbix server.
type ZabbixConfig struct {
	URL      string        `mapstructure:"url"`      // default server for CLI login
	Username string        `mapstructure:"username"` // default user for CLI login
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from configPath, or from zabbixdash.yaml in the
// usual locations when configPath is empty. A missing file is not an error.
// Environment variables override file values: ZD_SERVER_PORT=9090.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.ws_origins", []string{})
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.api_secret", "")
	v.SetDefault("server.api_token_ttl", "720h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/zabbixdash.db")
	v.SetDefault("session.storage", StorageSQLite)
	v.SetDefault("session.passphrase", "")
	v.SetDefault("zabbix.url", "")
	v.SetDefault("zabbix.username", "")
	v.SetDefault("zabbix.timeout", "30s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("zabbixdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/zabbixdash")
	}

	v.SetEnvPrefix("ZD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	switch cfg.Session.Storage {
	case StorageSQLite, StorageMemory:
	default:
		return nil, fmt.Errorf("invalid session.storage %q: must be %q or %q", cfg.Session.Storage, StorageSQLite, StorageMemory)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return &cfg, nil
}
