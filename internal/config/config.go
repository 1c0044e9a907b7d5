// Package config loads tabulator settings from defaults, an optional
// config.yaml, TABULATOR_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abrezinsky/tabulator/internal/logger"
)

// EnvPrefix is prepended to every environment variable, e.g. TABULATOR_SERVER_PORT
const EnvPrefix = "TABULATOR"

// Config is the resolved configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Live     LiveConfig     `mapstructure:"live"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL is what QR codes point at. Empty means "detect the LAN address".
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	HTTP   bool   `mapstructure:"http"`
}

type LiveConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// LoggerOptions builds logger options from the log section
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: logger.ParseLevel(c.Log.Level), Format: c.Log.Format}
}

// SetDefaults registers every key so environment variables can override it
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("database.path", "tabulator.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.http", false)
	v.SetDefault("live.poll_interval", "2s")
}

// Load resolves the configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and is optional.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Live.PollInterval <= 0 {
		return fmt.Errorf("live.poll_interval must be positive, got %s", c.Live.PollInterval)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
