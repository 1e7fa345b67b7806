// Package config wraps viper for the byggekatalog server: defaults, an
// optional YAML file, and BYGGEKATALOG_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (BYGGEKATALOG_SERVER_PORT).
const EnvPrefix = "BYGGEKATALOG"

// Config is a nil-safe view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields a Config that returns zero values.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetFloat64(key string) float64 {
	if c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

func (c *Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	if c.v == nil {
		return New(nil)
	}
	sub := c.v.Sub(key)
	if sub == nil {
		return New(viper.New())
	}
	return New(sub)
}

// Unmarshal decodes the whole configuration into target using mapstructure
// tags.
func (c *Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// Settings is the typed server configuration.
type Settings struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`
	Catalog struct {
		Path          string        `mapstructure:"path"`
		URL           string        `mapstructure:"url"`
		FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
		KeepSnapshots int           `mapstructure:"keep_snapshots"`
	} `mapstructure:"catalog"`
	Cache struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"cache"`
	Admin struct {
		RateLimit float64 `mapstructure:"rate_limit"`
		Burst     int     `mapstructure:"burst"`
	} `mapstructure:"admin"`
	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"log"`
}

// Addr returns host:port.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("catalog.path", "products.json")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.fetch_timeout", "10s")
	v.SetDefault("catalog.keep_snapshots", 5)
	v.SetDefault("cache.path", "byggekatalog.db")
	v.SetDefault("admin.rate_limit", 1.0)
	v.SetDefault("admin.burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads configuration from path, or from byggekatalog.yaml in the
// working directory or /etc/byggekatalog when path is empty. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("byggekatalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/byggekatalog")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return New(v), nil
}

// Settings decodes the typed server configuration.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}
