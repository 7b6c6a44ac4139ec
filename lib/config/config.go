// Package config loads hxssr settings with Viper from, in increasing
// priority, built-in defaults, a .hxssr.yml file, HXSSR_ environment
// variables and command-line flags bound by the caller.
//
// HTMX_SSR_BASE_URL is accepted as an alias for server.base_url.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: server.addr is read
// from HXSSR_SERVER_ADDR.
const EnvPrefix = "HXSSR"

// EnvBaseURL is the legacy name of the base URL variable.
const EnvBaseURL = "HTMX_SSR_BASE_URL"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Reload  ReloadConfig  `mapstructure:"reload"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	BaseURL           string        `mapstructure:"base_url"`
	Grace             time.Duration `mapstructure:"grace"`
	ReadyTimeout      time.Duration `mapstructure:"ready_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

type ReloadConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type WatchConfig struct {
	Paths        []string      `mapstructure:"paths"`
	Extensions   []string      `mapstructure:"extensions"`
	Ignore       []string      `mapstructure:"ignore"`
	Debounce     time.Duration `mapstructure:"debounce"`
	Build        string        `mapstructure:"build"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// SetDefaults registers every key with its default. Keys without a
// default are invisible to environment overrides on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.grace", 10*time.Second)
	v.SetDefault("server.ready_timeout", 15*time.Second)
	v.SetDefault("server.read_header_timeout", 10*time.Second)

	v.SetDefault("reload.enabled", true)
	v.SetDefault("reload.path", "/_hxssr/reload")

	v.SetDefault("watch.paths", []string{"."})
	v.SetDefault("watch.extensions", []string{".go", ".templ", ".html", ".css"})
	v.SetDefault("watch.ignore", []string{".git", "node_modules", "vendor", "tmp"})
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.build", "")
	v.SetDefault("watch.build_timeout", 2*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "hxssr")
}

// New returns a Viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.base_url", EnvPrefix+"_SERVER_BASE_URL", EnvBaseURL)
	return v
}

// ReadFile reads path, or .hxssr.yml from the working directory when path
// is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".hxssr")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Server.BaseURL = strings.TrimSpace(cfg.Server.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.BaseURL != "" {
		if _, err := url.Parse(c.Server.BaseURL); err != nil {
			return fmt.Errorf("server.base_url %q: %w", c.Server.BaseURL, err)
		}
	}

	durations := map[string]time.Duration{
		"server.grace":               c.Server.Grace,
		"server.ready_timeout":       c.Server.ReadyTimeout,
		"server.read_header_timeout": c.Server.ReadHeaderTimeout,
		"watch.debounce":             c.Watch.Debounce,
		"watch.build_timeout":        c.Watch.BuildTimeout,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", key, d)
		}
	}

	if c.Reload.Enabled && !strings.HasPrefix(c.Reload.Path, "/") {
		return fmt.Errorf("reload.path must start with /, got %q", c.Reload.Path)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
