// Package config loads the storefront configuration from a YAML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
	// SecureCookies marks the visitor cookie Secure.
	SecureCookies   bool          `yaml:"secure_cookies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// APIConfig points at the remote REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects where carts and session entries live.
type StoreConfig struct {
	Kind          string `yaml:"kind"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
}

// SessionConfig configures session entry sealing.
type SessionConfig struct {
	// Secret keys the sealing of stored tokens. When empty a random secret
	// is generated at startup and sessions do not survive restarts.
	Secret      string        `yaml:"secret"`
	SweepPeriod time.Duration `yaml:"sweep_period"`
}

// LogConfig configures logging.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			WebDir:          "web",
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8000/api/v1",
			Timeout: 15 * time.Second,
		},
		Store:   StoreConfig{Kind: StoreMemory},
		Session: SessionConfig{SweepPeriod: 10 * time.Minute},
		Log:     LogConfig{Mode: "dev"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "ADDR")
	set(&c.Server.WebDir, "WEB_DIR")
	set(&c.API.BaseURL, "API_BASE_URL")
	set(&c.Store.Kind, "STORE")
	set(&c.Store.DatabaseURL, "DATABASE_URL")
	set(&c.Store.RedisAddr, "REDIS_ADDR")
	set(&c.Store.RedisPassword, "REDIS_PASSWORD")
	set(&c.Session.Secret, "SESSION_SECRET")
	set(&c.Log.Mode, "LOG_MODE")

	// A bare DATABASE_URL or REDIS_ADDR selects its store unless STORE says
	// otherwise.
	if os.Getenv("STORE") == "" && c.Store.Kind == StoreMemory {
		switch {
		case c.Store.DatabaseURL != "":
			c.Store.Kind = StorePostgres
		case c.Store.RedisAddr != "":
			c.Store.Kind = StoreRedis
		}
	}
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute http(s) url", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("store.kind %q must be one of memory, postgres, redis", c.Store.Kind)
	}
	if s := c.Session.Secret; s != "" && len(s) < 16 {
		return errors.New("session.secret must be at least 16 bytes")
	}
	return nil
}

// Masked returns a copy safe to print.
func (c *Config) Masked() *Config {
	m := *c
	m.Store.DatabaseURL = maskURL(m.Store.DatabaseURL)
	m.Store.RedisPassword = mask(m.Store.RedisPassword)
	m.Session.Secret = mask(m.Session.Secret)
	return &m
}

// YAML renders the configuration.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		if strings.Contains(raw, "password=") {
			return mask(raw)
		}
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
