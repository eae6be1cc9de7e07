// Package config resolves runtime settings from an optional YAML file and
// environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvConfigPath       = "CONFIG_PATH"
	EnvAddr             = "ADDR"
	EnvWebDir           = "WEB_DIR"
	EnvTrustProxy       = "TRUST_PROXY"
	EnvUpstreamBaseURL  = "UPSTREAM_BASE_URL"
	EnvUpstreamTimeout  = "UPSTREAM_TIMEOUT"
	EnvUpstreamLanguage = "UPSTREAM_ACCEPT_LANGUAGE"
	EnvSessionTTL       = "SESSION_TTL"
	EnvSessionSecret    = "SESSION_SECRET"
	EnvSweepInterval    = "SESSION_SWEEP_INTERVAL"
	EnvStorageDriver    = "STORAGE_DRIVER"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvSQLitePath       = "SQLITE_PATH"
	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// Config is the resolved application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web-dir"`

	// TrustProxy honours X-Forwarded-For for the client address.
	TrustProxy bool `yaml:"trust-proxy"`
}

// UpstreamConfig points at the metrics API.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base-url"`
	Timeout        time.Duration `yaml:"timeout"`
	AcceptLanguage string        `yaml:"accept-language"`
}

// SessionConfig controls session lifetime and token sealing.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	Secret        string        `yaml:"secret"`
	SweepInterval time.Duration `yaml:"sweep-interval"`
}

// StorageConfig selects the session store.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	DatabaseURL   string `yaml:"database-url"`
	SQLitePath    string `yaml:"sqlite-path"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
}

// LogConfig controls logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", WebDir: "web"},
		Upstream: UpstreamConfig{
			BaseURL:        "https://hitman.jibit.cloud",
			Timeout:        30 * time.Second,
			AcceptLanguage: "fa",
		},
		Session: SessionConfig{TTL: 24 * time.Hour, SweepInterval: 10 * time.Minute},
		Storage: StorageConfig{Driver: DriverMemory},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load applies the YAML file at path (if any) and then the environment on top
// of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", path).Debug("config file not found, using defaults")
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, EnvAddr)
	setString(&c.Server.WebDir, EnvWebDir)
	setString(&c.Upstream.BaseURL, EnvUpstreamBaseURL)
	setString(&c.Upstream.AcceptLanguage, EnvUpstreamLanguage)
	setString(&c.Session.Secret, EnvSessionSecret)
	setString(&c.Storage.Driver, EnvStorageDriver)
	setString(&c.Storage.DatabaseURL, EnvDatabaseURL)
	setString(&c.Storage.SQLitePath, EnvSQLitePath)
	setString(&c.Storage.RedisAddr, EnvRedisAddr)
	setString(&c.Storage.RedisPassword, EnvRedisPassword)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)

	for env, dst := range map[string]*time.Duration{
		EnvUpstreamTimeout: &c.Upstream.Timeout,
		EnvSessionTTL:      &c.Session.TTL,
		EnvSweepInterval:   &c.Session.SweepInterval,
	} {
		if err := setDuration(dst, env); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvTrustProxy)); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrustProxy, err)
		}
		c.Server.TrustProxy = b
	}

	if raw := strings.TrimSpace(os.Getenv(EnvRedisDB)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		c.Storage.RedisDB = n
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server address is empty")
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream base url is empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("session sweep interval must be positive")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return fmt.Errorf("storage driver %q requires %s", DriverPostgres, EnvDatabaseURL)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("storage driver %q requires %s", DriverSQLite, EnvSQLitePath)
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("storage driver %q requires %s", DriverRedis, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, env string) error {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = d
	return nil
}
