package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Store     StoreConfig     `yaml:"store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Session   SessionConfig   `yaml:"session"`
	Trends    TrendsConfig    `yaml:"trends"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// StoreConfig locates the SQLite file holding the active-workout draft.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig optionally replaces the embedded exercise catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TrendsConfig tunes trend ranking. Zero limits keep the built-in defaults;
// an unset weight offset keeps the built-in offset.
type TrendsConfig struct {
	LookbackMonths int      `yaml:"lookback_months"`
	Limit          int      `yaml:"limit"`
	PerTypeLimit   int      `yaml:"per_type_limit"`
	WeightOffset   *float64 `yaml:"weight_offset"`
}

const (
	defaultStorePath = "data/liftlog.db"
	defaultDebounce  = 750 * time.Millisecond
	defaultHostname  = "liftlog"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT,
//	LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE,
//	LIFTLOG_AUTH_API_KEY, LIFTLOG_TAILSCALE_ENABLED, LIFTLOG_TAILSCALE_HOSTNAME,
//	LIFTLOG_STORE_PATH, LIFTLOG_CATALOG_PATH, LIFTLOG_SESSION_DEBOUNCE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("LIFTLOG_SERVER_HOST", &cfg.Server.Host)
	setInt("LIFTLOG_SERVER_PORT", &cfg.Server.Port)
	setString("LIFTLOG_DB_HOST", &cfg.Database.Host)
	setInt("LIFTLOG_DB_PORT", &cfg.Database.Port)
	setString("LIFTLOG_DB_NAME", &cfg.Database.Name)
	setString("LIFTLOG_DB_USER", &cfg.Database.User)
	setString("LIFTLOG_DB_PASSWORD", &cfg.Database.Password)
	setString("LIFTLOG_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("LIFTLOG_AUTH_API_KEY", &cfg.Auth.APIKey)
	setString("LIFTLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("LIFTLOG_STORE_PATH", &cfg.Store.Path)
	setString("LIFTLOG_CATALOG_PATH", &cfg.Catalog.Path)

	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("LIFTLOG_SESSION_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.Debounce = d
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Session.Debounce == 0 {
		c.Session.Debounce = defaultDebounce
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = defaultHostname
	}
}

// validate reports every problem at once.
func (c *Config) validate() error {
	var errs error
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		errs = multierr.Append(errs, errors.New("server.port is required"))
	}
	if c.Database.Host == "" {
		errs = multierr.Append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port == 0 {
		errs = multierr.Append(errs, errors.New("database.port is required"))
	}
	if c.Database.Name == "" {
		errs = multierr.Append(errs, errors.New("database.name is required"))
	}
	if c.Database.User == "" {
		errs = multierr.Append(errs, errors.New("database.user is required"))
	}
	if c.Auth.APIKey == "" {
		errs = multierr.Append(errs, errors.New("auth.api_key is required"))
	}
	if c.Session.Debounce < 0 {
		errs = multierr.Append(errs, errors.New("session.debounce must not be negative"))
	}
	if c.Trends.LookbackMonths < 0 || c.Trends.Limit < 0 || c.Trends.PerTypeLimit < 0 ||
		(c.Trends.WeightOffset != nil && *c.Trends.WeightOffset < 0) {
		errs = multierr.Append(errs, errors.New("trends settings must not be negative"))
	}
	return errs
}
