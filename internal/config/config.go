package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. Values are resolved in order: built-in
// defaults, the optional YAML file, then environment variables.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Database DBConfig       `yaml:"database"`
	Tickers  []string       `yaml:"tickers"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Workers  int            `yaml:"workers"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Driver     string `yaml:"driver"` // "postgres" or "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
}

// DBConfig holds the Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FetchConfig controls the provider window and the per-request transport policy.
type FetchConfig struct {
	Period     string        `yaml:"period"`
	Interval   string        `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Workers    int           `yaml:"workers"`
}

// ScheduleConfig is the external retry policy applied to whole ingestion units.
type ScheduleConfig struct {
	Cron       string        `yaml:"cron"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds a Config. An empty path skips the file; a missing file at an
// explicit path is an error. ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	cfg := newConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Tickers = normalizeTickers(cfg.Tickers)
	return cfg, nil
}

// LoadAndValidate loads config and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")

	setString(&c.Database.Host, "POSTGRES_HOST")
	setInt(&c.Database.Port, "POSTGRES_PORT")
	setString(&c.Database.Name, "POSTGRES_DB")
	setString(&c.Database.User, "POSTGRES_USER")
	setString(&c.Database.Password, "POSTGRES_PASSWORD")
	setString(&c.Database.SSLMode, "POSTGRES_SSLMODE")

	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = strings.Split(v, ",")
	}

	setString(&c.Fetch.Period, "FETCH_PERIOD")
	setString(&c.Fetch.Interval, "FETCH_INTERVAL")
	setDuration(&c.Fetch.Timeout, "FETCH_TIMEOUT")
	setInt(&c.Fetch.MaxRetries, "FETCH_MAX_RETRIES")
	setInt(&c.Fetch.Workers, "FETCH_WORKERS")

	setString(&c.Schedule.Cron, "SCHEDULE_CRON")
	setInt(&c.Schedule.Retries, "SCHEDULE_RETRIES")
	setDuration(&c.Schedule.RetryDelay, "SCHEDULE_RETRY_DELAY")

	setInt(&c.Workers, "WORKERS")
	setString(&c.HTTP.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

func normalizeTickers(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if n, ok := getEnvInt(key); ok {
		*dst = n
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
