package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/ahmethakanbesel/stockdata/internal/scraper"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be postgres or sqlite, got %q", c.Store.Driver)
	}

	if len(c.Tickers) == 0 {
		return errors.New("tickers must not be empty")
	}

	window := scraper.Window{Period: c.Fetch.Period, Interval: c.Fetch.Interval}
	if err := window.Validate(); err != nil {
		return fmt.Errorf("fetch window: %w", err)
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must be >= 0")
	}
	if c.Fetch.Workers < 1 {
		return errors.New("fetch.workers must be >= 1")
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if c.Schedule.Retries < 0 {
		return errors.New("schedule.retries must be >= 0")
	}
	if c.Schedule.RetryDelay < 0 {
		return errors.New("schedule.retry_delay must be >= 0")
	}

	if c.Workers < 1 {
		return errors.New("workers must be >= 1")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, db.Port)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
