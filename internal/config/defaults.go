package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultStoreDriver  = "postgres"
	DefaultSQLitePath   = "stockdata.db"
	DefaultDBHost       = "postgres"
	DefaultDBPort       = 5432
	DefaultDBName       = "airflow"
	DefaultDBUser       = "airflow"
	DefaultDBPassword   = "airflow"
	DefaultDBSSLMode    = "disable"
	DefaultMaxConns     = 10
	DefaultMinConns     = 1
	DefaultPeriod       = "1y"
	DefaultInterval     = "1d"
	DefaultFetchTimeout = 30 * time.Second
	DefaultFetchRetries = 3
	DefaultFetchWorkers = 5
	DefaultCron         = "@daily"
	DefaultRetries      = 3
	DefaultRetryDelay   = 5 * time.Minute
	DefaultWorkers      = 3
	DefaultHTTPPort     = "8080"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// DefaultTickers is the ticker set used when none is configured.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL"}

// newConfig seeds the fields where zero is a real setting. They are set
// before the file and environment layers so an explicit 0 is kept.
func newConfig() *Config {
	return &Config{
		Fetch:    FetchConfig{MaxRetries: DefaultFetchRetries},
		Schedule: ScheduleConfig{Retries: DefaultRetries},
	}
}

// applyDefaults fills fields left empty after the file and environment layers.
func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = DefaultSQLitePath
	}

	applyDBDefaults(&c.Database)

	if len(c.Tickers) == 0 {
		c.Tickers = append([]string(nil), DefaultTickers...)
	}

	if c.Fetch.Period == "" {
		c.Fetch.Period = DefaultPeriod
	}
	if c.Fetch.Interval == "" {
		c.Fetch.Interval = DefaultInterval
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.Workers == 0 {
		c.Fetch.Workers = DefaultFetchWorkers
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCron
	}
	if c.Schedule.RetryDelay == 0 {
		c.Schedule.RetryDelay = DefaultRetryDelay
	}

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Host == "" {
		db.Host = DefaultDBHost
	}
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.Name == "" {
		db.Name = DefaultDBName
	}
	if db.User == "" {
		db.User = DefaultDBUser
	}
	if db.Password == "" {
		db.Password = DefaultDBPassword
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
