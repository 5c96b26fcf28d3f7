package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmethakanbesel/stockdata/internal/config"
	"github.com/ahmethakanbesel/stockdata/internal/job"
	"github.com/ahmethakanbesel/stockdata/internal/logging"
	"github.com/ahmethakanbesel/stockdata/internal/platform/postgres"
	"github.com/ahmethakanbesel/stockdata/internal/platform/sqlite"
	"github.com/ahmethakanbesel/stockdata/internal/price"
	jobrepo "github.com/ahmethakanbesel/stockdata/internal/repository/job"
	pricerepo "github.com/ahmethakanbesel/stockdata/internal/repository/price"
	"github.com/ahmethakanbesel/stockdata/internal/scheduler"
	"github.com/ahmethakanbesel/stockdata/internal/scraper"
	"github.com/ahmethakanbesel/stockdata/internal/scraper/yahoo"
	"github.com/ahmethakanbesel/stockdata/internal/server"
)

const (
	connectTimeout  = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	once := flag.Bool("once", false, "run a single ingestion cycle and exit")
	runNow := flag.Bool("run-now", false, "start an ingestion cycle immediately in server mode")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	// Root context: cancelled on SIGINT/SIGTERM.
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(rootCtx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	fetcher := yahoo.New(
		yahoo.WithWorkers(cfg.Fetch.Workers),
		yahoo.WithTimeout(cfg.Fetch.Timeout),
		yahoo.WithMaxRetries(cfg.Fetch.MaxRetries),
	)
	window := scraper.Window{Period: cfg.Fetch.Period, Interval: cfg.Fetch.Interval}

	priceSvc := price.NewService(st.prices, fetcher, window, logger.With("component", "ingest"))
	jobSvc := job.NewService(st.jobs, logger.With("component", "jobs"))
	pool := job.NewPool(st.jobs, priceSvc, job.PoolConfig{
		Workers:    cfg.Workers,
		Retries:    cfg.Schedule.Retries,
		RetryDelay: cfg.Schedule.RetryDelay,
	}, logger.With("component", "pool"))
	sched := scheduler.New(pool, cfg.Tickers, logger.With("component", "scheduler"))

	// Jobs left running by a crashed process will never finish.
	if _, err := jobSvc.RecoverStaleJobs(rootCtx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
	}

	if *once {
		code := runOnce(rootCtx, sched)
		st.close()
		stop()
		os.Exit(code)
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		slog.Error("failed to schedule ingestion", "error", err)
		os.Exit(1)
	}
	sched.Start(rootCtx)

	if *runNow {
		if runID, err := sched.Trigger(); err != nil {
			slog.Error("failed to start initial run", "error", err)
		} else {
			slog.Info("initial run started", "run", runID)
		}
	}

	srv := server.New(rootCtx, cfg.HTTP.Port, server.Deps{
		Prices:  priceSvc,
		Jobs:    jobSvc,
		Runs:    sched,
		Tickers: cfg.Tickers,
	})

	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
	case err := <-srvErr:
		slog.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	// Give an in-flight run the rest of the deadline before cancelling it.
	if err := sched.Stop(shutdownCtx); err != nil {
		slog.Error("scheduler stop", "error", err)
	}
	slog.Info("stopped")
}

func runOnce(ctx context.Context, sched *scheduler.Scheduler) int {
	report, err := sched.RunNow(ctx)
	if err != nil {
		slog.Error("ingestion run aborted", "error", err)
		return 1
	}

	for _, o := range report.Outcomes {
		status := "ok"
		switch {
		case o.Err != nil:
			status = "FAILED: " + o.Err.Error()
		case o.Result != nil && o.Result.Empty:
			status = "no data"
		}
		fmt.Printf("%-8s attempts=%d fetched=%d inserted=%d %s\n",
			o.Job.Ticker, o.Job.Attempts, o.Job.Fetched, o.Job.Inserted, status)
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

type store struct {
	prices price.Repository
	jobs   job.Repository
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("using sqlite store", "path", cfg.Store.SQLitePath)
		return &store{
			prices: pricerepo.NewSQLiteRepository(db.DB),
			jobs:   jobrepo.NewSQLiteRepository(db.DB),
			close:  func() { _ = db.Close() },
		}, nil

	case "postgres":
		pool, err := connectPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("using postgres store", "host", cfg.Database.Host, "db", cfg.Database.Name)
		return &store{
			prices: pricerepo.NewPostgresRepository(pool),
			jobs:   jobrepo.NewPostgresRepository(pool),
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// connectPostgres retries the initial connection, since the database
// container may still be starting.
func connectPostgres(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout

	var pool *pgxpool.Pool
	err := backoff.RetryNotify(func() error {
		p, err := postgres.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("postgres not ready, retrying", "error", err, "retry_in", next)
	})
	return pool, err
}
