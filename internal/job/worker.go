package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/price"
)

// ledgerTimeout bounds ledger writes, which must land even after the run
// context is cancelled.
const ledgerTimeout = 5 * time.Second

// Ingester runs one ingestion unit for a ticker.
type Ingester interface {
	Ingest(ctx context.Context, ticker string) (*price.IngestResult, error)
}

type PoolConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// Pool fans ingestion units out over a bounded set of goroutines, one unit
// per ticker, and records every unit in the job ledger. Retryable failures
// are re-run up to Retries times, RetryDelay apart.
type Pool struct {
	repo     Repository
	ingester Ingester
	cfg      PoolConfig
	logger   *slog.Logger
}

func NewPool(repo Repository, ingester Ingester, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		repo:     repo,
		ingester: ingester,
		cfg:      cfg,
		logger:   logger,
	}
}

// Outcome is the final state of one unit.
type Outcome struct {
	Job    Job
	Result *price.IngestResult
	Err    error
}

// Report summarizes a run. Succeeded includes units that found no data.
type Report struct {
	RunID     string
	Outcomes  []Outcome
	Succeeded int
	Failed    int
	Empty     int
	Inserted  int64
}

// Err joins the errors of every failed unit, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Job.Ticker, o.Err))
		}
	}
	return errors.Join(errs...)
}

// RunCycle ingests every ticker under runID, generating one if empty. A
// failing unit never cancels or delays its siblings; its error is carried in
// the report. The returned error is non-nil only when the ledger itself
// cannot be written.
func (p *Pool) RunCycle(ctx context.Context, runID string, tickers []string) (*Report, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()

	jobs := make([]Job, len(tickers))
	for i, ticker := range tickers {
		jobs[i] = Job{RunID: runID, Ticker: ticker, Status: StatusPending}
		if err := p.repo.Create(ctx, &jobs[i]); err != nil {
			return nil, apperror.Wrap(apperror.Transport, "create job for "+ticker, err)
		}
	}

	p.logger.Info("run started", "run", runID, "tickers", tickers, "workers", p.cfg.Workers)

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range jobs {
		g.Go(func() error {
			outcomes[i] = p.runUnit(ctx, &jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{RunID: runID, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
		if o.Result != nil {
			report.Inserted += o.Result.Inserted
			if o.Result.Empty {
				report.Empty++
			}
		}
	}

	p.logger.Info("run finished",
		"run", runID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"empty", report.Empty,
		"inserted", report.Inserted,
		"duration", time.Since(start),
	)
	return report, nil
}

func (p *Pool) runUnit(ctx context.Context, j *Job) (out Outcome) {
	logger := p.logger.With("run", j.RunID, "job", j.ID, "ticker", j.Ticker)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingestion unit panicked", "panic", r)
			out.Err = apperror.New(apperror.Internal, fmt.Sprintf("panic: %v", r))
			p.finish(ctx, j, nil, out.Err)
			out.Job = *j
		}
	}()

	j.Status = StatusRunning
	p.save(ctx, j)

	var res *price.IngestResult
	op := func() error {
		j.Attempts++
		r, err := p.ingester.Ingest(ctx, j.Ticker)
		res = r
		if err == nil {
			return nil
		}
		if !apperror.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.cfg.RetryDelay)
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.Retries)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		logger.Warn("ingestion unit failed, retrying",
			"attempt", j.Attempts, "retry_in", next, "error", err)
		j.Error = err.Error()
		p.save(ctx, j)
	})

	p.finish(ctx, j, res, err)
	if err != nil {
		logger.Error("ingestion unit failed",
			"attempts", j.Attempts, "code", apperror.CodeOf(err), "error", err)
	} else {
		logger.Info("ingestion unit completed",
			"attempts", j.Attempts, "fetched", j.Fetched, "inserted", j.Inserted, "empty", res != nil && res.Empty)
	}
	return Outcome{Job: *j, Result: res, Err: err}
}

func (p *Pool) finish(ctx context.Context, j *Job, res *price.IngestResult, err error) {
	if res != nil {
		j.Fetched = res.Fetched
		j.Inserted = res.Inserted
	}
	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
	} else {
		j.Status = StatusCompleted
		j.Error = ""
	}
	p.save(ctx, j)
}

// save writes j to the ledger. Ledger errors are logged, not returned.
func (p *Pool) save(ctx context.Context, j *Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	if err := p.repo.Update(ctx, j); err != nil {
		p.logger.Error("update job", "job", j.ID, "ticker", j.Ticker, "error", err)
	}
}
