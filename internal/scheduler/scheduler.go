package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/job"
)

// Runner executes one ingestion cycle over a ticker set.
type Runner interface {
	RunCycle(ctx context.Context, runID string, tickers []string) (*job.Report, error)
}

// Scheduler triggers ingestion cycles from a cron spec or on demand. At most
// one cycle runs at a time.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	tickers []string
	logger  *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func New(runner Runner, tickers []string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger))),
		runner:  runner,
		tickers: tickers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds the ingestion cycle under a standard five-field cron spec or
// a descriptor such as "@daily".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register ingestion cycle %q: %w", spec, err)
	}
	s.logger.Info("ingestion cycle scheduled", "spec", spec, "tickers", s.tickers)
	return nil
}

// Start runs the cron loop. Cycles inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the cron loop and waits for an in-flight cycle. If ctx expires
// first, the cycle is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.cancel()
		s.mu.Unlock()
		<-done
		s.logger.Warn("scheduler stop timed out, in-flight cycle cancelled")
		return ctx.Err()
	}
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Trigger starts a cycle in the background and returns its run ID.
func (s *Scheduler) Trigger() (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", apperror.New(apperror.Conflict, "an ingestion run is already in progress")
	}

	runID := uuid.NewString()
	ctx := s.runContext()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run(ctx, runID)
	}()
	return runID, nil
}

// RunNow runs a cycle synchronously.
func (s *Scheduler) RunNow(ctx context.Context) (*job.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.Conflict, "an ingestion run is already in progress")
	}
	defer s.running.Store(false)

	return s.runner.RunCycle(ctx, uuid.NewString(), s.tickers)
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous ingestion run still in progress, skipping")
		return
	}
	defer s.running.Store(false)

	s.wg.Add(1)
	defer s.wg.Done()
	s.run(s.runContext(), uuid.NewString())
}

func (s *Scheduler) run(ctx context.Context, runID string) {
	report, err := s.runner.RunCycle(ctx, runID, s.tickers)
	if err != nil {
		s.logger.Error("ingestion run aborted", "run", runID, "error", err)
		return
	}
	if report.Failed > 0 {
		s.logger.Warn("ingestion run finished with failures",
			"run", runID, "failed", report.Failed, "error", report.Err())
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
