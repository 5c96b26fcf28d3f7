package job

import (
	"context"
	"fmt"
	"log/slog"
)

// Service is the read side of the ingestion ledger plus start-up recovery.
// Jobs are written by Pool; Service never changes a finished job.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RecoverStaleJobs closes out ledger rows left pending or running by a
// process that died mid-cycle. They are marked failed with the error
// "interrupted" rather than re-queued; the next cycle fetches the whole
// window again. It returns the number of jobs closed.
func (s *Service) RecoverStaleJobs(ctx context.Context) (int64, error) {
	n, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	if n > 0 {
		s.logger.Warn("marked interrupted ingestion jobs as failed", "count", n)
	}
	return n, nil
}

// Get returns one unit of a cycle by ledger id.
func (s *Service) Get(ctx context.Context, req GetJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

// List returns ledger rows newest first, filtered by ticker and/or run.
func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req.filter())
}
