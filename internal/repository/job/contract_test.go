package job

import (
	"context"
	"testing"

	domain "github.com/ahmethakanbesel/stockdata/internal/job"
)

func testRepository(t *testing.T, repo domain.Repository, runID string) {
	t.Helper()
	ctx := context.Background()

	j := &domain.Job{RunID: runID, Ticker: "AAPL"}
	if err := repo.Create(ctx, j); err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if j.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", j.Status)
	}

	j.Status = domain.StatusFailed
	j.Attempts = 4
	j.Error = "TRANSPORT: fetch AAPL: connection refused"
	if err := repo.Update(ctx, j); err != nil {
		t.Fatalf("update: %v", err)
	}

	j.Status = domain.StatusCompleted
	j.Fetched = 252
	j.Inserted = 250
	j.Error = ""
	if err := repo.Update(ctx, j); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RunID != runID || got.Ticker != "AAPL" {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.Status != domain.StatusCompleted || got.Attempts != 4 || got.Fetched != 252 || got.Inserted != 250 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if got.Error != "" {
		t.Errorf("expected error to be cleared, got %q", got.Error)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	if err := repo.Create(ctx, &domain.Job{RunID: runID, Ticker: "MSFT"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	jobs, err := repo.List(ctx, domain.Filter{RunID: runID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Ticker != "MSFT" {
		t.Errorf("expected newest first, got %s", jobs[0].Ticker)
	}

	jobs, err = repo.List(ctx, domain.Filter{RunID: runID, Ticker: "AAPL", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != j.ID {
		t.Errorf("expected only the AAPL job, got %+v", jobs)
	}
}
