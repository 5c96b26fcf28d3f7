package job

import (
	"context"
	"testing"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	domain "github.com/ahmethakanbesel/stockdata/internal/job"
	"github.com/ahmethakanbesel/stockdata/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteRepository(t *testing.T) {
	db := setupTestDB(t)
	testRepository(t, NewSQLiteRepository(db.DB), "run-sqlite")
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)

	_, err := repo.Get(context.Background(), 999)
	if apperror.CodeOf(err) != apperror.NotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSQLiteRepository_RecoverStale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	statuses := []domain.Status{domain.StatusPending, domain.StatusRunning, domain.StatusCompleted, domain.StatusFailed}
	for _, s := range statuses {
		j := &domain.Job{RunID: "run-1", Ticker: "AAPL", Status: s}
		if err := repo.Create(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.RecoverStale(ctx)
	if err != nil {
		t.Fatalf("recover stale: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 recovered jobs, got %d", n)
	}

	jobs, err := repo.List(ctx, domain.Filter{RunID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}
	failed := 0
	for _, j := range jobs {
		if j.Status == domain.StatusFailed {
			failed++
		}
		if j.Status == domain.StatusPending || j.Status == domain.StatusRunning {
			t.Errorf("job %d still %s", j.ID, j.Status)
		}
	}
	if failed != 3 {
		t.Errorf("expected 3 failed jobs, got %d", failed)
	}
}
