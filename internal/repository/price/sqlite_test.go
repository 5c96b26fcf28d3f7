package price

import (
	"context"
	"testing"

	"github.com/ahmethakanbesel/stockdata/internal/platform/sqlite"
	domain "github.com/ahmethakanbesel/stockdata/internal/price"
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
	testRepository(t, NewSQLiteRepository(db.DB), "")
}

func TestSQLiteRepository_LargeBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	bars := make([]domain.Bar, 0, 1300)
	start := day(2019, 1, 1)
	for i := range 1300 {
		bars = append(bars, domain.Bar{Date: start.AddDate(0, 0, i), Ticker: "AAPL", Close: float64(i)})
	}

	n, err := repo.SaveBars(ctx, bars)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 1300 {
		t.Errorf("expected 1300 inserted, got %d", n)
	}
}

func TestSQLiteRepository_FailedBatchWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	// The trigger rejects the last bar, which lands in the second sub-batch
	// after the first one has already been executed.
	if _, err := db.Exec(`CREATE TRIGGER reject_zz BEFORE INSERT ON stock_data
		WHEN NEW.ticker = 'ZZ' BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	bars := make([]domain.Bar, 0, sqliteBatchSize+1)
	for i := range sqliteBatchSize {
		bars = append(bars, domain.Bar{Date: day(2020, 1, 1).AddDate(0, 0, i), Ticker: "AAPL", Close: 1})
	}
	bars = append(bars, domain.Bar{Date: day(2024, 1, 1), Ticker: "ZZ", Close: 1})

	if _, err := repo.SaveBars(ctx, bars); err == nil {
		t.Fatal("expected error")
	}

	n, err := repo.CountBars(ctx, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected rollback to leave 0 rows, got %d", n)
	}
}
