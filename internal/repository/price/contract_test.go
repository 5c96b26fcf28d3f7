package price

import (
	"context"
	"testing"
	"time"

	domain "github.com/ahmethakanbesel/stockdata/internal/price"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testRepository exercises the merge semantics every backend must share.
// Tickers are prefixed so the suite can run against a shared database.
func testRepository(t *testing.T, repo domain.Repository, prefix string) {
	t.Helper()
	ctx := context.Background()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	t.Run("schema is idempotent", func(t *testing.T) {
		if err := repo.EnsureSchema(ctx); err != nil {
			t.Fatalf("second ensure schema: %v", err)
		}
	})

	t.Run("two day example", func(t *testing.T) {
		ticker := prefix + "AAPL"
		bars := []domain.Bar{
			{Date: day(2024, 1, 2), Ticker: ticker, Open: 185.0, High: 188.44, Low: 183.89, Close: 185.64, AdjClose: 184.29, Volume: 1000000},
			{Date: day(2024, 1, 3), Ticker: ticker, Open: 186.0, High: 187.05, Low: 183.62, Close: 184.25, AdjClose: 182.91, Volume: 1100000},
		}

		n, err := repo.SaveBars(ctx, bars)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted, got %d", n)
		}

		got, err := repo.ListBars(ctx, ticker, day(2024, 1, 1), day(2024, 1, 31))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 bars, got %d", len(got))
		}
		if !got[0].Date.Equal(day(2024, 1, 2)) || got[0].Close != 185.64 || got[0].Volume != 1000000 {
			t.Errorf("unexpected first bar: %+v", got[0])
		}
		if !got[1].Date.Equal(day(2024, 1, 3)) || got[1].AdjClose != 182.91 {
			t.Errorf("unexpected second bar: %+v", got[1])
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		ticker := prefix + "IDEM"
		bars := []domain.Bar{
			{Date: day(2024, 2, 1), Ticker: ticker, Close: 10},
			{Date: day(2024, 2, 2), Ticker: ticker, Close: 11},
		}

		if _, err := repo.SaveBars(ctx, bars); err != nil {
			t.Fatalf("first save: %v", err)
		}
		n, err := repo.SaveBars(ctx, bars)
		if err != nil {
			t.Fatalf("second save: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 inserted on replay, got %d", n)
		}

		count, err := repo.CountBars(ctx, ticker)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 rows after replay, got %d", count)
		}
	})

	t.Run("no overwrite", func(t *testing.T) {
		ticker := prefix + "KEEP"
		if _, err := repo.SaveBars(ctx, []domain.Bar{{Date: day(2024, 3, 1), Ticker: ticker, Close: 100}}); err != nil {
			t.Fatalf("first save: %v", err)
		}

		revised := []domain.Bar{
			{Date: day(2024, 3, 1), Ticker: ticker, Close: 999},
			{Date: day(2024, 3, 4), Ticker: ticker, Close: 101},
		}
		n, err := repo.SaveBars(ctx, revised)
		if err != nil {
			t.Fatalf("second save: %v", err)
		}
		if n != 1 {
			t.Errorf("expected only the new date inserted, got %d", n)
		}

		got, err := repo.ListBars(ctx, ticker, day(2024, 3, 1), day(2024, 3, 31))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 bars, got %d", len(got))
		}
		if got[0].Close != 100 {
			t.Errorf("existing row was overwritten: close %f", got[0].Close)
		}
	})

	t.Run("key uniqueness within a batch", func(t *testing.T) {
		ticker := prefix + "DUP"
		bars := []domain.Bar{
			{Date: day(2024, 4, 1), Ticker: ticker, Close: 1},
			{Date: day(2024, 4, 1), Ticker: ticker, Close: 2},
		}
		n, err := repo.SaveBars(ctx, bars)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 inserted, got %d", n)
		}

		got, err := repo.ListBars(ctx, ticker, day(2024, 4, 1), day(2024, 4, 1))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].Close != 1 {
			t.Errorf("expected the first row to win, got %+v", got)
		}
	})

	t.Run("same date different tickers", func(t *testing.T) {
		bars := []domain.Bar{
			{Date: day(2024, 5, 1), Ticker: prefix + "MSFT", Close: 400},
			{Date: day(2024, 5, 1), Ticker: prefix + "GOOGL", Close: 160},
		}
		n, err := repo.SaveBars(ctx, bars)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted, got %d", n)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		n, err := repo.SaveBars(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0, got %d", n)
		}
	})

	t.Run("list tickers", func(t *testing.T) {
		tickers, err := repo.ListTickers(ctx)
		if err != nil {
			t.Fatalf("list tickers: %v", err)
		}
		found := false
		for _, tk := range tickers {
			if tk == prefix+"AAPL" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %sAAPL in %v", prefix, tickers)
		}
	})
}
