package price

import (
	"context"
	"time"
)

type Repository interface {
	// EnsureSchema creates the bar table if it does not exist.
	EnsureSchema(ctx context.Context) error
	// SaveBars inserts bars as one batch. Rows whose (date, ticker) already
	// exists are skipped, never updated. Returns the number of new rows.
	SaveBars(ctx context.Context, bars []Bar) (int64, error)
	ListBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
	CountBars(ctx context.Context, ticker string) (int64, error)
	ListTickers(ctx context.Context) ([]string, error)
}
