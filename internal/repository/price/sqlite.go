package price

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domain "github.com/ahmethakanbesel/stockdata/internal/price"
)

const dateFormat = "2006-01-02"

// sqliteBatchSize keeps each statement well under SQLite's bound-parameter limit.
const sqliteBatchSize = 500

const sqliteSchema = `CREATE TABLE IF NOT EXISTS stock_data (
	date DATE, ticker TEXT,
	open FLOAT, high FLOAT, low FLOAT, close FLOAT, adj_close FLOAT,
	volume BIGINT,
	PRIMARY KEY (date, ticker)
)`

// SQLiteRepository stores bars in a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("ensure stock_data: %w", err)
	}
	return nil
}

// SaveBars writes all bars in a single transaction. Existing (date, ticker)
// rows are left as they are.
func (r *SQLiteRepository) SaveBars(ctx context.Context, bars []domain.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save bars: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for i := 0; i < len(bars); i += sqliteBatchSize {
		end := min(i+sqliteBatchSize, len(bars))
		batch := bars[i:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*8)
		for j, b := range batch {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, b.Date.Format(dateFormat), b.Ticker,
				b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			`INSERT INTO stock_data (date, ticker, open, high, low, close, adj_close, volume)
			VALUES %s ON CONFLICT (date, ticker) DO NOTHING`,
			strings.Join(placeholders, ", "),
		)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("save bars: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save bars: commit: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) ListBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	const query = `SELECT strftime('%Y-%m-%d', date), ticker, open, high, low, close, adj_close, volume
		FROM stock_data
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, ticker, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("list bars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var dateStr string
		if err := rows.Scan(&dateStr, &b.Ticker, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date, err = time.Parse(dateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", dateStr, err)
		}
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

func (r *SQLiteRepository) CountBars(ctx context.Context, ticker string) (int64, error) {
	query := `SELECT COUNT(*) FROM stock_data`
	var args []any
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM stock_data ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tickers := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

var _ domain.Repository = (*SQLiteRepository)(nil)
