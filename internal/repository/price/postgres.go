package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	domain "github.com/ahmethakanbesel/stockdata/internal/price"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS stock_data (
	date DATE, ticker TEXT,
	open FLOAT, high FLOAT, low FLOAT, close FLOAT, adj_close FLOAT,
	volume BIGINT,
	PRIMARY KEY (date, ticker)
)`

const postgresInsert = `
	INSERT INTO stock_data (date, ticker, open, high, low, close, adj_close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (date, ticker) DO NOTHING
`

// PostgresRepository is the production store.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure stock_data: %w", err)
	}
	return nil
}

// SaveBars sends every bar in one pgx.Batch inside a transaction and counts
// the rows that were actually inserted. Conflicting rows affect nothing.
func (r *PostgresRepository) SaveBars(ctx context.Context, bars []domain.Bar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("save bars: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(postgresInsert, b.Date, b.Ticker,
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
	}

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for range bars {
		ct, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, saveError("save bars", err)
		}
		inserted += ct.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, saveError("save bars: close batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, saveError("save bars: commit", err)
	}
	return inserted, nil
}

func (r *PostgresRepository) ListBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	const query = `SELECT date, ticker, open, high, low, close, adj_close, volume
		FROM stock_data
		WHERE ticker = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := r.db.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Date, &b.Ticker, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = domain.CalendarDate(b.Date)
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

func (r *PostgresRepository) CountBars(ctx context.Context, ticker string) (int64, error) {
	query := `SELECT COUNT(*) FROM stock_data`
	var args []any
	if ticker != "" {
		query += ` WHERE ticker = $1`
		args = append(args, ticker)
	}

	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT ticker FROM stock_data ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

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

// saveError tags data exceptions (SQLSTATE class 22) and integrity
// violations (class 23) as DataShape. Anything else is left for the caller
// to classify.
func saveError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return apperror.Wrap(apperror.DataShape,
			fmt.Sprintf("%s: sqlstate %s", msg, pgErr.Code), err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ domain.Repository = (*PostgresRepository)(nil)
