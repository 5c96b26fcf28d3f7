package job

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	domain "github.com/ahmethakanbesel/stockdata/internal/job"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, j *domain.Job) error {
	const query = `INSERT INTO ingest_jobs (run_id, ticker, status) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	if j.Status == "" {
		j.Status = domain.StatusPending
	}
	err := r.db.QueryRow(ctx, query, j.RunID, j.Ticker, string(j.Status)).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, j *domain.Job) error {
	const query = `UPDATE ingest_jobs SET status = $1, attempts = $2, fetched = $3,
		inserted = $4, error = NULLIF($5, ''), updated_at = now()
		WHERE id = $6
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		string(j.Status), j.Attempts, j.Fetched, j.Inserted, j.Error, j.ID).Scan(&j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE id = $1`, id)

	j, err := scanPgJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *PostgresRepository) List(ctx context.Context, f domain.Filter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM ingest_jobs WHERE 1=1`

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Ticker != "" {
		query += " AND ticker = " + arg(f.Ticker)
	}
	if f.RunID != "" {
		query += " AND run_id = " + arg(f.RunID)
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}

	return jobs, rows.Err()
}

func (r *PostgresRepository) RecoverStale(ctx context.Context) (int64, error) {
	const query = `UPDATE ingest_jobs SET status = 'failed', error = 'interrupted', updated_at = now()
		WHERE status IN ('pending', 'running')`

	ct, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanPgJob(row pgx.Row) (*domain.Job, error) {
	j := &domain.Job{}
	var status string
	var dbErr *string

	if err := row.Scan(
		&j.ID, &j.RunID, &j.Ticker, &status,
		&j.Attempts, &j.Fetched, &j.Inserted, &dbErr,
		&j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}

	j.Status = domain.Status(status)
	if dbErr != nil {
		j.Error = *dbErr
	}
	return j, nil
}

var _ domain.Repository = (*PostgresRepository)(nil)
