package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	domain "github.com/ahmethakanbesel/stockdata/internal/job"
)

const jobColumns = `id, run_id, ticker, status, attempts, fetched, inserted,
	error, created_at, updated_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, j *domain.Job) error {
	const query = `INSERT INTO ingest_jobs (run_id, ticker, status) VALUES (?, ?, ?)`

	if j.Status == "" {
		j.Status = domain.StatusPending
	}
	res, err := r.db.ExecContext(ctx, query, j.RunID, j.Ticker, string(j.Status))
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	j.ID, _ = res.LastInsertId()
	j.CreatedAt = time.Now().UTC().Truncate(time.Second)
	j.UpdatedAt = j.CreatedAt
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, j *domain.Job) error {
	const query = `UPDATE ingest_jobs SET status = ?, attempts = ?, fetched = ?,
		inserted = ?, error = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		string(j.Status), j.Attempts, j.Fetched, j.Inserted, nullString(j.Error), j.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	j.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f domain.Filter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM ingest_jobs WHERE 1=1`

	var args []any
	if f.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, f.Ticker)
	}
	if f.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, f.RunID)
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}

	return jobs, rows.Err()
}

func (r *SQLiteRepository) RecoverStale(ctx context.Context) (int64, error) {
	const query = `UPDATE ingest_jobs SET status = 'failed', error = 'interrupted',
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE status IN ('pending', 'running')`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}

	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*domain.Job, error) {
	j := &domain.Job{}
	var status, createdStr, updatedStr string
	var dbErr sql.NullString

	if err := s.Scan(
		&j.ID, &j.RunID, &j.Ticker, &status,
		&j.Attempts, &j.Fetched, &j.Inserted, &dbErr,
		&createdStr, &updatedStr,
	); err != nil {
		return nil, err
	}

	j.Status = domain.Status(status)
	j.Error = dbErr.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return j, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.Repository = (*SQLiteRepository)(nil)
