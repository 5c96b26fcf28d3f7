package job

import "context"

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Ticker string
	RunID  string
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, j *Job) error
	Update(ctx context.Context, j *Job) error
	Get(ctx context.Context, id int64) (*Job, error)
	List(ctx context.Context, f Filter) ([]Job, error)
	// RecoverStale fails every job left pending or running by a process
	// that did not shut down cleanly.
	RecoverStale(ctx context.Context) (int64, error)
}
