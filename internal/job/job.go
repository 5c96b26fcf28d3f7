package job

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is the ledger entry for one ticker's ingestion unit within a run.
// Attempts counts executions including scheduler retries.
type Job struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"runId"`
	Ticker    string    `json:"ticker"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	Fetched   int       `json:"fetched"`
	Inserted  int64     `json:"inserted"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
