package job

import (
	"strings"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type GetJobRequest struct {
	ID int64
}

func (r GetJobRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job id")
	}
	return nil
}

type ListJobsRequest struct {
	Ticker string
	RunID  string
	Limit  int
}

func (r ListJobsRequest) Validate() *apperror.AppError {
	if r.Limit < 0 || r.Limit > maxListLimit {
		return apperror.New(apperror.BadRequest, "limit must be between 1 and 1000")
	}
	return nil
}

func (r ListJobsRequest) filter() Filter {
	limit := r.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	return Filter{
		Ticker: strings.ToUpper(strings.TrimSpace(r.Ticker)),
		RunID:  strings.TrimSpace(r.RunID),
		Limit:  limit,
	}
}
