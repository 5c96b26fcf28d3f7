package price

import (
	"strings"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
)

type ListBarsRequest struct {
	Ticker string
	From   time.Time
	To     time.Time
	Format string // "json" or "csv"
}

func (r ListBarsRequest) Validate() *apperror.AppError {
	if strings.TrimSpace(r.Ticker) == "" {
		return apperror.New(apperror.BadRequest, "ticker is required")
	}
	if !r.To.IsZero() && r.To.Before(r.From) {
		return apperror.New(apperror.BadRequest, "to must not be before from")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}
