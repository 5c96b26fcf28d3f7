package scraper

import (
	"context"
	"time"
)

// Row is one provider bar. Date is a calendar date at UTC midnight.
type Row struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Fetcher retrieves a historical series for one symbol. An unknown symbol or
// an empty window yields an empty slice and a nil error.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context, symbol string, w Window) ([]Row, error)
}
