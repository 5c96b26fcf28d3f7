package price

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/scraper"
)

// Bar is one trading day for one ticker. (Date, Ticker) is unique in the store.
type Bar struct {
	Date     time.Time `json:"date"`
	Ticker   string    `json:"ticker"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjClose"`
	Volume   int64     `json:"volume"`
}

// Validate rejects rows the store must never see.
func (b Bar) Validate() error {
	if strings.TrimSpace(b.Ticker) == "" {
		return apperror.New(apperror.DataShape, "bar has empty ticker")
	}
	if b.Date.IsZero() {
		return apperror.New(apperror.DataShape, fmt.Sprintf("%s: bar has no date", b.Ticker))
	}
	for name, v := range map[string]float64{
		"open": b.Open, "high": b.High, "low": b.Low, "close": b.Close, "adj_close": b.AdjClose,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperror.New(apperror.DataShape,
				fmt.Sprintf("%s %s: %s is not a finite number", b.Ticker, b.Date.Format(time.DateOnly), name))
		}
	}
	if b.Volume < 0 {
		return apperror.New(apperror.DataShape,
			fmt.Sprintf("%s %s: negative volume %d", b.Ticker, b.Date.Format(time.DateOnly), b.Volume))
	}
	return nil
}

// CalendarDate strips time of day and location.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize turns provider rows into bars for ticker: dates become plain
// calendar dates, rows are sorted ascending and only the first row per date
// is kept.
func Normalize(ticker string, rows []scraper.Row) []Bar {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]scraper.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CalendarDate(sorted[i].Date).Before(CalendarDate(sorted[j].Date))
	})

	seen := make(map[time.Time]bool, len(sorted))
	bars := make([]Bar, 0, len(sorted))
	for _, r := range sorted {
		d := CalendarDate(r.Date)
		if seen[d] {
			continue
		}
		seen[d] = true
		bars = append(bars, Bar{
			Date:     d,
			Ticker:   ticker,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			AdjClose: r.AdjClose,
			Volume:   r.Volume,
		})
	}
	return bars
}
