package scraper

import (
	"fmt"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
)

// Window is a lookback period and a sampling interval, e.g. {"1y", "1d"}.
type Window struct {
	Period   string
	Interval string
}

// DefaultWindow is one year of daily bars.
var DefaultWindow = Window{Period: "1y", Interval: "1d"}

var intervals = map[string]bool{"1d": true, "1wk": true, "1mo": true}

// Validate checks that the period and interval are supported.
func (w Window) Validate() error {
	if _, _, err := w.Range(time.Now()); err != nil {
		return err
	}
	return nil
}

// Range resolves the window against now. from is a UTC calendar date; to is
// now itself so the current session is included.
func (w Window) Range(now time.Time) (from, to time.Time, err error) {
	if !intervals[w.Interval] {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest,
			fmt.Sprintf("unsupported interval %q", w.Interval))
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch w.Period {
	case "1d":
		from = today.AddDate(0, 0, -1)
	case "5d":
		from = today.AddDate(0, 0, -5)
	case "1mo":
		from = today.AddDate(0, -1, 0)
	case "3mo":
		from = today.AddDate(0, -3, 0)
	case "6mo":
		from = today.AddDate(0, -6, 0)
	case "1y":
		from = today.AddDate(-1, 0, 0)
	case "2y":
		from = today.AddDate(-2, 0, 0)
	case "5y":
		from = today.AddDate(-5, 0, 0)
	case "10y":
		from = today.AddDate(-10, 0, 0)
	case "ytd":
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest,
			fmt.Sprintf("unsupported period %q", w.Period))
	}
	return from, now, nil
}
