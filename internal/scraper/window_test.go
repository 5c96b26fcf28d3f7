package scraper

import (
	"testing"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
)

func TestWindowRange(t *testing.T) {
	now := time.Date(2025, 8, 28, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period   string
		wantFrom time.Time
	}{
		{"1d", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"5d", time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)},
		{"1mo", time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)},
		{"6mo", time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2024, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"5y", time.Date(2020, 8, 28, 0, 0, 0, 0, time.UTC)},
		{"ytd", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to, err := Window{Period: tt.period, Interval: "1d"}.Range(now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !from.Equal(tt.wantFrom) {
				t.Errorf("from = %s, want %s", from, tt.wantFrom)
			}
			if !to.Equal(now) {
				t.Errorf("to = %s, want %s", to, now)
			}
		})
	}
}

func TestWindowRange_Invalid(t *testing.T) {
	tests := []Window{
		{Period: "3y", Interval: "1d"},
		{Period: "1y", Interval: "1h"},
		{Period: "", Interval: ""},
	}
	for _, w := range tests {
		_, _, err := w.Range(time.Now())
		if err == nil {
			t.Errorf("expected error for %+v", w)
			continue
		}
		if apperror.CodeOf(err) != apperror.BadRequest {
			t.Errorf("expected BAD_REQUEST for %+v, got %s", w, apperror.CodeOf(err))
		}
	}
}

func TestDefaultWindowIsValid(t *testing.T) {
	if err := DefaultWindow.Validate(); err != nil {
		t.Fatalf("default window invalid: %v", err)
	}
}
