package scraper

import (
	"testing"
	"time"
)

func day(m, d int) time.Time {
	return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestSplit(t *testing.T) {
	afternoon := time.Date(2024, 3, 31, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		from, to  time.Time
		maxDays   int
		wantLen   int
		wantFirst DateRange
		wantLast  DateRange
	}{
		{
			name:      "single chunk",
			from:      day(1, 1),
			to:        day(1, 10),
			maxDays:   60,
			wantLen:   1,
			wantFirst: DateRange{From: day(1, 1), To: day(1, 10)},
			wantLast:  DateRange{From: day(1, 1), To: day(1, 10)},
		},
		{
			name:      "multiple chunks ending mid-day",
			from:      day(1, 1),
			to:        afternoon,
			maxDays:   30,
			wantLen:   4,
			wantFirst: DateRange{From: day(1, 1), To: day(1, 31).Add(-time.Second)},
			wantLast:  DateRange{From: day(3, 31), To: afternoon},
		},
		{
			name:      "from after to returns nil",
			from:      day(3, 1),
			to:        day(1, 1),
			maxDays:   30,
			wantLen:   0,
		},
		{
			name:      "zero max days returns nil",
			from:      day(1, 1),
			to:        day(1, 10),
			maxDays:   0,
			wantLen:   0,
		},
		{
			name:      "same instant",
			from:      day(1, 1),
			to:        day(1, 1),
			maxDays:   30,
			wantLen:   1,
			wantFirst: DateRange{From: day(1, 1), To: day(1, 1)},
			wantLast:  DateRange{From: day(1, 1), To: day(1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.from, tt.to, tt.maxDays)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if got[0] != tt.wantFirst {
				t.Errorf("first = %v, want %v", got[0], tt.wantFirst)
			}
			if got[len(got)-1] != tt.wantLast {
				t.Errorf("last = %v, want %v", got[len(got)-1], tt.wantLast)
			}
		})
	}
}
