package scraper

import "time"

// DateRange is an inclusive span. To may carry a time of day.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Split cuts [from, to] into consecutive ranges of at most maxDays calendar
// days. The last range ends exactly at to.
func Split(from, to time.Time, maxDays int) []DateRange {
	if from.After(to) || maxDays <= 0 {
		return nil
	}

	var chunks []DateRange
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, maxDays) {
		end := cur.AddDate(0, 0, maxDays).Add(-time.Second)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateRange{From: cur, To: end})
	}
	return chunks
}
