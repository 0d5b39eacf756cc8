// Package tracker is the client side of the system: a Mirror that follows a
// live record subscription, and the pure view helpers that turn a mirrored
// snapshot into what the list and map views display.
package tracker

import (
	"math"
	"strings"
	"time"

	"cratetrack/internal/record/model"
)

// Filter returns the records matching both predicates: a case-insensitive
// substring match of searchTerm against the container number, and a
// substring match of dateFilter against the record's calendar-date string.
// An empty predicate matches everything. The input slice is never mutated.
func Filter(records []model.Record, searchTerm, dateFilter string) []model.Record {
	needle := strings.ToLower(searchTerm)
	matched := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if !strings.Contains(strings.ToLower(rec.Number), needle) {
			continue
		}
		if dateFilter != "" && !strings.Contains(FormatDate(rec.Timestamp), dateFilter) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

// DaysSince reports the whole days elapsed from ts to now, rounded toward
// negative infinity. Future timestamps yield negative values; they are not
// clamped.
func DaysSince(ts, now time.Time) int {
	return int(math.Floor(now.Sub(ts).Hours() / 24))
}

// FormatDate renders the localized calendar date, the string the date
// filter matches against.
func FormatDate(ts time.Time) string {
	return ts.Local().Format("1/2/2006")
}

// FormatTimestamp renders the display form of a record's timestamp.
func FormatTimestamp(ts time.Time) string {
	return ts.Local().Format("1/2/2006 3:04 PM")
}
