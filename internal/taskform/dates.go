package taskform

import (
	"strings"
	"time"
)

// isoDate is the canonical wire form for deadlines.
const isoDate = "2006-01-02"

// deadlineFormats are the accepted input forms, tried in order: ISO first,
// then the day-first forms people actually type. Go's parser accepts both
// padded and unpadded day/month for the single-digit layouts.
var deadlineFormats = []string{
	isoDate,
	"2/1/2006",
	"2-1-2006",
}

// parseDeadline parses a deadline string in any accepted form into a
// midnight-UTC day. Returns ok=false for anything unparseable.
func parseDeadline(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range deadlineFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// today returns midnight UTC of the current day.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
