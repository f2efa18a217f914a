package domain

import "time"

// LocalTime converts a stored UTC timestamp to the display timezone. All
// persistence happens in UTC; this is the only conversion point.
func LocalTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}

// FormatLocal renders a timestamp in the display timezone using the layout
// shown across pages and emails.
func FormatLocal(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return LocalTime(t, loc).Format("2006-01-02 15:04")
}
