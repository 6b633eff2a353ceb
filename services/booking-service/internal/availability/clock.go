package availability

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseClockOnDay anchors a wall-clock string ("15:04" or "15:04:05") to the
// calendar date of day. Any date information in the input is ignored; all slot
// math happens in this anchored-instant space. Times that would roll past
// midnight are not handled (spans are assumed to stay within one day).
func ParseClockOnDay(clock string, day time.Time) (time.Time, error) {
	layout := "15:04:05"
	if len(clock) == 5 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
}

// FormatClock renders an instant as the "15:04" form used in slot output.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// ParseDate parses a "2006-01-02" calendar date as midnight UTC.
func ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return day, nil
}
