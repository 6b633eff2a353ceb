package availability

import (
	"errors"
	"time"
)

// ClockOptions builds the time entries for a picker between min and max
// clocks at the given granularity. The upper bound is the end of max's hour:
// ("09:00", "11:00", 15) yields 09:00 through 11:45, twelve options.
func ClockOptions(min, max string, stepMins int) ([]string, error) {
	if stepMins <= 0 {
		return nil, errors.New("step must be positive")
	}
	ref := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	start, err := ParseClockOnDay(min, ref)
	if err != nil {
		return nil, err
	}
	end, err := ParseClockOnDay(max, ref)
	if err != nil {
		return nil, err
	}
	limit := end.Truncate(time.Hour).Add(time.Hour)

	step := time.Duration(stepMins) * time.Minute
	var options []string
	for t := start; t.Before(limit); t = t.Add(step) {
		options = append(options, FormatClock(t))
	}
	return options, nil
}
