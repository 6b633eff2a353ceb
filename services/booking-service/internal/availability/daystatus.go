package availability

import (
	"time"

	"bookline/services/booking-service/internal/model"
)

// WindowsForWeekday filters a staff member's weekly schedule down to the
// working windows for one weekday (0=Sunday .. 6=Saturday).
func WindowsForWeekday(weekly []model.WeeklyAvailability, weekday int) []model.WeeklyAvailability {
	var out []model.WeeklyAvailability
	for _, w := range weekly {
		if w.Weekday == weekday && w.IsAvailable {
			out = append(out, w)
		}
	}
	return out
}

// IsBlocked reports whether date (ISO form) falls inside any blackout range.
func IsBlocked(blocked []model.BlockedDate, date string) bool {
	for _, b := range blocked {
		if b.Contains(date) {
			return true
		}
	}
	return false
}

// DayStatuses classifies each date in [from, from+days) for calendar painting.
// A day with no working window (or only blackout) is Unavailable; otherwise the
// oracle decides Available vs Busy. A failure while evaluating a single day is
// deliberately fail-open: the day is reported Available and the error logged,
// so a transient data problem never blacks out the whole picker.
func (e *Engine) DayStatuses(svc model.Service, weekly []model.WeeklyAvailability, blocked []model.BlockedDate, apptsByDate map[string][]model.Appointment, from time.Time, days int) map[string]model.DayStatus {
	statuses := make(map[string]model.DayStatus, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		date := day.Format(DateLayout)
		status, err := e.dayStatus(svc, weekly, blocked, apptsByDate[date], day, date)
		if err != nil {
			e.logger.Warn("day status evaluation failed; assuming available",
				"date", date, "staff_id", staffIDOf(weekly), "err", err)
			status = model.DayAvailable
		}
		statuses[date] = status
	}
	return statuses
}

func (e *Engine) dayStatus(svc model.Service, weekly []model.WeeklyAvailability, blocked []model.BlockedDate, appts []model.Appointment, day time.Time, date string) (model.DayStatus, error) {
	windows := WindowsForWeekday(weekly, int(day.Weekday()))
	if len(windows) == 0 {
		return model.DayUnavailable, nil
	}
	if IsBlocked(blocked, date) {
		return model.DayUnavailable, nil
	}

	open, err := e.HasOpenSlot(svc, windows, appts, day)
	if err != nil {
		return "", err
	}
	if open {
		return model.DayAvailable, nil
	}
	return model.DayBusy, nil
}

func staffIDOf(weekly []model.WeeklyAvailability) string {
	if len(weekly) == 0 {
		return ""
	}
	return weekly[0].StaffID
}
