package model

// WeeklyAvailability is one working window for a staff member on a weekday
// (0=Sunday .. 6=Saturday). A weekday may have several rows (split shifts).
type WeeklyAvailability struct {
	ID          string
	StaffID     string
	Weekday     int
	StartTime   string // "15:04" or "15:04:05"
	EndTime     string
	IsAvailable bool
}

// BlockedDate is an inclusive calendar-date range with zero availability,
// regardless of the weekly schedule.
type BlockedDate struct {
	ID        string
	StaffID   string
	StartDate string // "2006-01-02"
	EndDate   string
	Reason    string
}

// Contains reports whether date falls inside the range. ISO dates compare
// lexicographically in chronological order, so plain string comparison is enough.
func (b BlockedDate) Contains(date string) bool {
	return date >= b.StartDate && date <= b.EndDate
}

// TimeSlot is a derived candidate slot; never persisted. Unavailable slots are
// kept in generator output so callers can render them as busy.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type DayStatus string

const (
	DayAvailable   DayStatus = "Available"
	DayBusy        DayStatus = "Busy"
	DayUnavailable DayStatus = "Unavailable"
)
