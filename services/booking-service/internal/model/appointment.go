package model

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
	StatusCompleted = "completed"
)

// ActiveStatuses are the statuses that occupy a staff member's time. Only these
// participate in collision checks and in the DB no-overlap constraint.
var ActiveStatuses = []string{StatusConfirmed, StatusPending}

// Appointment dates are business-local calendar dates ("2006-01-02"); start and
// end are wall-clock times ("15:04:05") interpreted against that date.
type Appointment struct {
	ID            string
	StaffID       string
	ServiceID     string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string
	StartTime     string
	EndTime       string
	Status        string
	Notes         string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}

func (a Appointment) IsActive() bool {
	return a.Status == StatusConfirmed || a.Status == StatusPending
}
