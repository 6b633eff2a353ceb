package availability

import (
	"fmt"
	"time"

	"bookline/services/booking-service/internal/model"
)

// AppointmentTiming pairs an appointment with the timing parameters of the
// service it was booked under, so its occupied span can be recomputed.
type AppointmentTiming struct {
	Appt          model.Appointment
	DurationMins  int
	BufBeforeMins int
	BufAfterMins  int
}

// DayFetcher loads a staff member's full appointment list (all services,
// active statuses) for one date. The conflict checker calls it once per
// (staff, date) group so it knows an appointment's true neighbors.
type DayFetcher func(staffID, date string) ([]AppointmentTiming, error)

// ServiceUpdateConflicts determines which of a service's future appointments
// would violate the no-overlap invariant if the service's timing parameters
// changed to the proposed values. Each appointment keeps its start time, but
// its occupied span is recomputed under the new duration and buffers; neighbor
// spans keep their own stored parameters. The check is advisory and never
// mutates data. Fetch errors propagate: a provider must not be told "no
// conflicts" on uncertain data.
func (e *Engine) ServiceUpdateConflicts(durationMins, bufBeforeMins, bufAfterMins int, future []model.Appointment, fetchDay DayFetcher) ([]model.Appointment, error) {
	duration := time.Duration(durationMins) * time.Minute
	bufBefore := time.Duration(bufBeforeMins) * time.Minute
	bufAfter := time.Duration(bufAfterMins) * time.Minute

	type groupKey struct {
		staffID string
		date    string
	}
	var order []groupKey
	groups := map[groupKey][]model.Appointment{}
	for _, a := range future {
		k := groupKey{staffID: a.StaffID, date: a.Date}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}

	var conflicts []model.Appointment
	flagged := map[string]bool{}

	for _, k := range order {
		day, err := ParseDate(k.date)
		if err != nil {
			return nil, err
		}
		neighbors, err := fetchDay(k.staffID, k.date)
		if err != nil {
			return nil, fmt.Errorf("load day appointments for staff %s on %s: %w", k.staffID, k.date, err)
		}

		for _, appt := range groups[k] {
			if flagged[appt.ID] {
				continue
			}
			start, err := ParseClockOnDay(appt.StartTime, day)
			if err != nil {
				return nil, err
			}
			collStart := start.Add(-bufBefore)
			collEnd := start.Add(duration).Add(bufAfter)

			for _, other := range neighbors {
				if other.Appt.ID == appt.ID {
					continue
				}
				oStart, err := ParseClockOnDay(other.Appt.StartTime, day)
				if err != nil {
					return nil, err
				}
				oCollStart := oStart.Add(-time.Duration(other.BufBeforeMins) * time.Minute)
				oCollEnd := oStart.
					Add(time.Duration(other.DurationMins) * time.Minute).
					Add(time.Duration(other.BufAfterMins) * time.Minute)

				if intervalsOverlap(collStart, collEnd, oCollStart, oCollEnd) {
					conflicts = append(conflicts, appt)
					flagged[appt.ID] = true
					break
				}
			}
		}
	}
	return conflicts, nil
}
