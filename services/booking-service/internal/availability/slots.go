package availability

import (
	"fmt"
	"time"

	"bookline/services/booking-service/internal/model"
)

const (
	ReasonTooSoon       = "Too soon"
	ReasonAlreadyBooked = "Already booked"
)

type interval struct {
	start time.Time
	end   time.Time
}

// intervalsOverlap is the single overlap primitive shared by the generator,
// the oracle, and the conflict checker. Strict comparison: touching endpoints
// do not collide.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, b := range busy {
		if intervalsOverlap(start, end, b.start, b.end) {
			return true
		}
	}
	return false
}

// Slots enumerates every candidate start time for day across the supplied
// windows, in window order then chronological order. Unavailable candidates
// are still emitted, tagged with a reason, so calendars can paint busy times.
//
// Windows are expected to be pre-filtered to the target weekday with
// IsAvailable set; appointments pre-filtered to the target date and active
// statuses. A non-positive cycle aborts the whole call with an empty result
// (logged, not returned as an error): stepping by zero would never terminate.
func (e *Engine) Slots(svc model.Service, windows []model.WeeklyAvailability, appts []model.Appointment, day time.Time) ([]model.TimeSlot, error) {
	if svc.CycleMins() <= 0 {
		e.logger.Error("service cycle is not positive; no slots generated",
			"service_id", svc.ID, "cycle_mins", svc.CycleMins())
		return []model.TimeSlot{}, nil
	}

	slots := []model.TimeSlot{}
	err := e.scan(svc, windows, appts, day, func(faceStart time.Time, available bool, reason string) bool {
		slots = append(slots, model.TimeSlot{
			Time:      FormatClock(faceStart),
			Available: available,
			Reason:    reason,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// HasOpenSlot answers "is at least one slot free on this day" without
// enumerating the full day. A non-positive cycle reports false rather than
// the generator's empty list; neither is a caller-visible error.
func (e *Engine) HasOpenSlot(svc model.Service, windows []model.WeeklyAvailability, appts []model.Appointment, day time.Time) (bool, error) {
	if svc.CycleMins() <= 0 {
		return false, nil
	}

	found := false
	err := e.scan(svc, windows, appts, day, func(_ time.Time, available bool, _ string) bool {
		if available {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// scan walks every candidate slot and reports it to visit; visit returning
// false stops the whole scan. Both the generator and the oracle run on this
// one walker, so they can never disagree about a day.
func (e *Engine) scan(svc model.Service, windows []model.WeeklyAvailability, appts []model.Appointment, day time.Time, visit func(faceStart time.Time, available bool, reason string) bool) error {
	duration := time.Duration(svc.DurationMins) * time.Minute
	bufBefore := time.Duration(svc.BufBeforeMins) * time.Minute
	bufAfter := time.Duration(svc.BufAfterMins) * time.Minute
	cycle := time.Duration(svc.CycleMins()) * time.Minute

	booked, err := appointmentIntervals(appts, day)
	if err != nil {
		return err
	}
	cutoff := e.now().Add(e.leadTime)

	for _, win := range windows {
		winStart, err := ParseClockOnDay(win.StartTime, day)
		if err != nil {
			return fmt.Errorf("window start: %w", err)
		}
		winEnd, err := ParseClockOnDay(win.EndTime, day)
		if err != nil {
			return fmt.Errorf("window end: %w", err)
		}

		cur := winStart
		for iter := 0; ; iter++ {
			if iter >= e.iterationCap {
				e.logger.Error("slot scan hit iteration cap; window truncated",
					"staff_id", win.StaffID, "service_id", svc.ID, "date", day.Format(DateLayout))
				break
			}

			faceEnd := cur.Add(duration)
			totalEnd := faceEnd.Add(bufAfter)
			if totalEnd.After(winEnd) {
				break
			}

			// The collision interval is the full resource-occupied span,
			// face time plus both buffers.
			collStart := cur.Add(-bufBefore)
			collEnd := faceEnd.Add(bufAfter)

			available := true
			reason := ""
			switch {
			case cur.Before(cutoff):
				// Covers both near-term slots today and any past date.
				available, reason = false, ReasonTooSoon
			case overlapsAny(collStart, collEnd, booked):
				available, reason = false, ReasonAlreadyBooked
			}

			if !visit(cur, available, reason) {
				return nil
			}
			cur = cur.Add(cycle)
		}
	}
	return nil
}

func appointmentIntervals(appts []model.Appointment, day time.Time) ([]interval, error) {
	out := make([]interval, 0, len(appts))
	for _, a := range appts {
		start, err := ParseClockOnDay(a.StartTime, day)
		if err != nil {
			return nil, fmt.Errorf("appointment %s start: %w", a.ID, err)
		}
		end, err := ParseClockOnDay(a.EndTime, day)
		if err != nil {
			return nil, fmt.Errorf("appointment %s end: %w", a.ID, err)
		}
		out = append(out, interval{start: start, end: end})
	}
	return out, nil
}
