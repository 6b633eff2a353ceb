package availability

import (
	"errors"
	"testing"

	"bookline/services/booking-service/internal/model"
)

func timing(a model.Appointment, dur, before, after int) AppointmentTiming {
	return AppointmentTiming{Appt: a, DurationMins: dur, BufBeforeMins: before, BufAfterMins: after}
}

func staticDay(timings ...AppointmentTiming) DayFetcher {
	return func(staffID, date string) ([]AppointmentTiming, error) {
		return timings, nil
	}
}

func TestServiceUpdateConflicts_LongerDurationHitsNeighbor(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	neighbor := appt("b1", "10:45:00", "11:15:00")

	// Stretching a 30 minute service to 60 pushes a1's span to 10:00-11:00,
	// into the neighbor at 10:45.
	conflicts, err := e.ServiceUpdateConflicts(60, 0, 0,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(neighbor, 30, 0, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != "a1" {
		t.Fatalf("expected a1 flagged, got %+v", conflicts)
	}
}

func TestServiceUpdateConflicts_BufferAfterHitsNeighbor(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	neighbor := appt("b1", "10:45:00", "11:15:00")

	conflicts, err := e.ServiceUpdateConflicts(30, 0, 30,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(neighbor, 30, 0, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != "a1" {
		t.Fatalf("expected a1 flagged, got %+v", conflicts)
	}
}

func TestServiceUpdateConflicts_DistantNeighborClean(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	neighbor := appt("b1", "12:00:00", "12:30:00")

	conflicts, err := e.ServiceUpdateConflicts(60, 0, 0,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(neighbor, 30, 0, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", conflicts)
	}
}

func TestServiceUpdateConflicts_NeighborKeepsOwnBuffers(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	// Neighbor's own service has a 15 minute lead-in buffer, so it occupies
	// 10:45-11:30 even though it starts at 11:00.
	neighbor := appt("b1", "11:00:00", "11:30:00")

	conflicts, err := e.ServiceUpdateConflicts(60, 0, 0,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(neighbor, 30, 15, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != "a1" {
		t.Fatalf("expected a1 flagged via neighbor's buffer, got %+v", conflicts)
	}
}

func TestServiceUpdateConflicts_TouchingSpansClean(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	neighbor := appt("b1", "11:00:00", "11:30:00")

	// New span ends exactly at 11:00 where the neighbor begins.
	conflicts, err := e.ServiceUpdateConflicts(60, 0, 0,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(neighbor, 30, 0, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts for touching spans, got %+v", conflicts)
	}
}

func TestServiceUpdateConflicts_FlagsOnce(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	n1 := appt("b1", "10:45:00", "11:15:00")
	n2 := appt("b2", "11:15:00", "11:45:00")

	conflicts, err := e.ServiceUpdateConflicts(120, 0, 0,
		[]model.Appointment{target},
		staticDay(timing(target, 30, 0, 0), timing(n1, 30, 0, 0), timing(n2, 30, 0, 0)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("appointment must be flagged once even with two colliding neighbors, got %d", len(conflicts))
	}
}

func TestServiceUpdateConflicts_FetchErrorPropagates(t *testing.T) {
	e := testEngine(farAway)
	target := appt("a1", "10:00:00", "10:30:00")
	boom := errors.New("db down")

	_, err := e.ServiceUpdateConflicts(60, 0, 0,
		[]model.Appointment{target},
		func(staffID, date string) ([]AppointmentTiming, error) { return nil, boom },
	)
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}
}

func TestServiceUpdateConflicts_GroupsByStaffAndDate(t *testing.T) {
	e := testEngine(farAway)
	a1 := appt("a1", "10:00:00", "10:30:00")
	a2 := appt("a2", "10:00:00", "10:30:00")
	a2.StaffID = "staff-2"
	a2.Date = "2026-01-29"

	var calls []string
	fetch := func(staffID, date string) ([]AppointmentTiming, error) {
		calls = append(calls, staffID+"/"+date)
		return nil, nil
	}

	if _, err := e.ServiceUpdateConflicts(60, 0, 0, []model.Appointment{a1, a2}, fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "staff-1/2026-01-28" || calls[1] != "staff-2/2026-01-29" {
		t.Fatalf("expected one fetch per staff/date group in order, got %v", calls)
	}
}
