package availability

import (
	"testing"
	"time"

	"bookline/services/booking-service/internal/model"
)

func TestDayStatuses_Classification(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	// Working Wednesdays and Thursdays only.
	weekly := []model.WeeklyAvailability{
		window(3, "09:00", "11:00"),
		window(4, "09:00", "11:00"),
	}

	// 2026-01-28 is a Wednesday, 2026-01-29 a Thursday, 2026-01-30 a Friday.
	apptsByDate := map[string][]model.Appointment{
		"2026-01-29": {
			appt("a1", "09:00:00", "10:00:00"),
			appt("a2", "10:00:00", "11:00:00"),
		},
	}

	statuses := e.DayStatuses(svc, weekly, nil, apptsByDate, testDay, 3)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses["2026-01-28"] != model.DayAvailable {
		t.Fatalf("open Wednesday should be Available, got %s", statuses["2026-01-28"])
	}
	if statuses["2026-01-29"] != model.DayBusy {
		t.Fatalf("fully booked Thursday should be Busy, got %s", statuses["2026-01-29"])
	}
	if statuses["2026-01-30"] != model.DayUnavailable {
		t.Fatalf("non-working Friday should be Unavailable, got %s", statuses["2026-01-30"])
	}
}

func TestDayStatuses_BlockedDateWins(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	weekly := []model.WeeklyAvailability{window(3, "09:00", "17:00")}
	blocked := []model.BlockedDate{{
		StaffID:   "staff-1",
		StartDate: "2026-01-27",
		EndDate:   "2026-01-29",
	}}

	statuses := e.DayStatuses(svc, weekly, blocked, nil, testDay, 1)
	if statuses["2026-01-28"] != model.DayUnavailable {
		t.Fatalf("blocked working day should be Unavailable, got %s", statuses["2026-01-28"])
	}
}

func TestDayStatuses_FailOpen(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	weekly := []model.WeeklyAvailability{window(3, "09:00", "17:00")}
	apptsByDate := map[string][]model.Appointment{
		"2026-01-28": {appt("a1", "garbage", "10:00:00")},
	}

	statuses := e.DayStatuses(svc, weekly, nil, apptsByDate, testDay, 1)
	if statuses["2026-01-28"] != model.DayAvailable {
		t.Fatalf("evaluation failure should fail open to Available, got %s", statuses["2026-01-28"])
	}
}

func TestIsBlocked_InclusiveRange(t *testing.T) {
	blocked := []model.BlockedDate{{StartDate: "2026-02-10", EndDate: "2026-02-12"}}

	cases := map[string]bool{
		"2026-02-09": false,
		"2026-02-10": true,
		"2026-02-11": true,
		"2026-02-12": true,
		"2026-02-13": false,
	}
	for date, want := range cases {
		if got := IsBlocked(blocked, date); got != want {
			t.Fatalf("IsBlocked(%s) = %v, want %v", date, got, want)
		}
	}
}

func TestWindowsForWeekday_FiltersUnavailable(t *testing.T) {
	off := window(3, "09:00", "12:00")
	off.IsAvailable = false
	weekly := []model.WeeklyAvailability{
		window(3, "13:00", "17:00"),
		off,
		window(4, "09:00", "12:00"),
	}

	got := WindowsForWeekday(weekly, 3)
	if len(got) != 1 || got[0].StartTime != "13:00" {
		t.Fatalf("expected only the open Wednesday window, got %+v", got)
	}
}

func TestDayStatuses_WeekdayBoundary(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	// Sunday is weekday 0.
	weekly := []model.WeeklyAvailability{window(0, "10:00", "12:00")}

	// 2026-02-01 is a Sunday.
	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	statuses := e.DayStatuses(svc, weekly, nil, nil, sunday, 2)
	if statuses["2026-02-01"] != model.DayAvailable {
		t.Fatalf("Sunday should be Available, got %s", statuses["2026-02-01"])
	}
	if statuses["2026-02-02"] != model.DayUnavailable {
		t.Fatalf("Monday should be Unavailable, got %s", statuses["2026-02-02"])
	}
}
