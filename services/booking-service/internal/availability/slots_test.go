package availability

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"bookline/services/booking-service/internal/model"
)

func testEngine(now time.Time, opts ...Option) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	all := append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(logger, all...)
}

func window(weekday int, start, end string) model.WeeklyAvailability {
	return model.WeeklyAvailability{
		StaffID:     "staff-1",
		Weekday:     weekday,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
}

func appt(id, start, end string) model.Appointment {
	return model.Appointment{
		ID:        id,
		StaffID:   "staff-1",
		Date:      "2026-01-28",
		StartTime: start,
		EndTime:   end,
		Status:    model.StatusConfirmed,
	}
}

var (
	testDay = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	// Three days before the test day, so lead time never interferes unless a
	// test moves the clock.
	farAway = time.Date(2026, 1, 25, 12, 0, 0, 0, time.UTC)
)

func TestSlots_FullDayOpen(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if slots[0].Time != "09:00" || slots[7].Time != "16:00" {
		t.Fatalf("expected 09:00..16:00, got %s..%s", slots[0].Time, slots[7].Time)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s should be available, reason %q", s.Time, s.Reason)
		}
	}
}

func TestSlots_BookedSlotFlagged(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}
	appts := []model.Appointment{appt("a1", "10:00:00", "11:00:00")}

	slots, err := e.Slots(svc, windows, appts, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		switch s.Time {
		case "10:00":
			if s.Available || s.Reason != ReasonAlreadyBooked {
				t.Fatalf("10:00 should be booked, got available=%v reason=%q", s.Available, s.Reason)
			}
		default:
			if !s.Available {
				t.Fatalf("slot %s should be available, reason %q", s.Time, s.Reason)
			}
		}
	}
}

func TestSlots_TouchingEndpointsDoNotCollide(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}
	appts := []model.Appointment{appt("a1", "10:00:00", "11:00:00")}

	slots, err := e.Slots(svc, windows, appts, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.Time == "09:00" && !s.Available {
			t.Fatalf("09:00 ends exactly when the booking starts and must stay open, reason %q", s.Reason)
		}
		if s.Time == "11:00" && !s.Available {
			t.Fatalf("11:00 starts exactly when the booking ends and must stay open, reason %q", s.Reason)
		}
	}
}

func TestSlots_BuffersWidenCollision(t *testing.T) {
	e := testEngine(farAway)
	// 30 min face with 15 before and after: 60 min cycle, and each candidate
	// occupies start-15 through start+45.
	svc := model.Service{ID: "svc-1", DurationMins: 30, BufBeforeMins: 15, BufAfterMins: 15}
	windows := []model.WeeklyAvailability{window(3, "09:00", "13:00")}
	appts := []model.Appointment{appt("a1", "11:00:00", "11:30:00")}

	slots, err := e.Slots(svc, windows, appts, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string]model.TimeSlot{}
	for _, s := range slots {
		got[s.Time] = s
	}
	// The 10:00 candidate occupies 09:45-10:45 and stops short of the
	// 11:00 booking; the 11:00 candidate occupies 10:45-11:45 and collides.
	if s := got["10:00"]; !s.Available {
		t.Fatalf("10:00 should be available, reason %q", s.Reason)
	}
	if s := got["11:00"]; s.Available {
		t.Fatalf("11:00 should collide with its own booking")
	}
	if s := got["12:00"]; !s.Available {
		t.Fatalf("12:00 should be available, reason %q", s.Reason)
	}
}

func TestSlots_LeadTime(t *testing.T) {
	// Clock frozen at 08:00 on the target day; with the default 120 minute
	// lead, everything before 10:00 is too soon.
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	e := testEngine(now)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		tooSoon := s.Time < "10:00"
		if tooSoon && (s.Available || s.Reason != ReasonTooSoon) {
			t.Fatalf("slot %s should be too soon, got available=%v reason=%q", s.Time, s.Available, s.Reason)
		}
		if !tooSoon && !s.Available {
			t.Fatalf("slot %s should be available, reason %q", s.Time, s.Reason)
		}
	}
}

func TestSlots_PastDayAllTooSoon(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	e := testEngine(now)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "12:00")}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots to be enumerated for a past day")
	}
	for _, s := range slots {
		if s.Available || s.Reason != ReasonTooSoon {
			t.Fatalf("past slot %s should be too soon", s.Time)
		}
	}
}

func TestSlots_ZeroCycle(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1"}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", slots)
	}

	open, err := e.HasOpenSlot(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open {
		t.Fatal("zero cycle must report no open slot")
	}
}

func TestSlots_MalformedAppointmentPropagates(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}
	appts := []model.Appointment{appt("a1", "bogus", "11:00:00")}

	if _, err := e.Slots(svc, windows, appts, testDay); err == nil {
		t.Fatal("expected error for malformed appointment clock")
	}
	if _, err := e.HasOpenSlot(svc, windows, appts, testDay); err == nil {
		t.Fatal("expected error for malformed appointment clock")
	}
}

func TestSlots_Idempotent(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 45, BufAfterMins: 15}
	windows := []model.WeeklyAvailability{window(3, "09:00", "13:00")}
	appts := []model.Appointment{appt("a1", "10:00:00", "10:45:00")}

	first, err := e.Slots(svc, windows, appts, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Slots(svc, windows, appts, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestHasOpenSlot_AgreesWithGenerator(t *testing.T) {
	e := testEngine(farAway)
	windows := []model.WeeklyAvailability{window(3, "09:00", "12:00")}

	cases := []struct {
		name  string
		svc   model.Service
		appts []model.Appointment
	}{
		{"open day", model.Service{ID: "s", DurationMins: 60}, nil},
		{"partially booked", model.Service{ID: "s", DurationMins: 60},
			[]model.Appointment{appt("a1", "09:00:00", "10:00:00")}},
		{"fully booked", model.Service{ID: "s", DurationMins: 60},
			[]model.Appointment{
				appt("a1", "09:00:00", "10:00:00"),
				appt("a2", "10:00:00", "11:00:00"),
				appt("a3", "11:00:00", "12:00:00"),
			}},
		{"with buffers", model.Service{ID: "s", DurationMins: 30, BufBeforeMins: 10, BufAfterMins: 10},
			[]model.Appointment{appt("a1", "09:30:00", "10:00:00")}},
	}
	for _, tc := range cases {
		slots, err := e.Slots(tc.svc, windows, tc.appts, testDay)
		if err != nil {
			t.Fatalf("%s: generator error: %v", tc.name, err)
		}
		anyOpen := false
		for _, s := range slots {
			if s.Available {
				anyOpen = true
				break
			}
		}
		open, err := e.HasOpenSlot(tc.svc, windows, tc.appts, testDay)
		if err != nil {
			t.Fatalf("%s: oracle error: %v", tc.name, err)
		}
		if open != anyOpen {
			t.Fatalf("%s: oracle says %v but generator says %v", tc.name, open, anyOpen)
		}
	}
}

func TestSlots_MultipleWindows(t *testing.T) {
	e := testEngine(farAway)
	svc := model.Service{ID: "svc-1", DurationMins: 60}
	windows := []model.WeeklyAvailability{
		window(3, "09:00", "11:00"),
		window(3, "14:00", "16:00"),
	}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "10:00", "14:00", "15:00"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.Time != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], s.Time)
		}
	}
}

func TestSlots_IterationCap(t *testing.T) {
	e := testEngine(farAway, WithIterationCap(3))
	svc := model.Service{ID: "svc-1", DurationMins: 15}
	windows := []model.WeeklyAvailability{window(3, "09:00", "17:00")}

	slots, err := e.Slots(svc, windows, nil, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected scan truncated at 3 slots, got %d", len(slots))
	}
}
