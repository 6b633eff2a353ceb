package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"bookline/services/booking-service/internal/model"
)

type fakeScheduleAdminStore struct {
	weekly   []model.WeeklyAvailability
	blocked  []model.BlockedDate
	replaced [][]model.WeeklyAvailability
	deleted  []string
}

func (f *fakeScheduleAdminStore) ListWeeklyAvailability(_ context.Context, _ string) ([]model.WeeklyAvailability, error) {
	return f.weekly, nil
}

func (f *fakeScheduleAdminStore) ReplaceWeeklyAvailability(_ context.Context, _ string, weekly []model.WeeklyAvailability) error {
	f.replaced = append(f.replaced, weekly)
	f.weekly = weekly
	return nil
}

func (f *fakeScheduleAdminStore) ListBlockedDates(_ context.Context, _, _ string) ([]model.BlockedDate, error) {
	return f.blocked, nil
}

func (f *fakeScheduleAdminStore) CreateBlockedDate(_ context.Context, b *model.BlockedDate) error {
	b.ID = "block-1"
	f.blocked = append(f.blocked, *b)
	return nil
}

func (f *fakeScheduleAdminStore) DeleteBlockedDate(_ context.Context, _, id string) error {
	for i, b := range f.blocked {
		if b.ID == id {
			f.blocked = append(f.blocked[:i], f.blocked[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newTestScheduleHandler(store *fakeScheduleAdminStore) *ScheduleHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewScheduleHandler(store, logger)
	h.now = func() time.Time { return testClock }
	return h
}

func TestPutAvailability(t *testing.T) {
	store := &fakeScheduleAdminStore{}
	h := newTestScheduleHandler(store)

	body := `[{"weekday":1,"start_time":"09:00","end_time":"17:00","is_available":true}]`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/staff/staff-1/availability", strings.NewReader(body))
	req.SetPathValue("id", "staff-1")
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.replaced) != 1 || len(store.replaced[0]) != 1 {
		t.Fatalf("expected one replace with one window, got %+v", store.replaced)
	}
	if store.replaced[0][0].StaffID != "staff-1" {
		t.Fatalf("staff id should come from the path, got %q", store.replaced[0][0].StaffID)
	}
}

func TestPutAvailability_RejectsBadWindow(t *testing.T) {
	h := newTestScheduleHandler(&fakeScheduleAdminStore{})

	cases := []string{
		`[{"weekday":7,"start_time":"09:00","end_time":"17:00","is_available":true}]`,
		`[{"weekday":1,"start_time":"17:00","end_time":"09:00","is_available":true}]`,
		`[{"weekday":1,"start_time":"junk","end_time":"17:00","is_available":true}]`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/staff/staff-1/availability", strings.NewReader(body))
		req.SetPathValue("id", "staff-1")
		rec := httptest.NewRecorder()
		h.Availability(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCreateBlockedDate(t *testing.T) {
	store := &fakeScheduleAdminStore{}
	h := newTestScheduleHandler(store)

	body := `{"start_date":"2026-02-10","end_date":"2026-02-12","reason":"vacation"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/staff-1/blocked-dates", strings.NewReader(body))
	req.SetPathValue("id", "staff-1")
	rec := httptest.NewRecorder()
	h.BlockedDates(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp blockedDateItem
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.ID != "block-1" {
		t.Fatalf("expected generated id in response, got %q", resp.ID)
	}
}

func TestCreateBlockedDate_SingleDayDefault(t *testing.T) {
	store := &fakeScheduleAdminStore{}
	h := newTestScheduleHandler(store)

	body := `{"start_date":"2026-02-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/staff-1/blocked-dates", strings.NewReader(body))
	req.SetPathValue("id", "staff-1")
	rec := httptest.NewRecorder()
	h.BlockedDates(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if store.blocked[0].EndDate != "2026-02-10" {
		t.Fatalf("missing end_date should default to start_date, got %q", store.blocked[0].EndDate)
	}
}

func TestCreateBlockedDate_InvertedRange(t *testing.T) {
	h := newTestScheduleHandler(&fakeScheduleAdminStore{})

	body := `{"start_date":"2026-02-12","end_date":"2026-02-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/staff-1/blocked-dates", strings.NewReader(body))
	req.SetPathValue("id", "staff-1")
	rec := httptest.NewRecorder()
	h.BlockedDates(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteBlockedDate(t *testing.T) {
	store := &fakeScheduleAdminStore{blocked: []model.BlockedDate{{ID: "block-1", StaffID: "staff-1"}}}
	h := newTestScheduleHandler(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/staff/staff-1/blocked-dates/block-1", nil)
	req.SetPathValue("id", "staff-1")
	req.SetPathValue("blockID", "block-1")
	rec := httptest.NewRecorder()
	h.DeleteBlockedDate(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteBlockedDate(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", rec.Code)
	}
}
