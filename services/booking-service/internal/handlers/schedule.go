package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookline/services/booking-service/internal/availability"
	"bookline/services/booking-service/internal/model"
	"bookline/services/booking-service/internal/storage"
)

type scheduleAdminStore interface {
	ListWeeklyAvailability(ctx context.Context, staffID string) ([]model.WeeklyAvailability, error)
	ReplaceWeeklyAvailability(ctx context.Context, staffID string, weekly []model.WeeklyAvailability) error
	ListBlockedDates(ctx context.Context, staffID, fromDate string) ([]model.BlockedDate, error)
	CreateBlockedDate(ctx context.Context, b *model.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, staffID, id string) error
}

// ScheduleHandler serves the provider-facing schedule editor: weekly working
// windows and blackout date ranges per staff member.
type ScheduleHandler struct {
	store  scheduleAdminStore
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduleHandler(store scheduleAdminStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type weeklyWindowItem struct {
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

func (h *ScheduleHandler) Availability(w http.ResponseWriter, r *http.Request) {
	staffID := strings.TrimSpace(r.PathValue("id"))
	if staffID == "" {
		http.Error(w, "staff id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getAvailability(w, r, staffID)
	case http.MethodPut:
		h.putAvailability(w, r, staffID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) getAvailability(w http.ResponseWriter, r *http.Request, staffID string) {
	weekly, err := h.store.ListWeeklyAvailability(r.Context(), staffID)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	items := make([]weeklyWindowItem, 0, len(weekly))
	for _, win := range weekly {
		items = append(items, weeklyWindowItem{
			Weekday:     win.Weekday,
			StartTime:   win.StartTime,
			EndTime:     win.EndTime,
			IsAvailable: win.IsAvailable,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) putAvailability(w http.ResponseWriter, r *http.Request, staffID string) {
	var items []weeklyWindowItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	weekly := make([]model.WeeklyAvailability, 0, len(items))
	for _, item := range items {
		if item.Weekday < 0 || item.Weekday > 6 {
			http.Error(w, "weekday must be 0 (Sunday) through 6 (Saturday)", http.StatusBadRequest)
			return
		}
		if err := validClockRange(item.StartTime, item.EndTime); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		weekly = append(weekly, model.WeeklyAvailability{
			StaffID:     staffID,
			Weekday:     item.Weekday,
			StartTime:   item.StartTime,
			EndTime:     item.EndTime,
			IsAvailable: item.IsAvailable,
		})
	}

	if err := h.store.ReplaceWeeklyAvailability(r.Context(), staffID, weekly); err != nil {
		h.logger.Error("weekly availability replace failed", "staff_id", staffID, "err", err)
		http.Error(w, "failed to save availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type blockedDateItem struct {
	ID        string `json:"id,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

func (h *ScheduleHandler) BlockedDates(w http.ResponseWriter, r *http.Request) {
	staffID := strings.TrimSpace(r.PathValue("id"))
	if staffID == "" {
		http.Error(w, "staff id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listBlockedDates(w, r, staffID)
	case http.MethodPost:
		h.createBlockedDate(w, r, staffID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) listBlockedDates(w http.ResponseWriter, r *http.Request, staffID string) {
	fromDate := h.now().Format(availability.DateLayout)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		if _, err := availability.ParseDate(raw); err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		fromDate = raw
	}

	blocked, err := h.store.ListBlockedDates(r.Context(), staffID, fromDate)
	if err != nil {
		http.Error(w, "failed to load blocked dates", http.StatusInternalServerError)
		return
	}
	items := make([]blockedDateItem, 0, len(blocked))
	for _, b := range blocked {
		items = append(items, blockedDateItem{
			ID:        b.ID,
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
			Reason:    b.Reason,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) createBlockedDate(w http.ResponseWriter, r *http.Request, staffID string) {
	var item blockedDateItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	item.StartDate = strings.TrimSpace(item.StartDate)
	item.EndDate = strings.TrimSpace(item.EndDate)
	if item.EndDate == "" {
		item.EndDate = item.StartDate
	}
	if _, err := availability.ParseDate(item.StartDate); err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	if _, err := availability.ParseDate(item.EndDate); err != nil {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}
	if item.EndDate < item.StartDate {
		http.Error(w, "end_date must not precede start_date", http.StatusBadRequest)
		return
	}

	blocked := &model.BlockedDate{
		StaffID:   staffID,
		StartDate: item.StartDate,
		EndDate:   item.EndDate,
		Reason:    strings.TrimSpace(item.Reason),
	}
	if err := h.store.CreateBlockedDate(r.Context(), blocked); err != nil {
		h.logger.Error("blocked date create failed", "staff_id", staffID, "err", err)
		http.Error(w, "failed to create blocked date", http.StatusInternalServerError)
		return
	}
	item.ID = blocked.ID
	writeJSON(w, http.StatusCreated, item)
}

func (h *ScheduleHandler) DeleteBlockedDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	staffID := strings.TrimSpace(r.PathValue("id"))
	blockID := strings.TrimSpace(r.PathValue("blockID"))
	if staffID == "" || blockID == "" {
		http.Error(w, "staff id and block id required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteBlockedDate(r.Context(), staffID, blockID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "blocked date not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete blocked date", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validClockRange(start, end string) error {
	ref := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := availability.ParseClockOnDay(start, ref)
	if err != nil {
		return errInvalidStart
	}
	e, err := availability.ParseClockOnDay(end, ref)
	if err != nil {
		return errInvalidEnd
	}
	if !e.After(s) {
		return errEmptyWindow
	}
	return nil
}
