package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookline/services/booking-service/internal/availability"
	"bookline/services/booking-service/internal/changefeed"
	"bookline/services/booking-service/internal/model"
	"bookline/services/booking-service/internal/outbox"
	"bookline/services/booking-service/internal/storage"
)

type bookingStore interface {
	Book(ctx context.Context, appt *model.Appointment, events []outbox.Event) (string, error)
	Cancel(ctx context.Context, id, reason string, buildEvents func(model.Appointment) []outbox.Event) (model.Appointment, error)
	ListStaffDay(ctx context.Context, staffID, date string) ([]model.Appointment, error)
	ListStaffRange(ctx context.Context, staffID, fromDate, toDate string) (map[string][]model.Appointment, error)
	ListByStaff(ctx context.Context, staffID string, limit int) ([]model.Appointment, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error)
}

type scheduleStore interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	ListWeeklyAvailability(ctx context.Context, staffID string) ([]model.WeeklyAvailability, error)
	ListBlockedDates(ctx context.Context, staffID, fromDate string) ([]model.BlockedDate, error)
}

type BookingHandler struct {
	store    bookingStore
	schedule scheduleStore
	engine   *availability.Engine
	feed     *changefeed.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewBookingHandler(store bookingStore, schedule scheduleStore, engine *availability.Engine, feed *changefeed.Publisher, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		store:    store,
		schedule: schedule,
		engine:   engine,
		feed:     feed,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type slotsResponse struct {
	StaffID   string           `json:"staff_id"`
	ServiceID string           `json:"service_id"`
	Date      string           `json:"date"`
	Slots     []model.TimeSlot `json:"slots"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if staffID == "" || serviceID == "" || dateStr == "" {
		http.Error(w, "staff_id, service_id, and date are required", http.StatusBadRequest)
		return
	}
	day, err := availability.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	svc, err := h.schedule.GetService(r.Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	slots, err := h.computeSlots(r.Context(), svc, staffID, dateStr, day)
	if err != nil {
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		StaffID:   staffID,
		ServiceID: serviceID,
		Date:      dateStr,
		Slots:     slots,
	})
}

// computeSlots runs the full read path for one day: schedule windows, blackout
// check, booked appointments, then the slot generator. A blacked-out day or a
// weekday with no windows yields an empty list, not an error.
func (h *BookingHandler) computeSlots(ctx context.Context, svc model.Service, staffID, dateStr string, day time.Time) ([]model.TimeSlot, error) {
	blocked, err := h.schedule.ListBlockedDates(ctx, staffID, dateStr)
	if err != nil {
		return nil, err
	}
	if availability.IsBlocked(blocked, dateStr) {
		return []model.TimeSlot{}, nil
	}

	weekly, err := h.schedule.ListWeeklyAvailability(ctx, staffID)
	if err != nil {
		return nil, err
	}
	windows := availability.WindowsForWeekday(weekly, int(day.Weekday()))
	if len(windows) == 0 {
		return []model.TimeSlot{}, nil
	}

	appts, err := h.store.ListStaffDay(ctx, staffID, dateStr)
	if err != nil {
		return nil, err
	}
	return h.engine.Slots(svc, windows, appts, day)
}

type dayStatusesResponse struct {
	StaffID   string                     `json:"staff_id"`
	ServiceID string                     `json:"service_id"`
	From      string                     `json:"from"`
	Days      int                        `json:"days"`
	Statuses  map[string]model.DayStatus `json:"statuses"`
}

func (h *BookingHandler) DayStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if staffID == "" || serviceID == "" {
		http.Error(w, "staff_id and service_id are required", http.StatusBadRequest)
		return
	}

	from := h.now().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := availability.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	days := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 90 {
			http.Error(w, "days must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = n
	}

	svc, err := h.schedule.GetService(r.Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	fromDate := from.Format(availability.DateLayout)
	toDate := from.AddDate(0, 0, days-1).Format(availability.DateLayout)

	weekly, err := h.schedule.ListWeeklyAvailability(r.Context(), staffID)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	blocked, err := h.schedule.ListBlockedDates(r.Context(), staffID, fromDate)
	if err != nil {
		http.Error(w, "failed to load blocked dates", http.StatusInternalServerError)
		return
	}
	apptsByDate, err := h.store.ListStaffRange(r.Context(), staffID, fromDate, toDate)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	statuses := h.engine.DayStatuses(svc, weekly, blocked, apptsByDate, from, days)
	writeJSON(w, http.StatusOK, dayStatusesResponse{
		StaffID:   staffID,
		ServiceID: serviceID,
		From:      fromDate,
		Days:      days,
		Statuses:  statuses,
	})
}

type bookRequest struct {
	StaffID       string `json:"staff_id"`
	ServiceID     string `json:"service_id"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Notes         string `json:"notes"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

type slotTakenResponse struct {
	Error string           `json:"error"`
	Slots []model.TimeSlot `json:"slots"`
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	if req.StaffID == "" || req.ServiceID == "" || req.CustomerName == "" || req.Date == "" || req.StartTime == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	day, err := availability.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	start, err := availability.ParseClockOnDay(req.StartTime, day)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	svc, err := h.schedule.GetService(r.Context(), req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}
	if !svc.Active {
		http.Error(w, "service is not bookable", http.StatusUnprocessableEntity)
		return
	}
	if svc.CycleMins() <= 0 {
		http.Error(w, "service has no bookable duration", http.StatusUnprocessableEntity)
		return
	}

	end := start.Add(time.Duration(svc.DurationMins) * time.Minute)
	appt := &model.Appointment{
		StaffID:       req.StaffID,
		ServiceID:     req.ServiceID,
		CustomerID:    strings.TrimSpace(req.CustomerID),
		CustomerName:  req.CustomerName,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Date:          req.Date,
		StartTime:     start.Format("15:04:05"),
		EndTime:       end.Format("15:04:05"),
		Status:        model.StatusConfirmed,
		Notes:         strings.TrimSpace(req.Notes),
	}

	payload, err := json.Marshal(map[string]any{
		"staff_id":       appt.StaffID,
		"service_id":     appt.ServiceID,
		"service_name":   svc.Name,
		"customer_name":  appt.CustomerName,
		"customer_email": appt.CustomerEmail,
		"customer_phone": appt.CustomerPhone,
		"date":           appt.Date,
		"start_time":     appt.StartTime,
		"end_time":       appt.EndTime,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}

	id, err := h.store.Book(r.Context(), appt, []outbox.Event{{
		AggregateType: "appointment",
		EventType:     "booking.appointment.booked.v1",
		Payload:       payload,
	}})
	if err != nil {
		if storage.IsOverlapConflict(err) {
			// Someone took the span between page load and submit. Reload the
			// day so the client can repaint without a second round trip.
			slots, slotsErr := h.computeSlots(r.Context(), svc, req.StaffID, req.Date, day)
			if slotsErr != nil {
				h.logger.Warn("slot refresh after conflict failed", "err", slotsErr)
				slots = []model.TimeSlot{}
			}
			writeJSON(w, http.StatusConflict, slotTakenResponse{Error: "slot just taken", Slots: slots})
			return
		}
		h.logger.Error("booking insert failed", "staff_id", req.StaffID, "err", err)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	h.feed.AppointmentChanged(r.Context(), appt.StaffID, appt.Date, "booked")
	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: id,
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Status:        appt.Status,
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.store.Cancel(r.Context(), req.AppointmentID, req.Reason, func(a model.Appointment) []outbox.Event {
		payload, err := json.Marshal(map[string]any{
			"staff_id":       a.StaffID,
			"service_id":     a.ServiceID,
			"customer_name":  a.CustomerName,
			"customer_email": a.CustomerEmail,
			"customer_phone": a.CustomerPhone,
			"date":           a.Date,
			"start_time":     a.StartTime,
			"reason":         req.Reason,
		})
		if err != nil {
			h.logger.Error("failed to build cancellation payload", "err", err)
			return nil
		}
		return []outbox.Event{{
			AggregateType: "appointment",
			AggregateID:   a.ID,
			EventType:     "booking.appointment.cancelled.v1",
			Payload:       payload,
		}}
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	h.feed.AppointmentChanged(r.Context(), appt.StaffID, appt.Date, "cancelled")
	resp := cancelResponse{AppointmentID: appt.ID, Status: appt.Status}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type listAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
	ServiceID     string `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	customerID := strings.TrimSpace(r.URL.Query().Get("customer_id"))
	if staffID == "" && customerID == "" {
		http.Error(w, "staff_id or customer_id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var appts []model.Appointment
	var err error
	if staffID != "" {
		appts, err = h.store.ListByStaff(r.Context(), staffID, limit)
	} else {
		appts, err = h.store.ListByCustomer(r.Context(), customerID, limit)
	}
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]listAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := listAppointmentItem{
			AppointmentID: appt.ID,
			StaffID:       appt.StaffID,
			ServiceID:     appt.ServiceID,
			CustomerName:  appt.CustomerName,
			Date:          appt.Date,
			StartTime:     appt.StartTime,
			EndTime:       appt.EndTime,
			Status:        appt.Status,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
