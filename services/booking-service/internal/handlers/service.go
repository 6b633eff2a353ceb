package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookline/services/booking-service/internal/availability"
	"bookline/services/booking-service/internal/model"
	"bookline/services/booking-service/internal/storage"
)

var (
	errInvalidStart = errors.New("invalid start_time")
	errInvalidEnd   = errors.New("invalid end_time")
	errEmptyWindow  = errors.New("end_time must be after start_time")
)

type serviceStore interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServices(ctx context.Context, providerID string) ([]model.Service, error)
	UpdateServiceTiming(ctx context.Context, serviceID string, durationMins, bufBeforeMins, bufAfterMins int) (model.Service, error)
	ListFutureByService(ctx context.Context, serviceID, fromDate string) ([]model.Appointment, error)
	ListStaffDayTimings(ctx context.Context, staffID, date string) ([]availability.AppointmentTiming, error)
}

// ServiceHandler serves service catalog timing: the advisory conflict check a
// provider runs before changing a service's duration or buffers, the timing
// update itself, and the time picker options helper.
type ServiceHandler struct {
	store  serviceStore
	engine *availability.Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewServiceHandler(store serviceStore, engine *availability.Engine, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{
		store:  store,
		engine: engine,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type conflictCheckRequest struct {
	ServiceID     string `json:"service_id"`
	DurationMins  int    `json:"duration_minutes"`
	BufBeforeMins int    `json:"buffer_before_minutes"`
	BufAfterMins  int    `json:"buffer_after_minutes"`
}

type conflictItem struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
	CustomerName  string `json:"customer_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
}

type conflictCheckResponse struct {
	ServiceID string         `json:"service_id"`
	Conflicts []conflictItem `json:"conflicts"`
	Count     int            `json:"count"`
}

func (h *ServiceHandler) ConflictCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ServiceID == "" {
		http.Error(w, "service_id required", http.StatusBadRequest)
		return
	}
	if req.DurationMins <= 0 || req.BufBeforeMins < 0 || req.BufAfterMins < 0 {
		http.Error(w, "invalid timing parameters", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetService(r.Context(), req.ServiceID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	fromDate := h.now().Format(availability.DateLayout)
	future, err := h.store.ListFutureByService(r.Context(), req.ServiceID, fromDate)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	conflicts, err := h.engine.ServiceUpdateConflicts(
		req.DurationMins, req.BufBeforeMins, req.BufAfterMins, future,
		func(staffID, date string) ([]availability.AppointmentTiming, error) {
			return h.store.ListStaffDayTimings(r.Context(), staffID, date)
		},
	)
	if err != nil {
		h.logger.Error("conflict check failed", "service_id", req.ServiceID, "err", err)
		http.Error(w, "conflict check failed", http.StatusInternalServerError)
		return
	}

	items := make([]conflictItem, 0, len(conflicts))
	for _, a := range conflicts {
		items = append(items, conflictItem{
			AppointmentID: a.ID,
			StaffID:       a.StaffID,
			CustomerName:  a.CustomerName,
			Date:          a.Date,
			StartTime:     a.StartTime,
		})
	}
	writeJSON(w, http.StatusOK, conflictCheckResponse{
		ServiceID: req.ServiceID,
		Conflicts: items,
		Count:     len(items),
	})
}

type updateTimingRequest struct {
	DurationMins  int `json:"duration_minutes"`
	BufBeforeMins int `json:"buffer_before_minutes"`
	BufAfterMins  int `json:"buffer_after_minutes"`
}

type serviceTimingResponse struct {
	ServiceID     string `json:"service_id"`
	DurationMins  int    `json:"duration_minutes"`
	BufBeforeMins int    `json:"buffer_before_minutes"`
	BufAfterMins  int    `json:"buffer_after_minutes"`
}

// UpdateTiming persists new timing parameters. It does not re-run the conflict
// check; existing appointments keep their booked spans and the provider is
// expected to have reviewed conflicts via ConflictCheck first.
func (h *ServiceHandler) UpdateTiming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	serviceID := strings.TrimSpace(r.PathValue("id"))
	if serviceID == "" {
		http.Error(w, "service id required", http.StatusBadRequest)
		return
	}

	var req updateTimingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.DurationMins <= 0 || req.BufBeforeMins < 0 || req.BufAfterMins < 0 {
		http.Error(w, "invalid timing parameters", http.StatusBadRequest)
		return
	}

	svc, err := h.store.UpdateServiceTiming(r.Context(), serviceID, req.DurationMins, req.BufBeforeMins, req.BufAfterMins)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("service timing update failed", "service_id", serviceID, "err", err)
		http.Error(w, "failed to update service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, serviceTimingResponse{
		ServiceID:     svc.ID,
		DurationMins:  svc.DurationMins,
		BufBeforeMins: svc.BufBeforeMins,
		BufAfterMins:  svc.BufAfterMins,
	})
}

type serviceItem struct {
	ServiceID     string `json:"service_id"`
	Name          string `json:"name"`
	DurationMins  int    `json:"duration_minutes"`
	BufBeforeMins int    `json:"buffer_before_minutes"`
	BufAfterMins  int    `json:"buffer_after_minutes"`
	PriceCents    int    `json:"price_cents"`
}

// List returns a provider's bookable catalog for the public booking page.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}

	services, err := h.store.ListServices(r.Context(), providerID)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceItem{
			ServiceID:     svc.ID,
			Name:          svc.Name,
			DurationMins:  svc.DurationMins,
			BufBeforeMins: svc.BufBeforeMins,
			BufAfterMins:  svc.BufAfterMins,
			PriceCents:    svc.PriceCents,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type timeOptionsResponse struct {
	Options []string `json:"options"`
}

func (h *ServiceHandler) TimeOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	min := strings.TrimSpace(r.URL.Query().Get("min"))
	if min == "" {
		min = "00:00"
	}
	max := strings.TrimSpace(r.URL.Query().Get("max"))
	if max == "" {
		max = "23:00"
	}
	step := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("step")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 120 {
			http.Error(w, "step must be between 1 and 120 minutes", http.StatusBadRequest)
			return
		}
		step = n
	}

	options, err := availability.ClockOptions(min, max, step)
	if err != nil {
		http.Error(w, "invalid min or max clock", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, timeOptionsResponse{Options: options})
}
