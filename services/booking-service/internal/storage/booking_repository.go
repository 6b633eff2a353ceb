package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookline/libs/db"
	"bookline/services/booking-service/internal/availability"
	"bookline/services/booking-service/internal/model"
	"bookline/services/booking-service/internal/outbox"
)

// BookingRepository persists appointments. Writes that must be visible to the
// notify pipeline go through a single transaction with their outbox events, so
// an appointment row and its event are committed or rolled back together.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, ob *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: ob}
}

const appointmentColumns = `
	id, staff_id, service_id, customer_id,
	customer_name, customer_email, customer_phone,
	appointment_date::text, start_time::text, end_time::text,
	status, COALESCE(notes, ''), cancelled_at, COALESCE(cancellation_reason, ''), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID, &a.StaffID, &a.ServiceID, &a.CustomerID,
		&a.CustomerName, &a.CustomerEmail, &a.CustomerPhone,
		&a.Date, &a.StartTime, &a.EndTime,
		&a.Status, &a.Notes, &a.CancelledAt, &a.CancelReason, &a.CreatedAt,
	)
	return a, err
}

// Book inserts the appointment and its outbox events in one transaction. The
// database's exclusion constraint is the overlap authority; callers classify a
// failure with IsOverlapConflict. Returns the generated appointment ID.
func (r *BookingRepository) Book(ctx context.Context, appt *model.Appointment, events []outbox.Event) (string, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, staff_id, service_id, customer_id,
			customer_name, customer_email, customer_phone,
			appointment_date, start_time, end_time, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		appt.ID, appt.StaffID, appt.ServiceID, appt.CustomerID,
		appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone,
		appt.Date, appt.StartTime, appt.EndTime, appt.Status, appt.Notes,
	)
	if err != nil {
		return "", err
	}

	for _, evt := range events {
		if evt.AggregateID == "" {
			evt.AggregateID = appt.ID
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return "", fmt.Errorf("insert outbox event %s: %w", evt.EventType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return appt.ID, nil
}

// Cancel marks an appointment cancelled and writes the outbox events built by
// buildEvents from the row's pre-cancellation state. Cancelling an already
// cancelled appointment is a no-op and returns the row unchanged.
func (r *BookingRepository) Cancel(ctx context.Context, id, reason string, buildEvents func(model.Appointment) []outbox.Event) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return appt, tx.Commit(ctx)
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, cancelled_at = now(), cancellation_reason = $3
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, model.StatusCancelled, reason))
	if err != nil {
		return model.Appointment{}, err
	}

	if buildEvents != nil {
		for _, evt := range buildEvents(updated) {
			if err := r.outbox.Insert(ctx, tx, evt); err != nil {
				return model.Appointment{}, fmt.Errorf("insert outbox event %s: %w", evt.EventType, err)
			}
		}
	}
	return updated, tx.Commit(ctx)
}

func (r *BookingRepository) listAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// ListStaffDay returns a staff member's active appointments for one date,
// ordered by start time. Cancelled and no-show rows never block a slot.
func (r *BookingRepository) ListStaffDay(ctx context.Context, staffID, date string) ([]model.Appointment, error) {
	return r.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1 AND appointment_date = $2 AND status = ANY($3)
		ORDER BY start_time
	`, staffID, date, model.ActiveStatuses)
}

// ListStaffRange returns active appointments over [fromDate, toDate] keyed by
// ISO date, for bulk day-status evaluation.
func (r *BookingRepository) ListStaffRange(ctx context.Context, staffID, fromDate, toDate string) (map[string][]model.Appointment, error) {
	appts, err := r.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1 AND appointment_date BETWEEN $2 AND $3 AND status = ANY($4)
		ORDER BY appointment_date, start_time
	`, staffID, fromDate, toDate, model.ActiveStatuses)
	if err != nil {
		return nil, err
	}
	byDate := map[string][]model.Appointment{}
	for _, a := range appts {
		byDate[a.Date] = append(byDate[a.Date], a)
	}
	return byDate, nil
}

// ListFutureByService returns a service's active appointments on or after
// fromDate, the candidate set for a timing-change conflict check.
func (r *BookingRepository) ListFutureByService(ctx context.Context, serviceID, fromDate string) ([]model.Appointment, error) {
	return r.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE service_id = $1 AND appointment_date >= $2 AND status = ANY($3)
		ORDER BY appointment_date, start_time
	`, serviceID, fromDate, model.ActiveStatuses)
}

// ListStaffDayTimings returns a staff member's active appointments for one date
// joined with the timing parameters of the service each was booked under.
func (r *BookingRepository) ListStaffDayTimings(ctx context.Context, staffID, date string) ([]availability.AppointmentTiming, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.staff_id, a.service_id, a.customer_id,
			a.customer_name, a.customer_email, a.customer_phone,
			a.appointment_date::text, a.start_time::text, a.end_time::text,
			a.status, COALESCE(a.notes, ''), a.cancelled_at, COALESCE(a.cancellation_reason, ''), a.created_at,
			s.duration_minutes, s.buffer_before_minutes, s.buffer_after_minutes
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.staff_id = $1 AND a.appointment_date = $2 AND a.status = ANY($3)
		ORDER BY a.start_time
	`, staffID, date, model.ActiveStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timings []availability.AppointmentTiming
	for rows.Next() {
		var t availability.AppointmentTiming
		a := &t.Appt
		err := rows.Scan(
			&a.ID, &a.StaffID, &a.ServiceID, &a.CustomerID,
			&a.CustomerName, &a.CustomerEmail, &a.CustomerPhone,
			&a.Date, &a.StartTime, &a.EndTime,
			&a.Status, &a.Notes, &a.CancelledAt, &a.CancelReason, &a.CreatedAt,
			&t.DurationMins, &t.BufBeforeMins, &t.BufAfterMins,
		)
		if err != nil {
			return nil, err
		}
		timings = append(timings, t)
	}
	return timings, rows.Err()
}

// ListByCustomer returns a customer's appointments, newest first.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_id = $1
		ORDER BY appointment_date DESC, start_time DESC
		LIMIT $2
	`, customerID, limit)
}

// ListByStaff returns a staff member's appointments, newest first.
func (r *BookingRepository) ListByStaff(ctx context.Context, staffID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		ORDER BY appointment_date DESC, start_time DESC
		LIMIT $2
	`, staffID, limit)
}
