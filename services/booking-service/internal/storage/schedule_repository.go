package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookline/libs/db"
	"bookline/services/booking-service/internal/model"
)

// ScheduleRepository persists the provider-facing scheduling data: weekly
// working windows, blackout date ranges, and the service catalog.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) ListWeeklyAvailability(ctx context.Context, staffID string) ([]model.WeeklyAvailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_id, weekday, start_time::text, end_time::text, is_available
		FROM weekly_availability
		WHERE staff_id = $1
		ORDER BY weekday, start_time
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weekly []model.WeeklyAvailability
	for rows.Next() {
		var w model.WeeklyAvailability
		if err := rows.Scan(&w.ID, &w.StaffID, &w.Weekday, &w.StartTime, &w.EndTime, &w.IsAvailable); err != nil {
			return nil, err
		}
		weekly = append(weekly, w)
	}
	return weekly, rows.Err()
}

// ReplaceWeeklyAvailability swaps a staff member's whole weekly schedule in one
// transaction. The schedule editor always submits the full week.
func (r *ScheduleRepository) ReplaceWeeklyAvailability(ctx context.Context, staffID string, weekly []model.WeeklyAvailability) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM weekly_availability WHERE staff_id = $1`, staffID); err != nil {
		return err
	}
	for _, w := range weekly {
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO weekly_availability (id, staff_id, weekday, start_time, end_time, is_available)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, staffID, w.Weekday, w.StartTime, w.EndTime, w.IsAvailable)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListBlockedDates returns a staff member's blackout ranges that end on or
// after fromDate. Past ranges are irrelevant to availability.
func (r *ScheduleRepository) ListBlockedDates(ctx context.Context, staffID, fromDate string) ([]model.BlockedDate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_id, start_date::text, end_date::text, COALESCE(reason, '')
		FROM blocked_dates
		WHERE staff_id = $1 AND end_date >= $2
		ORDER BY start_date
	`, staffID, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocked []model.BlockedDate
	for rows.Next() {
		var b model.BlockedDate
		if err := rows.Scan(&b.ID, &b.StaffID, &b.StartDate, &b.EndDate, &b.Reason); err != nil {
			return nil, err
		}
		blocked = append(blocked, b)
	}
	return blocked, rows.Err()
}

func (r *ScheduleRepository) CreateBlockedDate(ctx context.Context, b *model.BlockedDate) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocked_dates (id, staff_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.StaffID, b.StartDate, b.EndDate, b.Reason)
	return err
}

func (r *ScheduleRepository) DeleteBlockedDate(ctx context.Context, staffID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_dates WHERE id = $1 AND staff_id = $2
	`, id, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ScheduleRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, price_cents, active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.ProviderID, &s.Name, &s.DurationMins, &s.BufBeforeMins, &s.BufAfterMins, &s.PriceCents, &s.Active)
	return s, err
}

func (r *ScheduleRepository) ListServices(ctx context.Context, providerID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, price_cents, active
		FROM services
		WHERE provider_id = $1 AND active
		ORDER BY name
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.ProviderID, &s.Name, &s.DurationMins, &s.BufBeforeMins, &s.BufAfterMins, &s.PriceCents, &s.Active); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// UpdateServiceTiming applies new timing parameters to a service. Existing
// appointments are never rewritten; the conflict-check endpoint is the
// advisory step before calling this.
func (r *ScheduleRepository) UpdateServiceTiming(ctx context.Context, serviceID string, durationMins, bufBeforeMins, bufAfterMins int) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		UPDATE services
		SET duration_minutes = $2, buffer_before_minutes = $3, buffer_after_minutes = $4
		WHERE id = $1
		RETURNING id, provider_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, price_cents, active
	`, serviceID, durationMins, bufBeforeMins, bufAfterMins).
		Scan(&s.ID, &s.ProviderID, &s.Name, &s.DurationMins, &s.BufBeforeMins, &s.BufAfterMins, &s.PriceCents, &s.Active)
	return s, err
}
