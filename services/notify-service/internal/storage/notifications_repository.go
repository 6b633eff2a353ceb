package storage

import (
	"context"
	"encoding/json"

	"bookline/libs/db"
)

type Notification struct {
	AppointmentID string
	StaffID       string
	Kind          string
	Channel       string
	Provider      string
	Recipient     string
	Payload       map[string]any
	Status        string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, staff_id, kind, channel, provider, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.AppointmentID, n.StaffID, n.Kind, n.Channel, n.Provider, n.Recipient, payload, n.Status)
	return err
}
