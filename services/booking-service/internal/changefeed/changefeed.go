// Package changefeed pushes lightweight invalidation signals over Redis
// pub/sub so open booking pages can refresh their slot grid when a staff
// member's day changes. Delivery is best effort; a miss only delays the
// refresh until the next poll.
package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "appointments.changed."

type Publisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewPublisher wraps client, which may be nil when Redis is not configured;
// every publish is then a no-op.
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

type changeMessage struct {
	StaffID string `json:"staff_id"`
	Date    string `json:"date"`
	Action  string `json:"action"`
}

// AppointmentChanged announces that staffID's schedule on date changed.
// Action is "booked" or "cancelled".
func (p *Publisher) AppointmentChanged(ctx context.Context, staffID, date, action string) {
	if p.client == nil {
		return
	}
	payload, err := json.Marshal(changeMessage{StaffID: staffID, Date: date, Action: action})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, channelPrefix+staffID, payload).Err(); err != nil {
		p.logger.Warn("changefeed publish failed", "staff_id", staffID, "err", err)
	}
}
