package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bookline/libs/config"
	"bookline/libs/db"
	"bookline/libs/httpx"
	"bookline/libs/kafkax"
	otelx "bookline/libs/otel"
	"bookline/libs/runtime"
	"bookline/services/notify-service/internal/consumer"
	"bookline/services/notify-service/internal/email"
	"bookline/services/notify-service/internal/inbox"
	"bookline/services/notify-service/internal/sms"
	"bookline/services/notify-service/internal/storage"
)

const (
	topicBooked    = "booking.appointment.booked.v1"
	topicCancelled = "booking.appointment.cancelled.v1"
)

type appointmentEvent struct {
	StaffID       string `json:"staff_id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Reason        string `json:"reason"`
}

type notificationStore interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type notifier struct {
	logger *slog.Logger
	repo   notificationStore
	email  email.Sender
	sms    sms.Sender
}

func (n *notifier) handle(kind string) consumer.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			n.logger.Error("invalid event payload", "topic", msg.Topic, "err", err)
			return nil
		}
		if evt.StaffID == "" || evt.Date == "" || evt.StartTime == "" {
			n.logger.Error("missing event fields", "topic", msg.Topic)
			return nil
		}
		appointmentID := string(msg.Key)
		if appointmentID == "" {
			appointmentID = kafkax.HeaderValue(msg.Headers, "event_id")
		}

		subject, body := composeMessage(kind, evt)

		if evt.CustomerEmail != "" {
			status := "sent"
			if err := n.email.Send(evt.CustomerEmail, subject, body); err != nil {
				n.logger.Error("email send failed", "recipient", evt.CustomerEmail, "err", err)
				status = "failed"
			}
			n.record(ctx, appointmentID, evt, kind, "email", n.email.ProviderID(), evt.CustomerEmail, status)
		}
		if evt.CustomerPhone != "" {
			status := "sent"
			if err := n.sms.Send(ctx, evt.CustomerPhone, body); err != nil {
				n.logger.Error("sms send failed", "recipient", evt.CustomerPhone, "err", err)
				status = "failed"
			}
			n.record(ctx, appointmentID, evt, kind, "sms", n.sms.ProviderID(), evt.CustomerPhone, status)
		}

		n.logger.Info("appointment event processed", "kind", kind, "staff_id", evt.StaffID, "date", evt.Date)
		return nil
	}
}

func (n *notifier) record(ctx context.Context, appointmentID string, evt appointmentEvent, kind, channel, provider, recipient, status string) {
	err := n.repo.Insert(ctx, storage.Notification{
		AppointmentID: appointmentID,
		StaffID:       evt.StaffID,
		Kind:          kind,
		Channel:       channel,
		Provider:      provider,
		Recipient:     recipient,
		Payload: map[string]any{
			"service_name": evt.ServiceName,
			"date":         evt.Date,
			"start_time":   evt.StartTime,
		},
		Status: status,
	})
	if err != nil {
		n.logger.Error("failed to persist notification", "err", err)
	}
}

func composeMessage(kind string, evt appointmentEvent) (subject, body string) {
	name := evt.ServiceName
	if name == "" {
		name = "your appointment"
	}
	when := fmt.Sprintf("%s at %s", evt.Date, shortClock(evt.StartTime))
	switch kind {
	case "cancellation":
		subject = "Appointment cancelled"
		body = fmt.Sprintf("Hi %s, %s on %s has been cancelled.", evt.CustomerName, name, when)
		if evt.Reason != "" {
			body += " Reason: " + evt.Reason + "."
		}
	default:
		subject = "Appointment confirmed"
		body = fmt.Sprintf("Hi %s, %s is confirmed for %s.", evt.CustomerName, name, when)
	}
	return subject, body
}

func shortClock(clock string) string {
	if len(clock) >= 5 {
		return clock[:5]
	}
	return clock
}

func main() {
	service := config.String("SERVICE_NAME", "notify-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@bookline.local"),
		config.String("SMTP_USERNAME", ""),
		config.String("SMTP_PASSWORD", ""),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(
			config.String("SMS_WEBHOOK_URL", ""),
			config.String("SMS_WEBHOOK_TOKEN", ""),
		)
	default:
		smsSender = sms.NewNoopSender()
	}

	n := &notifier{
		logger: logger,
		repo:   notificationsRepo,
		email:  emailSender,
		sms:    smsSender,
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notify-service")
	for topic, kind := range map[string]string{
		topicBooked:    "confirmation",
		topicCancelled: "cancellation",
	} {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, n.handle(kind))
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notify")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
