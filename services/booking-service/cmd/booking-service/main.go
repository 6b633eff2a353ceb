package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bookline/libs/config"
	"bookline/libs/db"
	"bookline/libs/httpx"
	"bookline/libs/kafkax"
	otelx "bookline/libs/otel"
	"bookline/libs/redisx"
	"bookline/libs/runtime"
	"bookline/services/booking-service/internal/availability"
	"bookline/services/booking-service/internal/changefeed"
	"bookline/services/booking-service/internal/handlers"
	"bookline/services/booking-service/internal/outbox"
	"bookline/services/booking-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	redisClient, err := redisx.Open(ctx, redisx.Config{
		Addr:     config.String("REDIS_ADDR", ""),
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       0,
	})
	if err != nil {
		logger.Error("redis connection failed; continuing without it", "err", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)
	scheduleRepo := storage.NewScheduleRepository(pool)
	feed := changefeed.NewPublisher(redisClient, logger)
	engine := availability.New(logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(bookingRepo, scheduleRepo, engine, feed, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)
	serviceHandler := handlers.NewServiceHandler(serviceStore{
		ScheduleRepository: scheduleRepo,
		BookingRepository:  bookingRepo,
	}, engine, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if redisClient != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(redisClient)})
	}
	mux := runtime.NewBaseMux(readyChecks...)

	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/day-statuses", bookingHandler.DayStatuses)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Book)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/services", serviceHandler.List)
	mux.HandleFunc("/api/v1/services/conflict-check", serviceHandler.ConflictCheck)
	mux.HandleFunc("/api/v1/services/{id}/timing", serviceHandler.UpdateTiming)
	mux.HandleFunc("/api/v1/staff/{id}/availability", scheduleHandler.Availability)
	mux.HandleFunc("/api/v1/staff/{id}/blocked-dates", scheduleHandler.BlockedDates)
	mux.HandleFunc("/api/v1/staff/{id}/blocked-dates/{blockID}", scheduleHandler.DeleteBlockedDate)
	mux.HandleFunc("/api/v1/time-options", serviceHandler.TimeOptions)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(15 * time.Second),
	}
	if config.Bool("RATE_LIMIT_ENABLED", true) {
		rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
		if redisClient != nil {
			limiter := httpx.NewRedisRateLimiter(redisClient, rateLimit, time.Minute, "booking")
			middlewares = append(middlewares, limiter.Middleware(logger, true))
		} else {
			// Single-instance fallback; the Redis window is shared across replicas.
			middlewares = append(middlewares, httpx.NewRateLimiter(rateLimit, time.Minute).Middleware())
		}
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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

// serviceStore joins the two repositories behind the service handler, which
// needs the catalog and the appointment timings together.
type serviceStore struct {
	*storage.ScheduleRepository
	*storage.BookingRepository
}
