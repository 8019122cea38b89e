package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clefside/auditiond/libs/config"
	"github.com/clefside/auditiond/libs/db"
	"github.com/clefside/auditiond/libs/httpx"
	"github.com/clefside/auditiond/libs/kafkax"
	otelx "github.com/clefside/auditiond/libs/otel"
	"github.com/clefside/auditiond/libs/runtime"
	"github.com/clefside/auditiond/services/audition-service/internal/booking"
	"github.com/clefside/auditiond/services/audition-service/internal/civiltime"
	"github.com/clefside/auditiond/services/audition-service/internal/handlers"
	"github.com/clefside/auditiond/services/audition-service/internal/outbox"
	"github.com/clefside/auditiond/services/audition-service/internal/registry"
	"github.com/clefside/auditiond/services/audition-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "audition-service")
	port, err := config.Port("PORT", "8084")
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

	// The reference timezone is a startup invariant. A bad name here is a
	// deployment error, so fail fast instead of serving wrong schedules.
	zone, err := civiltime.LoadZone(config.String("REFERENCE_TIMEZONE", "America/New_York"))
	if err != nil {
		logger.Error("reference timezone invalid", "err", err)
		panic(err)
	}
	logger.Info("reference timezone loaded", "zone", zone.Name())

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

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
	}

	windowRepo := registry.NewRepository(pool)
	windowCache := registry.NewCache(windowRepo, rdb, config.Duration("WINDOW_CACHE_TTL", 30*time.Second), logger)

	bookingRepo := storage.NewBookingRepository(pool)
	store := storage.NewStore(bookingRepo)

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	var notifier booking.Notifier = booking.NopNotifier{}
	if strings.TrimSpace(config.String("KAFKA_BROKERS", "")) != "" {
		notifier = outbox.NewNotifier(outboxRepo, logger)
	}

	svc := booking.NewService(store, windowCache, zone, notifier, logger)
	bookingHandler := handlers.NewBookingHandler(svc, bookingRepo, zone, logger)
	adminHandler := handlers.NewAdminHandler(windowRepo, windowCache, zone, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/audition-dates", bookingHandler.Dates)
	mux.HandleFunc("/api/v1/public/audition-slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/reservations", bookingHandler.Reserve)
	mux.HandleFunc("/api/v1/reservations", bookingHandler.List)
	mux.HandleFunc("/api/v1/reservations/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/admin/windows", adminHandler.Windows)
	mux.HandleFunc("/api/v1/admin/windows/deactivate", adminHandler.Deactivate)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "auditions"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "audition")
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

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
