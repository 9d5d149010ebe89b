package main

import (
	"context"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/salonease/libs/config"
	"github.com/md-rashed-zaman/salonease/libs/db"
	"github.com/md-rashed-zaman/salonease/libs/httpx"
	"github.com/md-rashed-zaman/salonease/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonease/libs/otel"
	"github.com/md-rashed-zaman/salonease/libs/runtime"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/booking"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/locks"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8086")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.PositiveInt("DB_MAX_CONNS", 10)),
		MinConns: int32(config.PositiveInt("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	store := storage.NewStore(pool, outboxRepo)
	step := time.Duration(config.PositiveInt("SLOT_STEP_MINUTES", 15)) * time.Minute
	engine := availability.NewEngine(step)
	if engine.Step() != step {
		logger.Warn("SLOT_STEP_MINUTES does not divide a day evenly; using default", "requested", step.String(), "step", engine.Step().String())
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: strings.TrimSpace(brokers) == ""},
	}

	limitPerMinute := config.PositiveInt("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	serviceOpts := []booking.Option{}
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.PositiveInt("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		locker := locks.NewRedisLocker(rdb,
			config.Duration("BOOKING_LOCK_TTL", 5*time.Second),
			config.Duration("BOOKING_LOCK_WAIT", 2*time.Second),
		)
		serviceOpts = append(serviceOpts, booking.WithLocker(locker))

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:availability"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis enabled (booking locks, rate limiting)", "redis_addr", addr, "per_minute", limitPerMinute)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory); booking writes rely on database locks", "per_minute", limitPerMinute)
	}

	calendar := booking.NewService(booking.PostgresStore(store), engine, logger, serviceOpts...)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.PositiveInt("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	if topic := strings.TrimSpace(config.String("KAFKA_STAFF_TOPIC", consumer.TopicStaffUpserted)); topic != "" && len(kafkax.SplitBrokers(brokers)) > 0 {
		staffConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   topic,
		}, consumer.StaffHandler(store))
		go staffConsumer.Run(ctx)
	} else {
		logger.Warn("staff directory consumer disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.Mount(mux,
		handlers.NewSlotHandler(store, engine, logger, time.Now),
		handlers.NewBookingHandler(calendar, store, logger),
		handlers.NewAvailabilityHandler(calendar, store, logger),
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,Idempotency-Key"),
			ExposedHeaders: []string{"X-Request-Id", "Idempotent-Replayed", "Retry-After"},
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.PositiveInt("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "slot_step", engine.Step().String())
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
