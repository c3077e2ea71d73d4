package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/car-rental-engine/api"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway/card"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/gateway/wallet"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/handler"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/middleware"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/notify"
	"github.com/DanielPopoola/car-rental-engine/internal/adapters/postgres"
	"github.com/DanielPopoola/car-rental-engine/internal/config"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/DanielPopoola/car-rental-engine/internal/core/service"
	"github.com/DanielPopoola/car-rental-engine/internal/logging"
	"github.com/DanielPopoola/car-rental-engine/internal/metrics"
	"github.com/DanielPopoola/car-rental-engine/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logger, cfg.Primary.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	logger.Info().
		Str("port", cfg.Server.Port).
		Str("log_level", cfg.Logger.Level).
		Msg("starting booking engine")

	metrics.Register()

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := postgres.NewStore(db)

	cardClient := card.NewClient(cfg.CardGateway, cfg.Retry)
	walletClient := wallet.NewClient(cfg.WalletGateway, cfg.Retry)

	redisClient := newRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var mailer ports.Mailer = notify.NewLogMailer(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaMailer := notify.NewKafkaMailer(cfg.Kafka.Brokers, cfg.Kafka.EmailTopic, logger)
		defer kafkaMailer.Close()
		mailer = kafkaMailer
	}

	var pushSender ports.PushSender = notify.NewLogPushSender(logger)
	if cfg.Notification.PushURL != "" {
		pushSender = notify.NewHTTPPushSender(cfg.Notification.PushURL, cfg.CardGateway.Timeout)
	}

	pushQueue := worker.NewPushQueue(pushSender, redisClient, worker.PushQueueConfig{
		Capacity:  cfg.Notification.QueueSize,
		Workers:   cfg.Notification.Workers,
		BatchSize: cfg.Notification.BatchSize,
		Retry: worker.RetryPolicy{
			MaxRetries:    cfg.Notification.MaxAttempts,
			InitialDelay:  cfg.Retry.BaseDelay,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		},
	}, logger)

	dispatcher := service.NewDispatcher(store, mailer, pushQueue, cfg.Notification, logger)

	checkoutService := service.NewCheckoutService(store, cardClient, dispatcher, cfg.Booking, logger)
	paymentService := service.NewPaymentService(store, cardClient, walletClient, cfg.Booking.Currency)
	reconciliationService := service.NewReconciliationService(store, cardClient, walletClient, dispatcher, logger)
	transitionService := service.NewTransitionService(store, dispatcher, logger)
	notificationService := service.NewNotificationQueryService(store.Notifications())

	h := handler.NewHandler(
		checkoutService,
		paymentService,
		reconciliationService,
		transitionService,
		notificationService,
	)

	validateRequests, err := middleware.OpenAPIValidator(api.Spec)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load api document")
	}

	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /docs/openapi.json", api.DocsHandler())
	mux.Handle("/", middleware.Chain(apiMux,
		middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware,
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Logging(logger),
		validateRequests,
	))

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      middleware.Recovery(logger)(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewTTLSweeper(store, cfg.Booking.SweepInterval, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go pushQueue.Start(workerCtx)
	go sweeper.Start(workerCtx)
	go logPushFailures(workerCtx, pushQueue, logger)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// newRedis returns nil when no address is configured or the server does not
// answer, in which case the push queue stays in memory.
func newRedis(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, push queue runs in memory")
		_ = client.Close()
		return nil
	}
	return client
}

func logPushFailures(ctx context.Context, q *worker.PushQueue, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-q.Failures():
			logger.Warn().
				Err(f.Err).
				Str("to", f.Message.To).
				Bool("dropped", f.Dropped).
				Msg("push message not delivered")
		}
	}
}
