package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomreserve/internal/api"
	"roomreserve/internal/config"
	"roomreserve/internal/database"
	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/logging"
	"roomreserve/internal/metrics"
	"roomreserve/internal/notify"
	"roomreserve/internal/postgres"
	"roomreserve/internal/queue"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
	"roomreserve/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type reservationStore interface {
	domain.ReservationStore
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeReady, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	readiness := map[string]api.ReadinessCheck{"database": storeReady}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
		readiness["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}

	bus := events.NewEventBus()
	bus.OnError(func(e *events.Event, err error) {
		logger.Warn().Err(err).Str("event_type", e.Type).Msg("event handler failed")
	})

	dispatcher, closeSinks := initDispatcher(cfg, redisClient, &logger)
	defer closeSinks()
	bus.SubscribeAll(dispatcher.Handle)

	svc := service.NewReservationService(
		store,
		initLocker(cfg, redisClient, &logger),
		bus,
		cfg.Reservations.DefaultPageSize,
		cfg.Reservations.MaxPageSize,
		&logger,
	)

	router := api.NewRouter(api.Dependencies{
		Service:   svc,
		API:       cfg.API,
		Exports:   cfg.Exports,
		Readiness: readiness,
		Logger:    &logger,
	})
	httpServer := api.NewHTTPServer(cfg.API.HTTP, router, &logger)

	startMetrics(ctx, cfg, &logger)
	go dispatcher.Start(ctx)

	err = startServer(ctx, httpServer, &logger)
	stop()

	// let queued events reach the broker before connections close
	select {
	case <-dispatcher.Done():
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("event dispatcher did not stop in time")
	}
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (reservationStore, api.ReadinessCheck, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg := cfg.Database.Postgres
		if err := postgres.Migrate(pg.MigrationsPath, pg.DSN()); err != nil {
			logger.Error().Err(err).Str("migrations", pg.MigrationsPath).Msg("apply migrations")
			return nil, nil, err
		}
		store, err := postgres.Open(ctx, pg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("init postgres")
			return nil, nil, err
		}
		return store, store.Ping, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		go database.NewSnapshotter(db, cfg.Database.Snapshots, logging.Component(logger, "snapshots")).Run(ctx)
		return db, db.PingContext, nil
	}
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initLocker prefers the Redis lock so several instances can share a store,
// falling back to an in-process lock when Redis is unreachable.
func initLocker(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.RoomLocker {
	memory := repository.NewMemoryRoomLocker()
	if redisClient == nil {
		logger.Info().Msg("using in-process room locks")
		return memory
	}
	return repository.NewFailoverRoomLocker(
		repository.NewRedisRoomLocker(redisClient, cfg.Redis.LockTTL),
		memory,
		logger,
	)
}

func initDispatcher(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) (*worker.Dispatcher, func()) {
	var sinks []worker.Sink
	var closers []func() error

	if cfg.RabbitMQ.Enabled {
		publisher := queue.NewPublisher(cfg.RabbitMQ, logger)
		sinks = append(sinks, publisher)
		closers = append(closers, publisher.Close)
		logger.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("rabbitmq publishing enabled")
	}

	if cfg.Telegram.Enabled {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without manager notifications")
		} else {
			sinks = append(sinks, notify.NewManagerNotifier(bot, cfg.Telegram.ManagerChatIDs))
			logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
		}
	}

	retry := worker.RetryPolicy{MaxRetries: cfg.RabbitMQ.MaxRetries}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn().Err(err).Msg("close event sink")
			}
		}
	}
	return worker.NewDispatcher(retry, redisClient, logger, sinks...), closeAll
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("http_addr", httpServer.Addr()).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
