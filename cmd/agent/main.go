package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frontdesk/internal/api"
	"frontdesk/internal/backend"
	"frontdesk/internal/config"
	"frontdesk/internal/connectivity"
	"frontdesk/internal/events"
	"frontdesk/internal/feed"
	"frontdesk/internal/logging"
	"frontdesk/internal/metrics"
	"frontdesk/internal/notify"
	"frontdesk/internal/outbox"
	"frontdesk/internal/service"
	"frontdesk/internal/snapshot"
	"frontdesk/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

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

	store, sqliteStore, err := initStorage(cfg, &logger)
	if err != nil {
		return err
	}
	defer sqliteStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.BackendTimeout())

	feedClient := feed.NewClient(client, bus, cfg.FeedInterval(), &logger)
	monitor := connectivity.NewMonitor(feedClient, bus, cfg.PollInterval(), &logger)

	queue := outbox.NewQueue(store, client, monitor, bus, &logger)
	if err := queue.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("load outbox queue")
		return err
	}
	drainer := outbox.NewDrainer(queue, cfg.DrainInterval())

	cache := snapshot.NewCache(store, monitor, bus, &logger)
	desk := service.NewDeskService(client, queue, cache, feedClient, monitor, bus, &logger)

	initTelegram(cfg, bus, &logger)

	httpServer := api.NewHTTPServer(cfg.API, cfg.Exports.Path, desk, monitor, &logger)

	startMetrics(ctx, cfg, &logger)

	go feedClient.Start(ctx)
	go monitor.Start(ctx)
	go drainer.Start(ctx)

	return serveHTTP(ctx, httpServer, &logger)
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
	logger := baseLogger.With().Str("component", "agent-main").Logger()

	return cfg, logger, closer, nil
}

// initStorage opens the durable sqlite store and, when Redis is configured
// and reachable, layers it as the primary with sqlite as the fallback.
func initStorage(cfg *config.Config, logger *zerolog.Logger) (storage.Store, *storage.SQLiteStore, error) {
	sqliteStore, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Storage.Path).Msg("init sqlite store")
		return nil, nil, err
	}

	redisStore := initRedis(cfg, logger)
	if redisStore == nil {
		return sqliteStore, sqliteStore, nil
	}

	return storage.NewFailoverStore(redisStore, sqliteStore, logger), sqliteStore, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *storage.RedisStore {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return storage.NewRedisStore(redisClient, cfg.Redis.KeyPrefix)
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}

	notifier := notify.NewTelegramNotifier(botAPI, cfg.Telegram.ChatID, logger)
	notifier.Attach(bus)
	logger.Info().Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serveHTTP(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("agent stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
