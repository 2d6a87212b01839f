package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/library-booking-backend/internal/app"
	"github.com/nekogravitycat/library-booking-backend/internal/config"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
	"github.com/nekogravitycat/library-booking-backend/internal/events"
	"github.com/nekogravitycat/library-booking-backend/internal/payment"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/logging"
)

const payoutRetryQueue = "library.payout-retry"

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.ApplySchema(ctx, pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := connectPublisher(cfg, logger)
	defer publisher.Close()

	container := app.NewContainer(app.Config{
		App:       cfg,
		Logger:    logger,
		DBPool:    pool,
		Redis:     rdb,
		Publisher: publisher,
	})

	// Payout retries need the broker; without it they run through the HTTP endpoint only.
	if cfg.Events.RabbitMQURL != "" {
		consumer, err := events.NewConsumer(cfg.Events.RabbitMQURL, cfg.Events.Exchange, payoutRetryQueue, []string{events.PayoutFailed})
		if err != nil {
			logger.Error("failed to start payout consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		worker := payment.NewPayoutWorker(container.PaymentService, consumer, logger, 30*time.Second)
		go func() {
			if err := worker.Run(ctx); err != nil {
				logger.Error("payout worker stopped", "error", err)
			}
		}()
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited gracefully")
}

// connectRedis returns nil when Redis is not configured or unreachable; rate limiting is then off.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, rate limiting disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func connectPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.Events.RabbitMQURL == "" {
		logger.Info("rabbitmq not configured, events are logged only")
		return events.NewLogPublisher(logger)
	}
	pub, err := events.NewAMQPPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
	if err != nil {
		logger.Warn("rabbitmq unreachable, events are logged only", "error", err)
		return events.NewLogPublisher(logger)
	}
	return pub
}
