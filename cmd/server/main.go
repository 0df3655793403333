package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shiinazuki/zero2prod/internal/api"
	"github.com/shiinazuki/zero2prod/internal/config"
	"github.com/shiinazuki/zero2prod/internal/db"
	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/email"
	"github.com/shiinazuki/zero2prod/internal/metrics"
	"github.com/shiinazuki/zero2prod/internal/ratelimiter"
	"github.com/shiinazuki/zero2prod/internal/repository"
	"github.com/shiinazuki/zero2prod/internal/service"
	"github.com/shiinazuki/zero2prod/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.Database.URL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sender, err := domain.ParseSubscriberEmail(cfg.Email.SenderAddress)
	if err != nil {
		logger.Fatal("invalid sender address", zap.Error(err))
	}
	mailClient := email.NewClient(cfg.Email.BaseURL, sender, cfg.Email.AuthorizationToken, cfg.Email.SendTimeout)

	publishRepo := repository.NewPgPublishRepository(pool)
	queueRepo := repository.NewPgDeliveryQueueRepository(pool)
	subscriberRepo := repository.NewPgSubscriberRepository(pool)

	publishSvc := service.NewPublishService(publishRepo, logger).
		WithMetricHooks(m.PublishHooks())
	subscriptionSvc := service.NewSubscriptionService(subscriberRepo, mailClient, cfg.Server.BaseURL, logger)

	// ---- delivery workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	limiter := ratelimiter.New(cfg.Worker.SendsPerSec)
	onSent, onRetried, onDiscarded := m.WorkerHooks()
	pool2 := worker.NewPool(worker.Options{
		Workers:      cfg.Worker.Count,
		PollInterval: cfg.Worker.PollInterval,
		SendTimeout:  cfg.Email.SendTimeout,
		RetryBackoff: cfg.Worker.RetryBackoff,
	}, queueRepo, mailClient, limiter, logger, worker.MetricHooks{
		OnSent:      onSent,
		OnRetried:   onRetried,
		OnDiscarded: onDiscarded,
	})
	pool2.Start(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(publishSvc, subscriptionSvc, pool, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal all workers to stop claiming new delivery tasks.
	cancelWorkers()

	// 3. Wait for in-flight sends to resolve their claims.
	pool2.Wait()

	logger.Info("server stopped cleanly")
}
