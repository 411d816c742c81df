package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lunarphp/opayo/internal/bootstrap"
	"github.com/lunarphp/opayo/internal/config"
	cronpkg "github.com/lunarphp/opayo/internal/cron"
	"github.com/lunarphp/opayo/internal/middleware"
	"github.com/lunarphp/opayo/internal/opayo"
	"github.com/lunarphp/opayo/internal/pkg/telegram"
	"github.com/lunarphp/opayo/internal/repository"
	"github.com/lunarphp/opayo/internal/router"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// --- Opayo Gateway Client ---
	gateway := opayo.New(opayo.Config{
		Env:      cfg.Opayo.Env,
		Vendor:   cfg.Opayo.Vendor,
		Key:      cfg.Opayo.Key,
		Password: cfg.Opayo.Password,
	}, logger)

	// --- Per-Order Lock (Redis with in-memory fallback) ---
	locker, lockErr := middleware.NewOrderLocker(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		2*time.Minute,
	)
	if lockErr != nil {
		logger.Warn("Redis unavailable for order locks, using in-memory fallback", zap.Error(lockErr))
	}

	// --- Ops Notifier ---
	notifier := telegram.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	// --- Routes ---
	router.Setup(e, db, gateway, notifier, locker, cfg, logger)

	// --- Cron Scheduler ---
	cronRepos := &cronpkg.CronRepos{
		Order:           repository.NewOrderRepository(db),
		Transaction:     repository.NewTransactionRepository(db),
		ReusablePayment: repository.NewReusablePaymentRepository(db),
	}
	scheduler := cronpkg.New(cronRepos, gateway, notifier, logger)
	scheduler.Start()

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting Opayo payment server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
