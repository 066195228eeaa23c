package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mushroom-dashboard/internal/app"
	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/httpserver"
	"mushroom-dashboard/internal/logging"
	"mushroom-dashboard/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	services := app.NewServices(stores, cfg, logger, m)
	notifications, err := app.NewNotifications(ctx, cfg, stores.Logs, logger, m)
	if err != nil {
		return fmt.Errorf("init notifications: %w", err)
	}
	defer notifications.Close()

	reminder := app.NewReminder(cfg, stores, notifications, logger, m)
	if cfg.RemindersEnabled {
		reminder.Start(ctx)
		defer reminder.Stop()
	}

	deps := httpserver.Deps{
		Ledger:         services.Ledger,
		Sales:          services.Sales,
		Customers:      stores.Customers,
		Logs:           stores.Logs,
		Reminders:      reminder,
		Notifier:       notifications.Dispatcher,
		Templates:      notifications.Templates,
		Audience:       notifications.Audience,
		Gatherer:       reg,
		AdminToken:     cfg.AdminToken,
		AdminTokenHash: cfg.AdminTokenHash,
		CORSOrigins:    cfg.CORSOrigins,
	}
	var pinger httpserver.Pinger
	if stores.Pool != nil {
		pinger = stores.Pool
	}
	srv, err := httpserver.New(cfg.HTTPAddr, logger, pinger, deps)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	return nil
}
