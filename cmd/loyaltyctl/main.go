package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mushroom-dashboard/internal/app"
	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/logging"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "loyaltyctl:", err)
		os.Exit(1)
	}
}

// env is everything a subcommand needs.
type env struct {
	stores   *app.Stores
	services app.Services
	logger   *zap.Logger
}

func (e *env) Close() {
	e.stores.Close()
	_ = e.logger.Sync()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.UsesMemory() {
		return nil, fmt.Errorf("loyaltyctl needs a database; DB_DSN=memory keeps nothing between runs")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger = logger.Named("loyaltyctl")
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{stores: stores, services: app.NewServices(stores, cfg, logger, nil), logger: logger}, nil
}
