package main

import (
	"context"
	"fmt"
	"os"

	"mushroom-dashboard/internal/app"
	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/logging"
	"mushroom-dashboard/internal/seed"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("seed")

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	services := app.NewServices(stores, cfg, logger, nil)
	n, err := seed.Apply(ctx, stores.Customers, services.Sales, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied", zap.Int("sales", n))
}
