package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"mushroom-dashboard/internal/config"
	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/logging"
	"mushroom-dashboard/internal/migrate"

	"go.uber.org/zap"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	version := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("migrate")
	if cfg.UsesMemory() {
		logger.Fatal("DB_DSN=memory has no schema to migrate")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	switch {
	case *version:
		v, dirty, ok, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal("read schema version", zap.Error(err))
		}
		if !ok {
			logger.Info("no migrations applied")
			return
		}
		logger.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	case *down > 0:
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			logger.Fatal("roll back migrations", zap.Error(err))
		}
		logger.Info("migrations rolled back", zap.Int("steps", *down))
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	}
}
