package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suar-net/suar-probe/internal/config"
	"github.com/suar-net/suar-probe/internal/repository"
	"github.com/suar-net/suar-probe/internal/repository/memory"
	"github.com/suar-net/suar-probe/internal/repository/postgres"
	"github.com/suar-net/suar-probe/internal/repository/sqlite"
)

// Open selects and opens the record store named by cfg.Type.
func Open(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (repository.IRepository, error) {
	switch cfg.Type {
	case config.DBTypePostgres:
		pool, err := ConnectPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		store, err := postgres.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("record store ready", slog.String("type", cfg.Type))
		return store, nil

	case config.DBTypeSQLite:
		store, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("record store ready", slog.String("type", cfg.Type), slog.String("dsn", cfg.DSN))
		return store, nil

	case config.DBTypeMemory:
		store, err := memory.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.DSN == "" {
			logger.Warn("record store is volatile; data is lost on exit", slog.String("type", cfg.Type))
		} else {
			logger.Info("record store ready", slog.String("type", cfg.Type), slog.String("file", cfg.DSN))
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
}
