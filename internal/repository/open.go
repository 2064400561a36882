package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// Open создает репозиторий библиотеки для драйвера из конфигурации.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Library, error) {
	log = log.Named("repository")
	var (
		store SlotStore
		err   error
	)
	switch cfg.Storage.Driver {
	case "memory":
		store = NewMemoryStore()
	case "file":
		store, err = NewFileStore(cfg.Storage.FileDir)
	case "sqlite":
		store, err = OpenSQLite(cfg.Storage.SQLitePath)
	case "redis":
		client, dialErr := DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if dialErr != nil {
			return nil, dialErr
		}
		store = NewRedisStore(client)
	case "postgres":
		log.Info("Connecting to PostgreSQL", zap.String("dsn", cfg.Postgres.MaskedDSN()))
		pool, connErr := ConnectPostgres(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxConns, 10, log)
		if connErr != nil {
			return nil, connErr
		}
		if err := Migrate(pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		store = NewPostgresStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage driver: '%s'", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Library storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("slot", cfg.Storage.Slot))
	return NewLibrary(store, cfg.Storage.Slot, cfg.Storage.Driver, log), nil
}
