package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	getSlotQuery = `SELECT slot, payload, updated_at FROM library_slots WHERE slot = $1`
	putSlotQuery = `
        INSERT INTO library_slots (slot, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (slot) DO UPDATE SET
            payload = EXCLUDED.payload,
            updated_at = EXCLUDED.updated_at`
)

// slotRow - строка таблицы library_slots.
type slotRow struct {
	Slot      string    `db:"slot"`
	Payload   []byte    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PostgresStore хранит слоты в таблице library_slots.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создает хранилище поверх пула соединений.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres создает пул соединений с повторными попытками и проверкой ping.
func ConnectPostgres(ctx context.Context, dsn string, maxConns int32, attempts int, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		cancel()
		if err == nil {
			log.Info("Connected to PostgreSQL", zap.Int("attempt", i))
			return pool, nil
		}
		lastErr = err
		log.Warn("PostgreSQL connection failed, retrying...", zap.Int("attempt", i), zap.Int("max_attempts", attempts), zap.Error(err))
		if i < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("unable to connect to postgres after %d attempts: %w", attempts, lastErr)
}

// Migrate применяет встроенные миграции схемы.
func Migrate(pool *pgxpool.Pool, log *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()
	m.LockTimeout = 30 * time.Second

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, _, _ := m.Version()
	log.Info("Database migrations applied", zap.Uint("version", version))
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, slot string) ([]byte, error) {
	var row slotRow
	if err := pgxscan.Get(ctx, p.pool, &row, getSlotQuery, slot); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("select slot: %w", err)
	}
	return row.Payload, nil
}

func (p *PostgresStore) Put(ctx context.Context, slot string, data []byte) error {
	if _, err := p.pool.Exec(ctx, putSlotQuery, slot, data); err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
