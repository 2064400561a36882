package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS library_slots (
    slot       TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    updated_at INTEGER NOT NULL
)`

// SQLiteStore хранит слоты в файле SQLite (драйвер modernc, без cgo).
type SQLiteStore struct {
	db *sql.DB
}

type sqliteRow struct {
	Payload   string `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
}

// OpenSQLite открывает базу по пути path и создает схему.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// Одна запись за раз, SQLite не любит параллельных писателей
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, slot string) ([]byte, error) {
	var row sqliteRow
	err := sqlscan.Get(ctx, s.db, &row, `SELECT payload, updated_at FROM library_slots WHERE slot = ?`, slot)
	if sqlscan.NotFound(err) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select slot: %w", err)
	}
	return []byte(row.Payload), nil
}

func (s *SQLiteStore) Put(ctx context.Context, slot string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO library_slots (slot, payload, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		slot, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
