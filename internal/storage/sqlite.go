package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lottoledger/internal/core"
	"lottoledger/internal/record"
)

const upsertValue = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteRepository stores the collection in the kv_store table.
type SQLiteRepository struct {
	db    *sql.DB
	key   string
	codec record.Codec
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations. An empty key selects DefaultKey and a nil
// codec selects JSON.
func NewSQLiteRepository(dbPath, key string, codec record.Codec) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the pool's connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if key == "" {
		key = DefaultKey
	}
	if codec == nil {
		codec = record.JSON{}
	}
	return &SQLiteRepository{db: db, key: key, codec: codec}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`, r.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key %q: %w", r.key, err)
	}
	if len(value) == 0 {
		return []core.Transaction{}, nil
	}

	txs, err := r.codec.DecodeAll(value)
	if err != nil {
		return nil, corrupt(r.key, err)
	}
	return txs, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction) error {
	value, err := r.codec.EncodeAll(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}

	if err := r.put(ctx, value); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite",
		"key", r.key,
		"count", len(txs),
		"bytes", len(value),
		"codec", r.codec.Name())
	return nil
}

func (r *SQLiteRepository) put(ctx context.Context, value []byte) error {
	_, err := r.db.ExecContext(ctx, upsertValue, r.key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write key %q: %w", r.key, err)
	}
	return nil
}
