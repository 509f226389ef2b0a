package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HerbHall/zabbixdash/internal/store"
)

// Compile-time interface guard.
var _ Storage = (*SQLiteStorage)(nil)

// SQLiteStorage keeps session fields in the session_kv table.
type SQLiteStorage struct {
	db *store.SQLiteStore
}

// NewSQLiteStorage applies the session migrations and returns the storage.
func NewSQLiteStorage(ctx context.Context, db *store.SQLiteStore) (*SQLiteStorage, error) {
	if err := db.Migrate(ctx, "session", migrations()); err != nil {
		return nil, fmt.Errorf("session migrations: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx,
		"SELECT value FROM session_kv WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStorage) Put(ctx context.Context, values map[string]string) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
				k, v,
			)
			if err != nil {
				return fmt.Errorf("put %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) Delete(ctx context.Context, keys ...string) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM session_kv WHERE key = ?", k); err != nil {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		return nil
	})
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create session_kv table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE session_kv (
						key        TEXT     PRIMARY KEY,
						value      TEXT     NOT NULL,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`)
				return err
			},
		},
	}
}
