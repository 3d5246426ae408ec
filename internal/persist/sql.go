package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// SQLBackend stores envelope values in a single Postgres key/value
// table, for deployments without Redis.
type SQLBackend struct {
	db       *sqlx.DB
	maxBytes int
}

// NewSQLBackend connects to Postgres and ensures the storage table.
func NewSQLBackend(databaseURL string, maxBytes int) (*SQLBackend, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	schema := `
		CREATE TABLE IF NOT EXISTS app_storage (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure storage table: %w", err)
	}

	return &SQLBackend{db: db, maxBytes: maxBytes}, nil
}

// GetItem retrieves a stored value.
func (b *SQLBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.GetContext(ctx, &value, "SELECT value FROM app_storage WHERE key = $1", key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem upserts a value, enforcing the size budget.
func (b *SQLBackend) SetItem(ctx context.Context, key, value string) error {
	if b.maxBytes > 0 && len(value) > b.maxBytes {
		return ErrQuotaExceeded
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO app_storage (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes a stored value.
func (b *SQLBackend) RemoveItem(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM app_storage WHERE key = $1", key)
	return err
}

// Close closes the database connection.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
