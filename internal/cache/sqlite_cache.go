package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"barledger/backend/internal/domain"
)

// SQLiteOfflineCache is the default fallback store: a single-file key-value
// table that survives restarts without any external service.
type SQLiteOfflineCache struct {
	db *sqlx.DB
}

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

func NewSQLiteOfflineCache(path string) (*SQLiteOfflineCache, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteOfflineCache{db: db}, nil
}

func (c *SQLiteOfflineCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteOfflineCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *SQLiteOfflineCache) put(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (c *SQLiteOfflineCache) LoadSales(ctx context.Context) ([]domain.Sale, bool, error) {
	raw, ok, err := c.get(ctx, salesKey)
	if err != nil || !ok {
		return nil, false, err
	}
	var sales []domain.Sale
	if err := json.Unmarshal(raw, &sales); err != nil {
		return nil, false, err
	}
	return sales, true, nil
}

func (c *SQLiteOfflineCache) SaveSales(ctx context.Context, sales []domain.Sale) error {
	payload, err := json.Marshal(sales)
	if err != nil {
		return err
	}
	return c.put(ctx, salesKey, payload)
}

func (c *SQLiteOfflineCache) LoadTargets(ctx context.Context) (domain.TargetConfig, bool, error) {
	raw, ok, err := c.get(ctx, targetsKey)
	if err != nil || !ok {
		return domain.TargetConfig{}, false, err
	}
	var targets domain.TargetConfig
	if err := json.Unmarshal(raw, &targets); err != nil {
		return domain.TargetConfig{}, false, err
	}
	return targets, true, nil
}

func (c *SQLiteOfflineCache) SaveTargets(ctx context.Context, targets domain.TargetConfig) error {
	payload, err := json.Marshal(targets)
	if err != nil {
		return err
	}
	return c.put(ctx, targetsKey, payload)
}
