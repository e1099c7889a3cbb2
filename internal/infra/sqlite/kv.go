package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/agroloop/agroloop/internal/domain"
)

var _ domain.KVStore = (*DB)(nil)

// ─── Key-Value Operations ───────────────────────────────────────────────────

// Get returns the value stored under key, or domain.ErrKeyNotFound.
func (db *DB) Get(key string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value under key.
func (db *DB) Set(key string, value []byte) error {
	_, err := db.db.Exec(upsertKV, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (db *DB) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	writes := make([]domain.KVWrite, len(keys))
	for i, k := range keys {
		writes[i] = domain.KVWrite{Key: k, Delete: true}
	}
	return db.Apply(writes)
}

// Keys lists every stored key in lexical order.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Apply runs all writes inside one transaction.
func (db *DB) Apply(writes []domain.KVWrite) error {
	if len(writes) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, w := range writes {
		if w.Key == "" {
			return fmt.Errorf("apply: empty key")
		}
		if w.Delete {
			_, err = tx.Exec(`DELETE FROM kv WHERE key = ?`, w.Key)
		} else {
			_, err = tx.Exec(upsertKV, w.Key, w.Value)
		}
		if err != nil {
			return fmt.Errorf("apply %s: %w", w.Key, err)
		}
	}
	return tx.Commit()
}

const upsertKV = `
	INSERT INTO kv (key, value, updated_at)
	VALUES (?, ?, datetime('now'))
	ON CONFLICT(key) DO UPDATE SET
		value      = excluded.value,
		updated_at = datetime('now')`
