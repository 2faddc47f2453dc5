package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/fazenda/internal/storage"
)

// ErrInvalidValue is returned when a value is not a JSON document.
var ErrInvalidValue = errors.New("value must be valid JSON")

// KV is a storage.KV over the save_entries table, scoped to one slot.
type KV struct {
	db   *pgxpool.Pool
	slot string
}

var _ storage.KV = (*KV)(nil)

// NewKV returns a KV bound to slot.
//
// Precondition: db must be a valid, open connection pool; slot must be non-empty.
func NewKV(db *pgxpool.Pool, slot string) *KV {
	return &KV{db: db, slot: slot}
}

// Get returns the value stored under key or storage.ErrNotFound.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.QueryRow(ctx, `
		SELECT value::text FROM save_entries WHERE slot = $1 AND key = $2`,
		k.slot, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying save entry %q: %w", key, err)
	}
	return value, nil
}

// Put upserts value under key.
//
// Precondition: value must be a JSON document.
// Postcondition: Returns ErrInvalidValue without touching the table for non-JSON input.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("saving %q: %w", key, ErrInvalidValue)
	}
	_, err := k.db.Exec(ctx, `
		INSERT INTO save_entries (slot, key, value)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (slot, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()`,
		k.slot, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("saving save entry %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.Exec(ctx, `
		DELETE FROM save_entries WHERE slot = $1 AND key = $2`,
		k.slot, key,
	); err != nil {
		return fmt.Errorf("deleting save entry %q: %w", key, err)
	}
	return nil
}
