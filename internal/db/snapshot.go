package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/flourish/internal/errors"
)

// Storage keys. These match the keys the browser build wrote to local storage,
// so exported legacy data can be imported unchanged.
const (
	GardenKey    = "gardenPlants"
	SchedulesKey = "plantCareSchedules"
)

// SnapshotVersion is the envelope version written by Save.
// Version 0 is the legacy bare JSON array.
const SnapshotVersion = 1

// Store is the persistence adapter used by the garden and care collections.
// Implementations hold one opaque value per key.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
}

// KV is a Store backed by the snapshots table.
type KV struct {
	db *sql.DB
}

// NewKV wraps an initialized database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the value stored under key.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := kv.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return data, true, nil
}

// Put replaces the value stored under key.
func (kv *KV) Put(ctx context.Context, key string, data []byte) error {
	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, data, time.Now().Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// envelope is the versioned on-disk shape of a collection.
type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// LoadItems reads the collection stored under key.
// A missing key yields an empty collection. A bare JSON array is accepted as
// version 0. The returned version lets callers decide whether to migrate.
// A snapshot newer than SnapshotVersion yields a CONFIGURATION error; other
// decode failures are plain errors.
func LoadItems[T any](ctx context.Context, s Store, key string) ([]T, int, error) {
	data, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return []T{}, SnapshotVersion, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, 0, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, fmt.Errorf("decode legacy %s: %w", key, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, 0, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", key, err)
	}
	if env.Version > SnapshotVersion {
		return nil, env.Version, errors.NewSnapshotTooNew(key, env.Version, SnapshotVersion)
	}
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, env.Version, nil
}

// SaveItems writes the whole collection under key in the current envelope.
func SaveItems[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(envelope[T]{Version: SnapshotVersion, Items: items})
	if err != nil {
		return errors.NewInternal(err)
	}
	return s.Put(ctx, key, data)
}
