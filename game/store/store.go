package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/connect-x/game/engine"
)

var (
	ErrInvalidKey = errors.New("invalid save key")
	ErrClosed     = errors.New("store closed")
)

// Store is a key/value save file. Values are JSON documents.
type Store interface {
	// Get returns the raw value and whether the key exists
	Get(ctx context.Context, key SaveKey) ([]byte, bool, error)

	// Put writes value under key, replacing any previous value
	Put(ctx context.Context, key SaveKey, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key SaveKey) error

	// Keys lists every stored key ordered by its string form
	Keys(ctx context.Context) ([]SaveKey, error)

	Close() error
}

// Load decodes the value under key, falling back to Default(key) when the
// key was never written.
func Load[T any](ctx context.Context, s Store, key SaveKey) (T, error) {
	var v T
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		if d, ok := Default(key).(T); ok {
			return d, nil
		}
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Save encodes v as JSON and writes it under key
func Save[T any](ctx context.Context, s Store, key SaveKey, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadReplay reads a replay slot, migrating older record shapes. A slot
// that was never written reads as EmptyReplay.
func LoadReplay(ctx context.Context, s Store, slot int) (*engine.Replay, error) {
	key := Replay(slot)
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return EmptyReplay(), nil
	}
	r, err := DecodeReplay(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return r, nil
}

// SaveReplay writes r into slot using the current schema
func SaveReplay(ctx context.Context, s Store, slot int, r *engine.Replay) error {
	r.Version = engine.ReplayVersion
	return Save(ctx, s, Replay(slot), r)
}

// LoadCustomMode reads the user-defined mode, or the Custom template if none was saved
func LoadCustomMode(ctx context.Context, s Store) (engine.GameMode, error) {
	data, ok, err := s.Get(ctx, CustomMode())
	if err != nil {
		return engine.GameMode{}, fmt.Errorf("load %s: %w", CustomMode(), err)
	}
	if !ok {
		return engine.CustomTemplate(), nil
	}
	m, err := DecodeMode(data)
	if err != nil {
		return engine.GameMode{}, fmt.Errorf("decode %s: %w", CustomMode(), err)
	}
	return m, nil
}

// SaveCustomMode writes the user-defined mode
func SaveCustomMode(ctx context.Context, s Store, m engine.GameMode) error {
	return Save(ctx, s, CustomMode(), m)
}
