package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileStore keeps every value in one JSON document on disk. Each write
// rewrites the document through a temp file and a rename.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]json.RawMessage
	closed bool
}

// NewFileStore opens (or creates) the save file at path
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	fs := &FileStore{
		path:   path,
		values: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.values); err != nil {
			return nil, fmt.Errorf("failed to parse save file: %w", err)
		}
	}
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, key SaveKey) ([]byte, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return nil, false, ErrClosed
	}
	v, ok := fs.values[key.String()]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone([]byte(v)), true, nil
}

func (fs *FileStore) Put(_ context.Context, key SaveKey, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}

	prev, had := fs.values[key.String()]
	fs.values[key.String()] = slices.Clone(value)
	if err := fs.flush(); err != nil {
		if had {
			fs.values[key.String()] = prev
		} else {
			delete(fs.values, key.String())
		}
		return err
	}
	return nil
}

func (fs *FileStore) Delete(_ context.Context, key SaveKey) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}

	prev, had := fs.values[key.String()]
	if !had {
		return nil
	}
	delete(fs.values, key.String())
	if err := fs.flush(); err != nil {
		fs.values[key.String()] = prev
		return err
	}
	return nil
}

func (fs *FileStore) Keys(_ context.Context) ([]SaveKey, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.closed {
		return nil, ErrClosed
	}
	return parseKeys(fs.values)
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

// flush writes the whole document. Callers hold the write lock.
func (fs *FileStore) flush() error {
	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal save file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".save-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp save file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("failed to replace save file: %w", err)
	}
	return nil
}
