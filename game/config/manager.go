package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/service"
	"github.com/wricardo/connect-x/game/store"
)

// DefaultModeID is the mode new sessions use unless told otherwise
const DefaultModeID = "connect4"

var (
	ErrModeNotFound = service.ErrModeNotFound
	ErrInvalidMode  = errors.New("invalid mode")
)

// Manager handles mode loading and caching. Built-in modes are always
// present; extra modes are read from <modesDir>/<id>.json.
type Manager struct {
	modesDir    string
	defaultMode *engine.GameMode
	modes       map[string]*engine.GameMode
	mu          sync.RWMutex
}

// NewManager creates a new mode manager. An empty modesDir disables mode files.
func NewManager(modesDir string) (*Manager, error) {
	if modesDir != "" {
		if _, err := os.Stat(modesDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("modes directory does not exist: %s", modesDir)
		}
	}

	m := &Manager{
		modesDir: modesDir,
		modes:    make(map[string]*engine.GameMode),
	}

	if err := m.loadDefaultMode(); err != nil {
		return nil, fmt.Errorf("failed to load default mode: %w", err)
	}

	return m, nil
}

// LoadMode loads a mode by ID
func (m *Manager) LoadMode(id string) (*engine.GameMode, error) {
	id = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(id)), ".json")

	m.mu.RLock()
	if mode, exists := m.modes[id]; exists {
		m.mu.RUnlock()
		return mode, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if mode, exists := m.modes[id]; exists {
		return mode, nil
	}

	if builtin, ok := engine.BuiltinMode(id); ok {
		m.modes[id] = &builtin
		return &builtin, nil
	}

	if m.modesDir == "" {
		return nil, fmt.Errorf("%w: %s", ErrModeNotFound, id)
	}

	data, err := os.ReadFile(filepath.Join(m.modesDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModeNotFound, id)
		}
		return nil, fmt.Errorf("failed to read mode file: %w", err)
	}

	mode, err := store.DecodeMode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	if mode.ID != id {
		mode.ID = id
	}
	if err := engine.ValidateMode(mode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}

	m.modes[id] = &mode
	return &mode, nil
}

// ListModes returns the built-in modes in catalog order followed by mode
// files sorted by ID. Invalid files are skipped.
func (m *Manager) ListModes() ([]*service.ModeInfo, error) {
	var infos []*service.ModeInfo
	for _, b := range engine.BuiltinModes() {
		infos = append(infos, toInfo(&b, true))
	}

	if m.modesDir == "" {
		return infos, nil
	}

	entries, err := os.ReadDir(m.modesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read modes directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		if _, builtin := engine.BuiltinMode(id); builtin {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		mode, err := m.LoadMode(id)
		if err != nil {
			log.Warn().Str("mode", id).Err(err).Msg("skipping invalid mode file")
			continue
		}
		infos = append(infos, toInfo(mode, false))
	}

	return infos, nil
}

// GetDefault returns the default mode
func (m *Manager) GetDefault() *engine.GameMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultMode
}

// SetDefault sets the default mode by ID. Templates cannot be the default.
func (m *Manager) SetDefault(id string) error {
	mode, err := m.LoadMode(id)
	if err != nil {
		return err
	}
	if mode.Template {
		return fmt.Errorf("%w: %s is a template", ErrInvalidMode, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultMode = mode
	return nil
}

// RefreshCache drops every cached mode so files are read again
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.modes = make(map[string]*engine.GameMode)
	m.mu.Unlock()

	return m.loadDefaultMode()
}

func (m *Manager) loadDefaultMode() error {
	id := DefaultModeID
	m.mu.RLock()
	if m.defaultMode != nil {
		id = m.defaultMode.ID
	}
	m.mu.RUnlock()

	mode, err := m.LoadMode(id)
	if err != nil && id != DefaultModeID {
		log.Warn().Str("mode", id).Err(err).Msg("default mode no longer loads, falling back")
		mode, err = m.LoadMode(DefaultModeID)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultMode = mode
	return nil
}

// SaveMode writes a mode file. Built-in IDs cannot be overwritten.
func (m *Manager) SaveMode(mode *engine.GameMode) error {
	if mode == nil {
		return fmt.Errorf("%w: mode cannot be nil", ErrInvalidMode)
	}
	if err := engine.ValidateMode(*mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	if _, builtin := engine.BuiltinMode(mode.ID); builtin {
		return fmt.Errorf("%w: %s is a built-in mode", ErrInvalidMode, mode.ID)
	}
	if m.modesDir == "" {
		return fmt.Errorf("no modes directory configured")
	}

	data, err := json.MarshalIndent(mode, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mode: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.modesDir, mode.ID+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write mode file: %w", err)
	}

	saved := *mode
	m.mu.Lock()
	m.modes[mode.ID] = &saved
	m.mu.Unlock()

	log.Info().Str("mode", mode.ID).Msg("mode saved")
	return nil
}

func toInfo(mode *engine.GameMode, builtin bool) *service.ModeInfo {
	return &service.ModeInfo{
		ID:          mode.ID,
		Title:       mode.Title,
		Description: mode.Description,
		Rows:        mode.Rows,
		Cols:        mode.Cols,
		Objective:   mode.Objective,
		Template:    mode.Template,
		Builtin:     builtin,
	}
}
