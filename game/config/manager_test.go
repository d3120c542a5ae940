package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/connect-x/game/engine"
)

func createTestModesDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "modes-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return dir
}

func createValidMode(id string) *engine.GameMode {
	return &engine.GameMode{
		ID:          id,
		Title:       "Test " + id,
		Description: "Test mode",
		Rows:        5,
		Cols:        6,
		Objective:   4,
	}
}

func writeModeFile(t *testing.T, dir, name string, mode any) {
	data, err := json.MarshalIndent(mode, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal mode: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write mode file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := createTestModesDir(t)
		defer os.RemoveAll(dir)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager == nil {
			t.Error("Expected manager to be non-nil")
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("built-ins only", func(t *testing.T) {
		manager, err := NewManager("")
		if err != nil {
			t.Fatalf("NewManager should succeed without a modes directory, got error: %v", err)
		}

		def := manager.GetDefault()
		if def == nil || def.ID != DefaultModeID {
			t.Errorf("Expected default mode %q, got %+v", DefaultModeID, def)
		}
	})
}

func TestManager_LoadMode(t *testing.T) {
	dir := createTestModesDir(t)
	defer os.RemoveAll(dir)

	writeModeFile(t, dir, "bigboard", createValidMode("bigboard"))

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load built-in mode", func(t *testing.T) {
		mode, err := manager.LoadMode("wide")
		if err != nil {
			t.Fatalf("Failed to load mode: %v", err)
		}
		if mode.Rows != 4 || mode.Cols != 8 || mode.Objective != 4 {
			t.Errorf("Expected 4x8 objective 4, got %dx%d objective %d", mode.Rows, mode.Cols, mode.Objective)
		}
	})

	t.Run("load file mode", func(t *testing.T) {
		mode, err := manager.LoadMode("bigboard")
		if err != nil {
			t.Fatalf("Failed to load mode: %v", err)
		}
		if mode.Title != "Test bigboard" {
			t.Errorf("Expected title 'Test bigboard', got '%s'", mode.Title)
		}
	})

	t.Run("load with .json extension and mixed case", func(t *testing.T) {
		mode, err := manager.LoadMode("BigBoard.json")
		if err != nil {
			t.Fatalf("Failed to load mode with extension: %v", err)
		}
		if mode.ID != "bigboard" {
			t.Errorf("Expected mode ID 'bigboard', got '%s'", mode.ID)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		mode1, _ := manager.LoadMode("bigboard")

		mode2, err := manager.LoadMode("bigboard")
		if err != nil {
			t.Fatalf("Failed to load mode from cache: %v", err)
		}

		if mode1 != mode2 {
			t.Error("Expected mode to be loaded from cache")
		}
	})

	t.Run("load non-existent mode", func(t *testing.T) {
		_, err := manager.LoadMode("non-existent")
		if !errors.Is(err, ErrModeNotFound) {
			t.Errorf("Expected ErrModeNotFound, got %v", err)
		}
	})

	t.Run("load invalid mode", func(t *testing.T) {
		bad := createValidMode("toolong")
		bad.Objective = 9
		writeModeFile(t, dir, "toolong", bad)

		_, err := manager.LoadMode("toolong")
		if !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Expected ErrInvalidMode, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"id": "malformed", invalid json}`), 0644); err != nil {
			t.Fatalf("Failed to write malformed mode: %v", err)
		}

		_, err := manager.LoadMode("malformed")
		if err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})

	t.Run("load legacy mode file", func(t *testing.T) {
		legacy := map[string]any{
			"title":     "Old Format",
			"grid":      [][]string{{"", "", "", ""}, {"", "", "", ""}},
			"objective": 3,
		}
		writeModeFile(t, dir, "oldformat", legacy)

		mode, err := manager.LoadMode("oldformat")
		if err != nil {
			t.Fatalf("Failed to load legacy mode: %v", err)
		}
		if mode.ID != "oldformat" || mode.Rows != 2 || mode.Cols != 4 || mode.Objective != 3 {
			t.Errorf("Unexpected legacy conversion: %+v", mode)
		}
	})
}

func TestManager_ListModes(t *testing.T) {
	dir := createTestModesDir(t)
	defer os.RemoveAll(dir)

	for _, id := range []string{"zeta", "alpha"} {
		writeModeFile(t, dir, id, createValidMode(id))
	}

	// Non-JSON files and invalid modes are ignored
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	bad := createValidMode("broken")
	bad.Rows = 0
	writeModeFile(t, dir, "broken", bad)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	modes, err := manager.ListModes()
	if err != nil {
		t.Fatalf("Failed to list modes: %v", err)
	}

	builtins := len(engine.BuiltinModes())
	if len(modes) != builtins+2 {
		t.Fatalf("Expected %d modes, got %d", builtins+2, len(modes))
	}
	if modes[0].ID != "connect4" || !modes[0].Builtin {
		t.Errorf("Expected connect4 first, got %+v", modes[0])
	}
	if !modes[builtins-1].Template {
		t.Errorf("Expected the custom template to close the built-ins, got %+v", modes[builtins-1])
	}
	if modes[builtins].ID != "alpha" || modes[builtins+1].ID != "zeta" {
		t.Errorf("Expected file modes sorted by ID, got %s, %s", modes[builtins].ID, modes[builtins+1].ID)
	}
	if modes[builtins].Builtin {
		t.Error("File modes should not be marked built-in")
	}
}

func TestManager_SetDefault(t *testing.T) {
	manager, err := NewManager("")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("tictactoe"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().ID != "tictactoe" {
		t.Errorf("Expected default 'tictactoe', got '%s'", manager.GetDefault().ID)
	}

	if err := manager.SetDefault(engine.CustomModeID); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode for the template, got %v", err)
	}
	if err := manager.SetDefault("nope"); !errors.Is(err, ErrModeNotFound) {
		t.Errorf("Expected ErrModeNotFound, got %v", err)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	if manager.GetDefault().ID != "tictactoe" {
		t.Errorf("Expected default to survive a refresh, got '%s'", manager.GetDefault().ID)
	}
}

func TestManager_SaveMode(t *testing.T) {
	dir := createTestModesDir(t)
	defer os.RemoveAll(dir)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("save and reload", func(t *testing.T) {
		mode := createValidMode("saved")
		if err := manager.SaveMode(mode); err != nil {
			t.Fatalf("Failed to save mode: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected mode file on disk: %v", err)
		}

		if err := manager.RefreshCache(); err != nil {
			t.Fatalf("Failed to refresh cache: %v", err)
		}
		loaded, err := manager.LoadMode("saved")
		if err != nil {
			t.Fatalf("Failed to load saved mode: %v", err)
		}
		if *loaded != *mode {
			t.Errorf("Expected %+v, got %+v", mode, loaded)
		}
	})

	t.Run("built-in IDs are protected", func(t *testing.T) {
		mode := createValidMode("connect4")
		if err := manager.SaveMode(mode); !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Expected ErrInvalidMode, got %v", err)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		mode := createValidMode("Bad ID")
		if err := manager.SaveMode(mode); !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Expected ErrInvalidMode, got %v", err)
		}
	})

	t.Run("no modes directory", func(t *testing.T) {
		builtinOnly, _ := NewManager("")
		if err := builtinOnly.SaveMode(createValidMode("nowhere")); err == nil {
			t.Error("Expected error without a modes directory")
		}
	})
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := createTestModesDir(t)
	defer os.RemoveAll(dir)

	for i := 1; i <= 5; i++ {
		writeModeFile(t, dir, fmt.Sprintf("mode%d", i), createValidMode(fmt.Sprintf("mode%d", i)))
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadMode(fmt.Sprintf("mode%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	// default + 5 files
	if manager.Count() != 6 {
		t.Errorf("Expected 6 modes in cache, got %d", manager.Count())
	}
}

// Count is a test-only view of the cache size
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modes)
}
