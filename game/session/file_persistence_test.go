package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/service"
)

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	setup := createTestSetup()
	game, err := engine.NewGame(setup.Symbols)
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return &service.Session{
		ID:             id,
		Game:           game,
		Mode:           setup.Mode,
		Difficulty:     42,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
}

func TestFilePersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "session_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	session := newTestSession(t, "test1")

	t.Run("Save and Load Pregame Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
		if loaded.Mode != session.Mode {
			t.Errorf("Expected mode %+v, got %+v", session.Mode, loaded.Mode)
		}
		if loaded.Difficulty != 42 {
			t.Errorf("Expected difficulty 42, got %d", loaded.Difficulty)
		}
		if loaded.Game.Phase() != engine.Pregame {
			t.Errorf("Expected pregame, got %s", loaded.Game.Phase())
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		if err := session.Game.Start(session.Mode, false); err != nil {
			t.Fatalf("Failed to start game: %v", err)
		}
		for _, c := range []engine.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}} {
			if _, err := session.Game.Apply(session.Game.Turn(), c); err != nil {
				t.Fatalf("Failed to apply move: %v", err)
			}
		}

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		if loaded.Game.ID() != session.Game.ID() {
			t.Errorf("Expected game ID %s, got %s", session.Game.ID(), loaded.Game.ID())
		}
		if loaded.Game.Turn() != engine.Player {
			t.Errorf("Expected player's turn, got %s", loaded.Game.Turn())
		}
		if got, want := loaded.Game.Board().String(), session.Game.Board().String(); got != want {
			t.Errorf("Board not persisted correctly:\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		if err := persistence.Save(newTestSession(t, "test2")); err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}

		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if !found["test1"] || !found["test2"] {
			t.Errorf("Expected sessions not found in list: %v", sessionIDs)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}
		if _, err := persistence.Load("test2"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		if _, err := persistence.Load("nonexistent"); err == nil {
			t.Error("Should get error when loading non-existent session")
		}
		if err := persistence.Delete("nonexistent"); err == nil {
			t.Error("Should get error when deleting non-existent session")
		}
		if err := persistence.Save(nil); err == nil {
			t.Error("Should get error when saving nil session")
		}
	})

	t.Run("Tampered History Is Rejected", func(t *testing.T) {
		path := filepath.Join(tempDir, "test1.json")
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read session file: %v", err)
		}

		var data PersistedSessionData
		if err := json.Unmarshal(raw, &data); err != nil {
			t.Fatalf("Failed to parse session file: %v", err)
		}
		// Two marks on the same cell can never be replayed
		data.Game.History.Player = append(data.Game.History.Player, data.Game.History.Cpu[0])

		tampered, _ := json.Marshal(data)
		if err := os.WriteFile(path, tampered, 0644); err != nil {
			t.Fatalf("Failed to write tampered file: %v", err)
		}

		if _, err := persistence.Load("test1"); err == nil {
			t.Error("Expected error when restoring an impossible history")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "session_file_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	if err := persistence.Save(newTestSession(t, "File_Test")); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	expectedFile := filepath.Join(tempDir, "file_test.json")
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("Expected file %s: %v", expectedFile, err)
	}

	content := string(data)
	for _, field := range []string{`"id"`, `"mode"`, `"difficulty"`, `"created_at"`, `"game"`, `"history"`} {
		if !strings.Contains(content, field) {
			t.Errorf("Session file should contain field %s", field)
		}
	}
}
