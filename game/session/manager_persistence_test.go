package session

import (
	"os"
	"testing"
	"time"

	"github.com/wricardo/connect-x/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "manager_persistence_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	manager := NewManagerWithPersistence(persistence)
	setup := createTestSetup()

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", setup)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loaded, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}

		session2, err := manager2.Get("AUTO1")
		if err != nil {
			t.Fatalf("Failed to get session from memory: %v", err)
		}
		if session2 != session {
			t.Error("Session should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		if err := session.Game.Start(session.Mode, true); err != nil {
			t.Fatalf("Failed to start game: %v", err)
		}
		if _, err := session.Game.Apply(engine.Player, engine.Coord{Row: 0, Col: 2}); err != nil {
			t.Fatalf("Failed to apply move: %v", err)
		}

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager3 := NewManagerWithPersistence(persistence)
		loaded, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session after manual save: %v", err)
		}

		if loaded.Game.Phase() != engine.InProgress {
			t.Errorf("Expected in-progress game, got %s", loaded.Game.Phase())
		}
		if loaded.Game.Board().Cell(engine.Coord{Row: 0, Col: 2}) != "X" {
			t.Error("Player mark should be persisted")
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		session, err := manager.Create("delete_test", setup)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if err := manager.Delete(session.ID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists(session.ID) {
			t.Error("Session should be removed from persistence on delete")
		}
		if _, err := manager.Get(session.ID); err == nil {
			t.Error("Should not be able to get deleted session")
		}
	})

	t.Run("DeleteFromMemory Keeps the File", func(t *testing.T) {
		if _, err := manager.Create("memonly", setup); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if err := manager.DeleteFromMemory("memonly"); err != nil {
			t.Fatalf("Failed to delete from memory: %v", err)
		}
		if !persistence.Exists("memonly") {
			t.Error("Persisted copy should survive DeleteFromMemory")
		}
		if _, err := manager.Get("memonly"); err != nil {
			t.Errorf("Session should reload from persistence: %v", err)
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		ids := []string{"startup1", "startup2", "startup3"}
		for _, id := range ids {
			if _, err := manager.Create(id, setup); err != nil {
				t.Fatalf("Failed to create session %s: %v", id, err)
			}
		}

		manager4 := NewManagerWithPersistence(persistence)
		if err := manager4.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}

		for _, id := range ids {
			session, err := manager4.Get(id)
			if err != nil {
				t.Fatalf("Failed to get session %s after loading persisted sessions: %v", id, err)
			}
			if session.ID != id {
				t.Errorf("Expected ID %s, got %s", id, session.ID)
			}
		}

		if manager4.Count() < len(ids) {
			t.Errorf("Expected at least %d sessions, got %d", len(ids), manager4.Count())
		}
	})

	t.Run("Update Last Accessed Persists", func(t *testing.T) {
		session, err := manager.Get("startup1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		originalTime := session.LastAccessedAt
		time.Sleep(10 * time.Millisecond)

		if err := manager.UpdateLastAccessed("startup1"); err != nil {
			t.Fatalf("Failed to update last accessed: %v", err)
		}

		manager5 := NewManagerWithPersistence(persistence)
		loaded, err := manager5.Get("startup1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if !loaded.LastAccessedAt.After(originalTime) {
			t.Error("Last accessed time should be updated and persisted")
		}
	})

	t.Run("SaveAllSessions", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("Failed to save all sessions: %v", err)
		}
	})
}
