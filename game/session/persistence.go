package session

import (
	"cmp"
	"slices"
	"time"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Boards are not stored: Game holds the move lists and is rebuilt with
// engine.Restore.
type PersistedSessionData struct {
	ID             string          `json:"id"`
	Mode           engine.GameMode `json:"mode"`
	Difficulty     int             `json:"difficulty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Game           engine.Snapshot `json:"game"`
}

func sortByCreation(sessions []*service.Session) {
	slices.SortFunc(sessions, func(a, b *service.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
