// Package session provides session management for connect-x.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiration
//   - Optional file persistence
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Persistence:
//
// FilePersistence writes one <id>.json per session. The file holds the
// session metadata and an engine.Snapshot; on load the game is rebuilt by
// replaying the recorded moves through the engine, so a stored session can
// never hold a board the rules would not allow.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("data/sessions")
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", service.SessionSetup{Mode: mode, Symbols: engine.DefaultSymbols(), Difficulty: 80})
package session
