// Package config provides the game mode catalog.
//
// The config package handles:
//   - The built-in modes (Connect 4, Tic-Tac-Toe, Wide Boi, ...)
//   - Loading extra modes from JSON files in a modes directory
//   - Default mode management
//   - Mode discovery and listing
//
// Mode Format:
//
// A mode file is named <id>.json and holds:
//
//	{"id": "bigboard", "title": "Big Board", "rows": 12, "cols": 12, "objective": 5}
//
// Files written by older releases ({"title", "grid", "objective"}) are
// accepted and converted when read.
//
// Usage:
//
//	manager, err := config.NewManager("modes")
//
//	// Load a mode
//	mode, err := manager.LoadMode("wide")
//
//	// Default mode (connect4 unless changed)
//	def := manager.GetDefault()
//
//	// List every mode
//	modes, err := manager.ListModes()
//
// Validation:
//
// Every mode is checked with engine.ValidateMode: a lowercase ID, a title,
// 1..30 rows and columns, and an objective no longer than the longer side.
// The "custom" template is listed but is not playable until the user saves
// real dimensions for it.
package config
