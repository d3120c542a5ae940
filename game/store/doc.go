// Package store persists the save file: win/loss/tie counters, the replay
// slots, the user-defined mode and player settings.
//
// Every value lives under a SaveKey and is stored as a JSON document.
// Three backends implement Store:
//   - MemoryStore keeps everything in process
//   - FileStore keeps a single JSON document on disk
//   - SQLiteStore keeps a kv table in a SQLite database
//
// Replays written by older releases are migrated on read (see DecodeReplay).
package store
