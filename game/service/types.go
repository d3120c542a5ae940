package service

import (
	"time"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
)

// CreateSessionRequest configures a new session. Zero values fall back to
// the saved settings.
type CreateSessionRequest struct {
	ModeID     string             `json:"mode_id,omitempty"`
	Symbols    *engine.SymbolPair `json:"symbols,omitempty"`
	Difficulty *int               `json:"difficulty,omitempty"`
}

// StartOptions configures StartGame. A nil PlayerFirst is decided by a coin flip.
type StartOptions struct {
	ModeID      string `json:"mode_id,omitempty"`
	PlayerFirst *bool  `json:"player_first,omitempty"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	ModeID         string            `json:"mode_id"`
	Difficulty     int               `json:"difficulty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Mode           *engine.GameMode  `json:"mode"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool              `json:"success"`
	Move      *engine.Move      `json:"move,omitempty"`
	Tier      engine.Tier       `json:"tier,omitempty"`
	GameState *engine.GameState `json:"game_state"`
	Board     []string          `json:"board"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`

	// CpuDwellMS is how long a client should pause before asking for the
	// CPU's move. Zero when it is not the CPU's turn.
	CpuDwellMS int64 `json:"cpu_dwell_ms,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string        `json:"type"` // "game_started", "move", "cpu_move", "game_over", "reset"
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Coord     *engine.Coord `json:"coord,omitempty"`
}

// BoardView is the current board of a session
type BoardView struct {
	SessionID string            `json:"session_id"`
	Rows      int               `json:"rows"`
	Cols      int               `json:"cols"`
	Objective int               `json:"objective"`
	Cells     [][]engine.Symbol `json:"cells"`
	Rendered  []string          `json:"rendered"`
	GameState *engine.GameState `json:"game_state"`
}

// HistoryResponse lists the moves of the current game in play order
type HistoryResponse struct {
	SessionID   string        `json:"session_id"`
	Moves       []engine.Move `json:"moves"`
	TotalMoves  int           `json:"total_moves"`
	Turns       int           `json:"turns"`
	PlayerFirst bool          `json:"player_first"`
}

// ReplayPlayback is a handle for stepping through a saved replay
type ReplayPlayback struct {
	ID          string         `json:"id"`
	Slot        int            `json:"slot"`
	Replay      replay.Summary `json:"replay"`
	TotalSteps  int            `json:"total_steps"`
	StepDwellMS int64          `json:"step_dwell_ms"`
	Frame       engine.Frame   `json:"frame"`
}

// ReplayFrame is one step of a playback
type ReplayFrame struct {
	PlaybackID  string `json:"playback_id"`
	Slot        int    `json:"slot"`
	StepDwellMS int64  `json:"step_dwell_ms"`
	engine.Frame
}

// StatsInfo is the win/loss/tie record
type StatsInfo struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
	Played int `json:"played"`
}

// ModeInfo provides information about a game mode
type ModeInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Objective   int    `json:"objective"`
	Template    bool   `json:"template,omitempty"`
	Builtin     bool   `json:"builtin"`
}
