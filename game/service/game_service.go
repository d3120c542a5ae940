package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/stats"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrModeNotFound     = errors.New("mode not found")
	ErrPlaybackNotFound = errors.New("playback not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	StartGame(ctx context.Context, sessionID string, opts StartOptions) (*MoveResult, error)
	ApplyPlayerMove(ctx context.Context, sessionID string, row, col int) (*MoveResult, error)
	RequestCPUMove(ctx context.Context, sessionID string) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetBoard(ctx context.Context, sessionID string) (*BoardView, error)
	GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error)

	// Replays
	SaveReplay(ctx context.Context, sessionID, name string) (*replay.Summary, error)
	ListReplays(ctx context.Context) ([]replay.Summary, error)
	DeleteReplay(ctx context.Context, slot int) error
	RenameReplay(ctx context.Context, slot int, name string) (*replay.Summary, error)
	PlayReplay(ctx context.Context, slot int) (*ReplayPlayback, error)
	StepReplay(ctx context.Context, playbackID string) (*ReplayFrame, error)
	CleanupPlaybacks(maxAge time.Duration) int

	// Stats and settings
	GetStats(ctx context.Context) (*StatsInfo, error)
	ResetStats(ctx context.Context) error
	GetSymbols(ctx context.Context) (engine.SymbolPair, error)
	SetSymbols(ctx context.Context, symbols engine.SymbolPair) (engine.SymbolPair, error)

	// Modes
	ListModes(ctx context.Context) ([]*ModeInfo, error)
	GetMode(ctx context.Context, modeID string) (*engine.GameMode, error)
	SaveCustomMode(ctx context.Context, mode engine.GameMode) (*engine.GameMode, error)
	SaveMode(ctx context.Context, mode engine.GameMode) (*engine.GameMode, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, setup SessionSetup) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, setup SessionSetup) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles the mode catalog
type ConfigManager interface {
	LoadMode(id string) (*engine.GameMode, error)
	ListModes() ([]*ModeInfo, error)
	GetDefault() *engine.GameMode
	SaveMode(mode *engine.GameMode) error
}

// ReplayPool is the fixed set of replay slots
type ReplayPool interface {
	Save(ctx context.Context, r *engine.Replay) (int, error)
	List(ctx context.Context) ([]replay.Summary, error)
	Get(ctx context.Context, slot int) (*engine.Replay, error)
	Delete(ctx context.Context, slot int) error
	Rename(ctx context.Context, slot int, name string) (replay.Summary, error)
}

// StatsTracker counts finished games
type StatsTracker interface {
	Record(ctx context.Context, ev engine.GameEnded) error
	Snapshot() stats.Totals
	Reset(ctx context.Context) error
}

// SessionSetup is what a new session starts from
type SessionSetup struct {
	Mode       engine.GameMode
	Symbols    engine.SymbolPair
	Difficulty int
}

// Session represents an active game session
type Session struct {
	ID             string
	Game           *engine.Game
	Mode           engine.GameMode // used by StartGame when no mode is given
	Difficulty     int
	Strategy       *engine.Strategy
	CreatedAt      time.Time
	LastAccessedAt time.Time

	hooked bool
}
