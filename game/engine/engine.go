package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine is the turn state machine contract used by the service layer
type Engine interface {
	Start(mode GameMode, playerFirst bool) error
	Apply(actor Actor, c Coord) (GameState, error)
	Reset()
	State() GameState
	Board() *Board
	History() MoveHistory
	OnEnd(fn func(GameEnded))
}

// Game owns one board, its move history and whose turn it is.
// A Game is not safe for concurrent use.
type Game struct {
	id          string
	mode        GameMode
	symbols     SymbolPair
	board       *Board
	phase       Phase
	turn        Actor
	playerFirst bool
	history     MoveHistory
	last        *Move
	winner      Actor
	line        []Coord
	listeners   []func(GameEnded)
}

var _ Engine = (*Game)(nil)

// NewGame creates a game in Pregame using the given symbols
func NewGame(symbols SymbolPair) (*Game, error) {
	if err := symbols.Validate(); err != nil {
		return nil, err
	}
	return &Game{
		symbols: symbols,
		phase:   Pregame,
	}, nil
}

// SetSymbols changes the marks used by each side. Not allowed mid-game.
func (g *Game) SetSymbols(symbols SymbolPair) error {
	if g.phase == InProgress {
		return fmt.Errorf("cannot change symbols while a game is in progress")
	}
	if err := symbols.Validate(); err != nil {
		return err
	}
	g.symbols = symbols
	return nil
}

// Start begins a fresh game on mode. The player moves first when playerFirst is set.
func (g *Game) Start(mode GameMode, playerFirst bool) error {
	if err := ValidateMode(mode); err != nil {
		return fmt.Errorf("%w: %v", ErrModeNotPlayable, err)
	}

	g.id = uuid.NewString()
	g.mode = mode
	g.board = NewBoard(mode)
	g.phase = InProgress
	g.playerFirst = playerFirst
	g.turn = Cpu
	if playerFirst {
		g.turn = Player
	}
	g.history = MoveHistory{}
	g.last = nil
	g.winner = ""
	g.line = nil
	return nil
}

// Apply places actor's symbol at c and advances the game.
// A rejected move leaves the game untouched.
func (g *Game) Apply(actor Actor, c Coord) (GameState, error) {
	if g.phase != InProgress {
		return GameState{}, fmt.Errorf("%w: phase is %s", ErrGameNotInProgress, g.phase)
	}
	if actor != g.turn {
		return GameState{}, fmt.Errorf("%w: waiting on %s", ErrNotYourTurn, g.turn)
	}

	sym := g.symbols.For(actor)
	if err := g.board.Place(c, sym); err != nil {
		return GameState{}, err
	}

	if actor == Player {
		g.history.Player = append(g.history.Player, c)
	} else {
		g.history.Cpu = append(g.history.Cpu, c)
	}
	g.last = &Move{Actor: actor, Coord: c, Symbol: sym}

	if out := CheckWin(g.board, sym, g.mode.Objective); out.Won {
		g.winner = actor
		g.line = out.Line
		g.phase = Won
		if actor == Cpu {
			g.phase = Lost
		}
		g.finish()
	} else if CheckTie(g.board, g.mode.Objective, g.symbols) {
		g.phase = Tied
		g.finish()
	} else {
		g.turn = actor.Other()
	}

	return g.State(), nil
}

// Reset abandons the current game from any phase and returns to Pregame
func (g *Game) Reset() {
	g.id = ""
	g.phase = Pregame
	g.turn = ""
	g.history = MoveHistory{}
	g.last = nil
	g.winner = ""
	g.line = nil
	if g.mode.Rows > 0 && g.mode.Cols > 0 {
		g.board = NewBoard(g.mode)
	}
}

// OnEnd registers fn to be called once each time a game reaches a terminal phase
func (g *Game) OnEnd(fn func(GameEnded)) {
	g.listeners = append(g.listeners, fn)
}

func (g *Game) finish() {
	ev := GameEnded{
		GameID:  g.id,
		Outcome: g.phase,
		Mode:    g.mode,
		History: g.history.clone(),
		EndedAt: time.Now(),
	}
	for _, fn := range g.listeners {
		fn(ev)
	}
}

// State returns a copy of the game summary
func (g *Game) State() GameState {
	st := GameState{
		GameID:      g.id,
		Phase:       g.phase,
		Turn:        g.turn,
		PlayerFirst: g.playerFirst,
		Mode:        g.mode,
		Symbols:     g.symbols,
		Winner:      g.winner,
		WinningLine: append([]Coord(nil), g.line...),
		MoveCount:   g.history.Len(),
		History:     g.history.clone(),
	}
	if g.winner != "" {
		st.WinnerSymbol = g.symbols.For(g.winner)
	}
	if g.last != nil {
		last := *g.last
		st.LastMove = &last
	}
	return st
}

// Board returns a copy of the current board, or nil before the first Start
func (g *Game) Board() *Board {
	if g.board == nil {
		return nil
	}
	return g.board.Clone()
}

// History returns a copy of both move sequences
func (g *Game) History() MoveHistory {
	return g.history.clone()
}

func (g *Game) ID() string              { return g.id }
func (g *Game) Phase() Phase            { return g.phase }
func (g *Game) Turn() Actor             { return g.turn }
func (g *Game) Mode() GameMode          { return g.mode }
func (g *Game) Symbols() SymbolPair     { return g.symbols }
func (g *Game) PlayerFirst() bool       { return g.playerFirst }
func (g *Game) IsOver() bool            { return g.phase.IsTerminal() }
func (g *Game) IsTurn(actor Actor) bool { return g.phase == InProgress && g.turn == actor }

// Snapshot is the persisted form of a game. Boards are not stored; they are
// rebuilt by re-applying the move history.
type Snapshot struct {
	GameID      string      `json:"game_id,omitempty"`
	Mode        GameMode    `json:"mode"`
	Symbols     SymbolPair  `json:"symbols"`
	PlayerFirst bool        `json:"player_first"`
	Phase       Phase       `json:"phase"`
	History     MoveHistory `json:"history"`
}

// Snapshot captures what Restore needs to rebuild this game
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		GameID:      g.id,
		Mode:        g.mode,
		Symbols:     g.symbols,
		PlayerFirst: g.playerFirst,
		Phase:       g.phase,
		History:     g.history.clone(),
	}
}

// Restore rebuilds a game by replaying its history through Apply.
// Listeners are not carried over, so no GameEnded is observed for restored games.
func Restore(s Snapshot) (*Game, error) {
	g, err := NewGame(s.Symbols)
	if err != nil {
		return nil, err
	}
	if s.Phase == Pregame || s.Phase == "" {
		g.mode = s.Mode
		g.playerFirst = s.PlayerFirst
		if s.Mode.Rows > 0 && s.Mode.Cols > 0 {
			g.board = NewBoard(s.Mode)
		}
		return g, nil
	}

	if err := g.Start(s.Mode, s.PlayerFirst); err != nil {
		return nil, err
	}
	for i, m := range s.History.Ordered(s.PlayerFirst) {
		if _, err := g.Apply(m.Actor, m.Coord); err != nil {
			return nil, fmt.Errorf("restore move %d %s %s: %w", i+1, m.Actor, m.Coord, err)
		}
	}
	if g.phase != s.Phase {
		return nil, fmt.Errorf("restore: history ends in %s, snapshot says %s", g.phase, s.Phase)
	}
	if s.GameID != "" {
		g.id = s.GameID
	}
	return g, nil
}
