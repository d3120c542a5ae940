package engine

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Symbol is the mark a side places on the board. The empty string is an empty cell.
type Symbol string

const (
	Empty Symbol = ""

	// Limits and defaults
	MinBoardSide      = 1
	MaxBoardSide      = 30
	MinDifficulty     = 0
	MaxDifficulty     = 100
	DefaultDifficulty = 80
	DefaultCpuDwell   = 3500 * time.Millisecond
	DefaultStepDwell  = 1000 * time.Millisecond
)

// Actor identifies which side is acting
type Actor string

const (
	Player Actor = "player"
	Cpu    Actor = "cpu"
)

// Other returns the opposing actor
func (a Actor) Other() Actor {
	if a == Player {
		return Cpu
	}
	return Player
}

// Phase is the lifecycle position of a game
type Phase string

const (
	Pregame    Phase = "pregame"
	InProgress Phase = "in_progress"
	Won        Phase = "won"
	Lost       Phase = "lost"
	Tied       Phase = "tied"
)

// IsTerminal reports whether no further moves are accepted in this phase
func (p Phase) IsTerminal() bool {
	return p == Won || p == Lost || p == Tied
}

// Coord addresses a single cell
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// GameMode describes a board shape and the run length needed to win
type GameMode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Objective   int    `json:"objective"`
	Template    bool   `json:"template,omitempty"`
}

// SymbolPair holds the marks used by each side
type SymbolPair struct {
	Player Symbol `json:"player"`
	Cpu    Symbol `json:"cpu"`
}

// DefaultSymbols returns the X/O pair
func DefaultSymbols() SymbolPair {
	return SymbolPair{Player: "X", Cpu: "O"}
}

// For returns the symbol placed by actor
func (p SymbolPair) For(a Actor) Symbol {
	if a == Cpu {
		return p.Cpu
	}
	return p.Player
}

// Validate checks that both symbols are single characters and distinct
func (p SymbolPair) Validate() error {
	for _, s := range []Symbol{p.Player, p.Cpu} {
		if s == Empty {
			return fmt.Errorf("%w: symbol must not be empty", ErrInvalidSymbols)
		}
		if utf8.RuneCountInString(string(s)) != 1 {
			return fmt.Errorf("%w: symbol %q must be a single character", ErrInvalidSymbols, s)
		}
	}
	if p.Player == p.Cpu {
		return fmt.Errorf("%w: player and cpu symbols must differ, both are %q", ErrInvalidSymbols, p.Player)
	}
	return nil
}

// Move is a committed placement
type Move struct {
	Actor  Actor  `json:"actor"`
	Coord  Coord  `json:"coord"`
	Symbol Symbol `json:"symbol"`
}

// MoveHistory holds the ordered placements of each side
type MoveHistory struct {
	Player []Coord `json:"player"`
	Cpu    []Coord `json:"cpu"`
}

// Len returns the total number of moves
func (h MoveHistory) Len() int {
	return len(h.Player) + len(h.Cpu)
}

// Turns returns the length of the longer sequence
func (h MoveHistory) Turns() int {
	return max(len(h.Player), len(h.Cpu))
}

func (h MoveHistory) clone() MoveHistory {
	return MoveHistory{
		Player: append([]Coord{}, h.Player...),
		Cpu:    append([]Coord{}, h.Cpu...),
	}
}

// Ordered interleaves both sequences starting with the side that had priority.
// Leftover moves of the longer sequence are appended at the end.
func (h MoveHistory) Ordered(playerFirst bool) []Move {
	first, second := Player, Cpu
	if !playerFirst {
		first, second = Cpu, Player
	}
	seq := map[Actor][]Coord{Player: h.Player, Cpu: h.Cpu}

	moves := make([]Move, 0, h.Len())
	for i := 0; i < h.Turns(); i++ {
		for _, a := range []Actor{first, second} {
			if i < len(seq[a]) {
				moves = append(moves, Move{Actor: a, Coord: seq[a][i]})
			}
		}
	}
	return moves
}

// GameState is a read-only summary of a game
type GameState struct {
	GameID       string      `json:"game_id,omitempty"`
	Phase        Phase       `json:"phase"`
	Turn         Actor       `json:"turn,omitempty"`
	PlayerFirst  bool        `json:"player_first"`
	Mode         GameMode    `json:"mode"`
	Symbols      SymbolPair  `json:"symbols"`
	Winner       Actor       `json:"winner,omitempty"`
	WinnerSymbol Symbol      `json:"winner_symbol,omitempty"`
	WinningLine  []Coord     `json:"winning_line,omitempty"`
	MoveCount    int         `json:"move_count"`
	LastMove     *Move       `json:"last_move,omitempty"`
	History      MoveHistory `json:"history"`
}

// GameEnded is emitted once when a game reaches a terminal phase
type GameEnded struct {
	GameID  string      `json:"game_id"`
	Outcome Phase       `json:"outcome"`
	Mode    GameMode    `json:"mode"`
	History MoveHistory `json:"history"`
	EndedAt time.Time   `json:"ended_at"`
}
