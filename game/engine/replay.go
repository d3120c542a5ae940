package engine

import (
	"fmt"
	"time"
)

// ReplayVersion is the current schema version of Replay records
const ReplayVersion = 2

// Replay is the saved record of one finished game
type Replay struct {
	Version     int        `json:"version"`
	Name        string     `json:"name"`
	Mode        GameMode   `json:"mode"`
	PlayerMoves []Coord    `json:"player_moves"`
	CpuMoves    []Coord    `json:"cpu_moves"`
	PlayerFirst bool       `json:"player_first"`
	Symbols     SymbolPair `json:"symbols"`
	Outcome     Phase      `json:"outcome"`
	GameID      string     `json:"game_id,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

// NewReplay materializes a finished game into a named replay
func NewReplay(name string, g *Game) (*Replay, error) {
	if !g.IsOver() {
		return nil, fmt.Errorf("%w: phase is %s", ErrGameNotFinished, g.Phase())
	}
	h := g.History()
	return &Replay{
		Version:     ReplayVersion,
		Name:        name,
		Mode:        g.Mode(),
		PlayerMoves: h.Player,
		CpuMoves:    h.Cpu,
		PlayerFirst: g.PlayerFirst(),
		Symbols:     g.Symbols(),
		Outcome:     g.Phase(),
		GameID:      g.ID(),
		RecordedAt:  time.Now().UTC(),
	}, nil
}

// History returns the replay's moves as a MoveHistory
func (r *Replay) History() MoveHistory {
	return MoveHistory{Player: r.PlayerMoves, Cpu: r.CpuMoves}.clone()
}

// Turns is the length of the longer move sequence
func (r *Replay) Turns() int {
	return r.History().Turns()
}

// Summary is the one-line description shown in replay lists
func (r *Replay) Summary() string {
	return fmt.Sprintf("Replay: %s, Mode: %s, Turns: %d", r.Name, r.Mode.Title, r.Turns())
}

// Frame is what a replay looks like after one step
type Frame struct {
	Step      int       `json:"step"`
	Total     int       `json:"total"`
	Move      *Move     `json:"move,omitempty"`
	State     GameState `json:"state"`
	Board     []string  `json:"board"`
	Exhausted bool      `json:"exhausted"`
}

// ReplayPlayer re-simulates a replay one move per Step through a fresh Game
type ReplayPlayer struct {
	replay *Replay
	game   *Game
	moves  []Move
	next   int
}

// NewPlayer prepares a replay for stepping
func NewPlayer(r *Replay) (*ReplayPlayer, error) {
	g, err := NewGame(r.Symbols)
	if err != nil {
		return nil, fmt.Errorf("replay %q: %w", r.Name, err)
	}
	if err := g.Start(r.Mode, r.PlayerFirst); err != nil {
		return nil, fmt.Errorf("replay %q: %w", r.Name, err)
	}
	return &ReplayPlayer{
		replay: r,
		game:   g,
		moves:  r.History().Ordered(r.PlayerFirst),
	}, nil
}

// Step applies the next move of whichever side is due. Once both sequences
// are used up it returns the terminal frame with Exhausted set and no error.
func (p *ReplayPlayer) Step() (Frame, error) {
	if p.Done() {
		return p.frame(nil, true), nil
	}

	m := p.moves[p.next]
	st, err := p.game.Apply(m.Actor, m.Coord)
	if err != nil {
		return Frame{}, fmt.Errorf("replay %q step %d: %w", p.replay.Name, p.next+1, err)
	}
	p.next++
	return p.frame(st.LastMove, false), nil
}

// RunToEnd steps until the replay is exhausted and returns the last frame
func (p *ReplayPlayer) RunToEnd() (Frame, error) {
	var f Frame
	for !p.Done() {
		var err error
		if f, err = p.Step(); err != nil {
			return f, err
		}
	}
	if f.Move == nil {
		f = p.frame(nil, true)
	}
	f.Exhausted = true
	return f, nil
}

func (p *ReplayPlayer) frame(m *Move, exhausted bool) Frame {
	return Frame{
		Step:      p.next,
		Total:     len(p.moves),
		Move:      m,
		State:     p.game.State(),
		Board:     p.game.board.Render(),
		Exhausted: exhausted,
	}
}

// Err returns ErrReplayExhausted for a frame stepped past the last move
func (f Frame) Err() error {
	if f.Exhausted {
		return ErrReplayExhausted
	}
	return nil
}

// Done reports whether every recorded move has been applied
func (p *ReplayPlayer) Done() bool {
	return p.next >= len(p.moves)
}

func (p *ReplayPlayer) Replay() *Replay  { return p.replay }
func (p *ReplayPlayer) Board() *Board    { return p.game.Board() }
func (p *ReplayPlayer) State() GameState { return p.game.State() }
