package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wricardo/connect-x/game/engine"
)

// legacyReplay is the version 1 record: symbols and moves keyed by side
// ("enemy" for the CPU), the mode embedded as a title or an object, no outcome.
type legacyReplay struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	GameMode     json.RawMessage `json:"game_mode"`
	PlayerMoves  [][2]int        `json:"player_moves"`
	EnemyMoves   [][2]int        `json:"enemy_moves"`
	Priority     bool            `json:"priority"`
	PlayerSymbol string          `json:"player_symbol"`
	EnemySymbol  string          `json:"enemy_symbol"`
}

// legacyMode is the version 1 mode: a title, a grid or explicit dimensions, an objective
type legacyMode struct {
	Title     string     `json:"title"`
	Rows      int        `json:"rows"`
	Cols      int        `json:"cols"`
	Grid      [][]string `json:"grid"`
	Objective int        `json:"objective"`
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// DecodeReplay parses a stored replay of any known version into the current schema
func DecodeReplay(data []byte) (*engine.Replay, error) {
	var peek struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, err
	}

	switch {
	case peek.Version > engine.ReplayVersion:
		return nil, fmt.Errorf("replay version %d is newer than supported version %d", peek.Version, engine.ReplayVersion)
	case peek.Version == engine.ReplayVersion:
		var r engine.Replay
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	var old legacyReplay
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("legacy replay: %w", err)
	}
	return migrateReplay(old)
}

func migrateReplay(old legacyReplay) (*engine.Replay, error) {
	if len(old.PlayerMoves)+len(old.EnemyMoves) == 0 {
		return EmptyReplay(), nil
	}

	mode, err := decodeLegacyMode(old.GameMode)
	if err != nil {
		return nil, fmt.Errorf("legacy replay %q: %w", old.Name, err)
	}

	symbols := engine.DefaultSymbols()
	if old.PlayerSymbol != "" {
		symbols.Player = engine.Symbol(old.PlayerSymbol)
	}
	if old.EnemySymbol != "" {
		symbols.Cpu = engine.Symbol(old.EnemySymbol)
	}

	r := &engine.Replay{
		Version:     engine.ReplayVersion,
		Name:        old.Name,
		Mode:        mode,
		PlayerMoves: toCoords(old.PlayerMoves),
		CpuMoves:    toCoords(old.EnemyMoves),
		PlayerFirst: old.Priority,
		Symbols:     symbols,
	}

	// Older records never stored how the game ended; re-simulate to find out.
	if p, err := engine.NewPlayer(r); err == nil {
		if f, err := p.RunToEnd(); err == nil {
			r.Outcome = f.State.Phase
		}
	}
	return r, nil
}

// DecodeMode parses a stored mode in either the current or the version 1 shape
func DecodeMode(data []byte) (engine.GameMode, error) {
	var peek struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &peek); err == nil && peek.ID != "" {
		var m engine.GameMode
		if err := json.Unmarshal(data, &m); err != nil {
			return engine.GameMode{}, err
		}
		return m, nil
	}
	return decodeLegacyMode(data)
}

func decodeLegacyMode(raw json.RawMessage) (engine.GameMode, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return engine.GameMode{}, fmt.Errorf("mode missing")
	}

	var title string
	if err := json.Unmarshal(raw, &title); err == nil {
		if m, ok := builtinByTitle(title); ok {
			return m, nil
		}
		return engine.GameMode{}, fmt.Errorf("unknown mode title %q", title)
	}

	var lm legacyMode
	if err := json.Unmarshal(raw, &lm); err != nil {
		return engine.GameMode{}, err
	}
	if m, ok := builtinByTitle(lm.Title); ok && lm.Rows == 0 && len(lm.Grid) == 0 {
		return m, nil
	}

	rows, cols := lm.Rows, lm.Cols
	if rows == 0 && len(lm.Grid) > 0 {
		rows, cols = len(lm.Grid), len(lm.Grid[0])
	}
	if m, ok := builtinByTitle(lm.Title); ok && m.Rows == rows && m.Cols == cols && m.Objective == lm.Objective {
		return m, nil
	}

	return engine.GameMode{
		ID:        slug(lm.Title),
		Title:     lm.Title,
		Rows:      rows,
		Cols:      cols,
		Objective: lm.Objective,
	}, nil
}

func builtinByTitle(title string) (engine.GameMode, bool) {
	for _, m := range engine.BuiltinModes() {
		if strings.EqualFold(m.Title, title) {
			return m, true
		}
	}
	return engine.GameMode{}, false
}

func slug(title string) string {
	s := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return engine.CustomModeID
	}
	return s
}

func toCoords(pairs [][2]int) []engine.Coord {
	out := make([]engine.Coord, len(pairs))
	for i, p := range pairs {
		out[i] = engine.Coord{Row: p[0], Col: p[1]}
	}
	return out
}
