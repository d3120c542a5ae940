package engine

import (
	"fmt"
	"regexp"
)

// CustomModeID is the identifier reserved for the user-defined mode
const CustomModeID = "custom"

var modeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// BuiltinModes returns the modes that ship with the game, in menu order.
// The last entry is the non-playable custom template.
func BuiltinModes() []GameMode {
	return []GameMode{
		{ID: "connect4", Title: "Connect 4", Description: "Classic six by seven board, four in a row", Rows: 6, Cols: 7, Objective: 4},
		{ID: "connect3", Title: "Connect 3", Description: "Small board, three in a row", Rows: 4, Cols: 5, Objective: 3},
		{ID: "wide", Title: "Wide Boi", Description: "Short and wide, four in a row", Rows: 4, Cols: 8, Objective: 4},
		{ID: "tall", Title: "Tall Boi", Description: "Tall and narrow, four in a row", Rows: 8, Cols: 4, Objective: 4},
		{ID: "tictactoe", Title: "Tic-Tac-Toe", Description: "Three by three, three in a row", Rows: 3, Cols: 3, Objective: 3},
		{ID: "cheese", Title: "Cheese & Crackers", Description: "Five by five, four in a row", Rows: 5, Cols: 5, Objective: 4},
		{ID: "connect6", Title: "Connect 6", Description: "Nine by ten board, six in a row", Rows: 9, Cols: 10, Objective: 6},
		CustomTemplate(),
	}
}

// CustomTemplate is the placeholder shown before a custom mode is defined
func CustomTemplate() GameMode {
	return GameMode{
		ID:          CustomModeID,
		Title:       "Custom",
		Description: "Define your own board size and objective",
		Rows:        99,
		Cols:        99,
		Objective:   99,
		Template:    true,
	}
}

// BuiltinMode looks up a built-in mode by ID
func BuiltinMode(id string) (GameMode, bool) {
	for _, m := range BuiltinModes() {
		if m.ID == id {
			return m, true
		}
	}
	return GameMode{}, false
}

// ValidateMode checks that a mode describes a winnable board
func ValidateMode(m GameMode) error {
	if m.Template {
		return fmt.Errorf("%w: %q is a template", ErrModeNotPlayable, m.ID)
	}
	if m.ID == "" {
		return fmt.Errorf("mode validation: id is required")
	}
	if !modeIDPattern.MatchString(m.ID) {
		return fmt.Errorf("mode validation: id %q must be lowercase letters, digits, '-' or '_'", m.ID)
	}
	if m.Title == "" {
		return fmt.Errorf("mode validation: title is required")
	}
	if m.Rows < MinBoardSide || m.Rows > MaxBoardSide {
		return fmt.Errorf("mode validation: rows must be between %d and %d, got %d", MinBoardSide, MaxBoardSide, m.Rows)
	}
	if m.Cols < MinBoardSide || m.Cols > MaxBoardSide {
		return fmt.Errorf("mode validation: cols must be between %d and %d, got %d", MinBoardSide, MaxBoardSide, m.Cols)
	}
	if longest := max(m.Rows, m.Cols); m.Objective < 1 || m.Objective > longest {
		return fmt.Errorf("mode validation: objective must be between 1 and %d, got %d", longest, m.Objective)
	}
	return nil
}
