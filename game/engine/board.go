package engine

import (
	"fmt"
	"strings"
)

// Board is a fixed-shape grid of symbols. It knows nothing about turns or wins.
type Board struct {
	rows  int
	cols  int
	cells []Symbol
}

// NewBoard creates an empty board shaped by mode
func NewBoard(mode GameMode) *Board {
	return newBoard(mode.Rows, mode.Cols)
}

func newBoard(rows, cols int) *Board {
	return &Board{
		rows:  rows,
		cols:  cols,
		cells: make([]Symbol, rows*cols),
	}
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// InBounds reports whether c addresses a cell of this board
func (b *Board) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < b.rows && c.Col >= 0 && c.Col < b.cols
}

// Cell returns the symbol at c, or Empty when c is out of bounds
func (b *Board) Cell(c Coord) Symbol {
	if !b.InBounds(c) {
		return Empty
	}
	return b.cells[c.Row*b.cols+c.Col]
}

// Place puts s on an empty in-bounds cell
func (b *Board) Place(c Coord, s Symbol) error {
	if !b.InBounds(c) {
		return fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, c, b.rows, b.cols)
	}
	if s == Empty {
		return fmt.Errorf("%w: cannot place an empty symbol", ErrInvalidSymbols)
	}
	idx := c.Row*b.cols + c.Col
	if b.cells[idx] != Empty {
		return fmt.Errorf("%w: %s holds %q", ErrCellOccupied, c, b.cells[idx])
	}
	b.cells[idx] = s
	return nil
}

// IsFull reports whether no empty cell remains
func (b *Board) IsFull() bool {
	for _, s := range b.cells {
		if s == Empty {
			return false
		}
	}
	return true
}

// EmptyCells lists the empty cells in row-major order
func (b *Board) EmptyCells() []Coord {
	var out []Coord
	for i, s := range b.cells {
		if s == Empty {
			out = append(out, Coord{Row: i / b.cols, Col: i % b.cols})
		}
	}
	return out
}

// Count returns how many cells hold s
func (b *Board) Count(s Symbol) int {
	n := 0
	for _, cell := range b.cells {
		if cell == s {
			n++
		}
	}
	return n
}

// Snapshot copies the grid into rows of symbols
func (b *Board) Snapshot() [][]Symbol {
	grid := make([][]Symbol, b.rows)
	for r := range grid {
		grid[r] = append([]Symbol{}, b.cells[r*b.cols:(r+1)*b.cols]...)
	}
	return grid
}

// Clone returns an independent copy
func (b *Board) Clone() *Board {
	return &Board{
		rows:  b.rows,
		cols:  b.cols,
		cells: append([]Symbol{}, b.cells...),
	}
}

// Render returns one string per row, using '.' for empty cells
func (b *Board) Render() []string {
	lines := make([]string, b.rows)
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		sb.Reset()
		for c := 0; c < b.cols; c++ {
			s := b.cells[r*b.cols+c]
			if s == Empty {
				sb.WriteByte('.')
			} else {
				sb.WriteString(string(s))
			}
		}
		lines[r] = sb.String()
	}
	return lines
}

func (b *Board) String() string {
	return strings.Join(b.Render(), "\n")
}
