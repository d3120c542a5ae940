package engine

// WinOutcome is the result of scanning a board for one symbol
type WinOutcome struct {
	Won  bool    `json:"won"`
	Line []Coord `json:"line,omitempty"`
}

// CheckWin scans every row, column and diagonal for objective consecutive
// cells holding s. The running count resets on any other cell, so runs are
// found at any offset without backtracking.
func CheckWin(b *Board, s Symbol, objective int) WinOutcome {
	if s == Empty || objective < 1 {
		return WinOutcome{}
	}

	var out WinOutcome
	walkLines(b.rows, b.cols, func(_ int, line []Coord) bool {
		if len(line) < objective {
			return true
		}
		count := 0
		for i, c := range line {
			if b.Cell(c) == s {
				count++
			} else {
				count = 0
			}
			if count == objective {
				out.Won = true
				out.Line = append([]Coord{}, line[i-objective+1:i+1]...)
				return false
			}
		}
		return true
	})
	return out
}

// CheckTie reports a full board on which neither symbol has a winning run
func CheckTie(b *Board, objective int, symbols SymbolPair) bool {
	if !b.IsFull() {
		return false
	}
	return !CheckWin(b, symbols.Player, objective).Won && !CheckWin(b, symbols.Cpu, objective).Won
}
