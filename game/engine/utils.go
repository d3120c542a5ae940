package engine

import (
	"cmp"
	"slices"
)

// axes are the four scan directions: across, down, down-right, down-left
var axes = [4]Coord{
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 1, Col: 1},
	{Row: 1, Col: -1},
}

// Axis names, indexed like axes
var AxisNames = [4]string{"horizontal", "vertical", "diagonal", "anti-diagonal"}

// walkLines calls fn with every maximal straight line of cells on a rows x cols
// grid, one axis at a time. A line starts at a cell whose predecessor along the
// axis falls off the grid. Returning false from fn stops the walk.
func walkLines(rows, cols int, fn func(axis int, line []Coord) bool) {
	inside := func(r, c int) bool { return r >= 0 && r < rows && c >= 0 && c < cols }

	for a, d := range axes {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if inside(r-d.Row, c-d.Col) {
					continue
				}
				var line []Coord
				for rr, cc := r, c; inside(rr, cc); rr, cc = rr+d.Row, cc+d.Col {
					line = append(line, Coord{Row: rr, Col: cc})
				}
				if !fn(a, line) {
					return
				}
			}
		}
	}
}

// WindowCounts returns, per axis, how many runs of k consecutive cells fit on
// a rows x cols grid.
func WindowCounts(rows, cols, k int) [4]int {
	var counts [4]int
	if k < 1 {
		return counts
	}
	walkLines(rows, cols, func(axis int, line []Coord) bool {
		if n := len(line) - k + 1; n > 0 {
			counts[axis] += n
		}
		return true
	})
	return counts
}

func compareCoord(a, b Coord) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// sortedCoords returns the keys of set in row-major order
func sortedCoords(set map[Coord]struct{}) []Coord {
	out := make([]Coord, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	slices.SortFunc(out, compareCoord)
	return out
}
