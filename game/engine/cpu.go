package engine

import (
	"math/rand/v2"
	"time"
)

// Tier is the priority class a CPU move was picked from
type Tier string

const (
	TierWin    Tier = "win"
	TierBlock  Tier = "block"
	TierRandom Tier = "random"
)

// Decision is a chosen CPU move and the tier that produced it
type Decision struct {
	Coord Coord `json:"coord"`
	Tier  Tier  `json:"tier"`
}

// Strategy picks CPU moves: complete a line, else block one, else play anywhere.
// A Strategy is not safe for concurrent use.
type Strategy struct {
	rng *rand.Rand
}

// NewStrategy returns a strategy drawing from rng, or from a time-seeded
// source when rng is nil.
func NewStrategy(rng *rand.Rand) *Strategy {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Strategy{rng: rng}
}

// SelectMove returns the coordinate the CPU plays
func (s *Strategy) SelectMove(b *Board, objective int, cpu, opponent Symbol, difficulty int) (Coord, error) {
	d, err := s.Decide(b, objective, cpu, opponent, difficulty)
	return d.Coord, err
}

// Decide runs the tiers in order. Before acting on a winning or blocking
// candidate it rolls 1..100 and only acts when the roll is <= difficulty, so
// difficulty 100 always plays tactically and 0 never does.
func (s *Strategy) Decide(b *Board, objective int, cpu, opponent Symbol, difficulty int) (Decision, error) {
	difficulty = min(max(difficulty, MinDifficulty), MaxDifficulty)

	tiers := []struct {
		tier   Tier
		symbol Symbol
	}{
		{TierWin, cpu},
		{TierBlock, opponent},
	}
	for _, t := range tiers {
		candidates := TacticalCandidates(b, objective, t.symbol)
		if len(candidates) == 0 {
			continue
		}
		if s.rng.IntN(100)+1 > difficulty {
			continue
		}
		return Decision{Coord: candidates[s.rng.IntN(len(candidates))], Tier: t.tier}, nil
	}

	empty := b.EmptyCells()
	if len(empty) == 0 {
		return Decision{}, ErrBoardFull
	}
	return Decision{Coord: empty[s.rng.IntN(len(empty))], Tier: TierRandom}, nil
}

// TacticalCandidates returns every empty cell that would complete a run of
// objective for sym. A window qualifies when objective-1 of its cells hold
// sym and the remaining one is empty. Results are in row-major order.
func TacticalCandidates(b *Board, objective int, sym Symbol) []Coord {
	if sym == Empty || objective < 1 {
		return nil
	}

	found := make(map[Coord]struct{})
	walkLines(b.rows, b.cols, func(_ int, line []Coord) bool {
		for start := 0; start+objective <= len(line); start++ {
			own, open := 0, -1
			blocked := false
			for _, c := range line[start : start+objective] {
				switch b.Cell(c) {
				case sym:
					own++
				case Empty:
					if open >= 0 {
						blocked = true
					}
					open = c.Row*b.cols + c.Col
				default:
					blocked = true
				}
				if blocked {
					break
				}
			}
			if !blocked && open >= 0 && own == objective-1 {
				found[Coord{Row: open / b.cols, Col: open % b.cols}] = struct{}{}
			}
		}
		return true
	})
	return sortedCoords(found)
}
