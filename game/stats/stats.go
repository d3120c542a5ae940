package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/store"
)

// Counter names as stored in the save file
const (
	Wins   = "Wins"
	Losses = "Losses"
	Ties   = "Ties"
)

// Totals is a point-in-time copy of the counters
type Totals struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Played is the number of finished games
func (t Totals) Played() int { return t.Wins + t.Losses + t.Ties }

// Statistics tracks finished-game outcomes and persists them to a store.Store
type Statistics struct {
	store  store.Store
	mu     sync.Mutex
	totals Totals
	seen   map[string]bool
}

// Load reads the counters from s
func Load(ctx context.Context, s store.Store) (*Statistics, error) {
	st := &Statistics{store: s, seen: make(map[string]bool)}
	for name, dst := range st.fields() {
		v, err := store.Load[int](ctx, s, store.Stat(name))
		if err != nil {
			return nil, fmt.Errorf("load stats: %w", err)
		}
		*dst = v
	}
	return st, nil
}

// Record counts one finished game. A game ID is only ever counted once.
func (s *Statistics) Record(ctx context.Context, ev engine.GameEnded) error {
	var name string
	switch ev.Outcome {
	case engine.Won:
		name = Wins
	case engine.Lost:
		name = Losses
	case engine.Tied:
		name = Ties
	default:
		return fmt.Errorf("record stats: outcome %q is not terminal", ev.Outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.GameID != "" && s.seen[ev.GameID] {
		return nil
	}

	dst := s.fields()[name]
	*dst++
	if err := store.Save(ctx, s.store, store.Stat(name), *dst); err != nil {
		*dst--
		return err
	}
	if ev.GameID != "" {
		s.seen[ev.GameID] = true
	}

	log.Info().
		Str("game_id", ev.GameID).
		Str("mode", ev.Mode.ID).
		Str("outcome", string(ev.Outcome)).
		Int("wins", s.totals.Wins).
		Int("losses", s.totals.Losses).
		Int("ties", s.totals.Ties).
		Msg("game recorded")
	return nil
}

// Snapshot returns the current counters
func (s *Statistics) Snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Reset zeroes every counter
func (s *Statistics) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, dst := range s.fields() {
		if err := s.store.Delete(ctx, store.Stat(name)); err != nil {
			return fmt.Errorf("reset stats: %w", err)
		}
		*dst = 0
	}
	log.Info().Msg("stats reset")
	return nil
}

func (s *Statistics) fields() map[string]*int {
	return map[string]*int{
		Wins:   &s.totals.Wins,
		Losses: &s.totals.Losses,
		Ties:   &s.totals.Ties,
	}
}
