package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/store"
)

// DefaultSlots is the number of replay slots a pool has unless configured
const DefaultSlots = 5

var (
	ErrSlotNotFound = errors.New("replay slot not found")
	ErrAlreadySaved = errors.New("game already saved as a replay")
	ErrInvalidName  = errors.New("replay name must not be empty")
)

// Summary describes one slot of the pool
type Summary struct {
	Slot        int               `json:"slot"`
	Empty       bool              `json:"empty"`
	Name        string            `json:"name"`
	ModeID      string            `json:"mode_id,omitempty"`
	ModeTitle   string            `json:"mode_title,omitempty"`
	Turns       int               `json:"turns"`
	Outcome     engine.Phase      `json:"outcome,omitempty"`
	PlayerFirst bool              `json:"player_first"`
	Symbols     engine.SymbolPair `json:"symbols"`
	Text        string            `json:"text"`
}

// Pool is a fixed set of numbered replay slots backed by a store.Store.
// Slots are numbered 1..Slots and filled lowest-first.
type Pool struct {
	store store.Store
	slots int
	mu    sync.Mutex
}

// NewPool creates a pool with the given number of slots (DefaultSlots if <= 0)
func NewPool(s store.Store, slots int) *Pool {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Pool{store: s, slots: slots}
}

func (p *Pool) Slots() int { return p.slots }

// Save stores r in the first empty slot and returns the slot number
func (p *Pool) Save(ctx context.Context, r *engine.Replay) (int, error) {
	if r == nil || store.IsEmptyReplay(r) {
		return 0, fmt.Errorf("%w: replay has no moves", engine.ErrGameNotFinished)
	}
	if strings.TrimSpace(r.Name) == "" {
		return 0, ErrInvalidName
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	free := 0
	for slot := 1; slot <= p.slots; slot++ {
		existing, err := store.LoadReplay(ctx, p.store, slot)
		if err != nil {
			return 0, err
		}
		if store.IsEmptyReplay(existing) {
			if free == 0 {
				free = slot
			}
			continue
		}
		if r.GameID != "" && existing.GameID == r.GameID {
			return 0, fmt.Errorf("%w: slot %d", ErrAlreadySaved, slot)
		}
	}
	if free == 0 {
		return 0, engine.ErrReplayPoolFull
	}

	if err := store.SaveReplay(ctx, p.store, free, r); err != nil {
		return 0, err
	}
	log.Info().Int("slot", free).Str("name", r.Name).Str("mode", r.Mode.ID).Msg("replay saved")
	return free, nil
}

// List returns one summary per slot in slot order, empty slots included
func (p *Pool) List(ctx context.Context) ([]Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Summary, 0, p.slots)
	for slot := 1; slot <= p.slots; slot++ {
		r, err := store.LoadReplay(ctx, p.store, slot)
		if err != nil {
			log.Warn().Err(err).Int("slot", slot).Msg("unreadable replay slot, listing as empty")
			r = store.EmptyReplay()
		}
		out = append(out, summarize(slot, r))
	}
	return out, nil
}

// Get returns the replay in slot. Empty slots return the sentinel record.
func (p *Pool) Get(ctx context.Context, slot int) (*engine.Replay, error) {
	if err := p.checkSlot(slot); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return store.LoadReplay(ctx, p.store, slot)
}

// Delete resets slot to the empty sentinel
func (p *Pool) Delete(ctx context.Context, slot int) error {
	if err := p.checkSlot(slot); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Delete(ctx, store.Replay(slot)); err != nil {
		return fmt.Errorf("delete replay %d: %w", slot, err)
	}
	log.Info().Int("slot", slot).Msg("replay deleted")
	return nil
}

// Rename changes the name of the replay in slot
func (p *Pool) Rename(ctx context.Context, slot int, name string) (Summary, error) {
	if err := p.checkSlot(slot); err != nil {
		return Summary{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Summary{}, ErrInvalidName
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := store.LoadReplay(ctx, p.store, slot)
	if err != nil {
		return Summary{}, err
	}
	if store.IsEmptyReplay(r) {
		return Summary{}, fmt.Errorf("%w: slot %d is empty", ErrSlotNotFound, slot)
	}
	r.Name = name
	if err := store.SaveReplay(ctx, p.store, slot, r); err != nil {
		return Summary{}, err
	}
	return summarize(slot, r), nil
}

func (p *Pool) checkSlot(slot int) error {
	if slot < 1 || slot > p.slots {
		return fmt.Errorf("%w: %d (slots are 1..%d)", ErrSlotNotFound, slot, p.slots)
	}
	return nil
}

func summarize(slot int, r *engine.Replay) Summary {
	if store.IsEmptyReplay(r) {
		return Summary{Slot: slot, Empty: true, Name: store.EmptyReplayName, Symbols: r.Symbols, Text: store.EmptyReplayName}
	}
	return Summary{
		Slot:        slot,
		Name:        r.Name,
		ModeID:      r.Mode.ID,
		ModeTitle:   r.Mode.Title,
		Turns:       r.Turns(),
		Outcome:     r.Outcome,
		PlayerFirst: r.PlayerFirst,
		Symbols:     r.Symbols,
		Text:        r.Summary(),
	}
}
