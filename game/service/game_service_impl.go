package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/store"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	saves    store.Store
	replays  ReplayPool
	stats    StatsTracker

	rng       *rand.Rand
	cpuDwell  time.Duration
	stepDwell time.Duration
	playbacks map[string]*playback

	mu sync.RWMutex
}

type playback struct {
	id       string
	slot     int
	summary  replay.Summary
	player   *engine.ReplayPlayer
	lastUsed time.Time
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithRand sets the source used for coin flips and for seeding CPU strategies
func WithRand(rng *rand.Rand) Option {
	return func(s *gameServiceImpl) { s.rng = rng }
}

// WithCpuDwell sets the pause hint returned before the CPU's move
func WithCpuDwell(d time.Duration) Option {
	return func(s *gameServiceImpl) { s.cpuDwell = d }
}

// WithStepDwell sets the pause hint between replay steps
func WithStepDwell(d time.Duration) Option {
	return func(s *gameServiceImpl) { s.stepDwell = d }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, saves store.Store, replays ReplayPool, tracker StatsTracker, opts ...Option) GameService {
	seed := uint64(time.Now().UnixNano())
	s := &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		saves:     saves,
		replays:   replays,
		stats:     tracker,
		rng:       rand.New(rand.NewPCG(seed, seed>>1|1)),
		cpuDwell:  engine.DefaultCpuDwell,
		stepDwell: engine.DefaultStepDwell,
		playbacks: make(map[string]*playback),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session in pregame
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode, err := s.resolveMode(ctx, req.ModeID)
	if err != nil {
		return nil, err
	}

	symbols := engine.DefaultSymbols()
	if req.Symbols != nil {
		symbols = *req.Symbols
	} else if symbols, err = s.loadSymbols(ctx); err != nil {
		return nil, err
	}
	if err := symbols.Validate(); err != nil {
		return nil, err
	}

	var difficulty int
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	} else if difficulty, err = store.Load[int](ctx, s.saves, store.Setting(store.SettingDifficulty)); err != nil {
		return nil, err
	}
	if difficulty < engine.MinDifficulty || difficulty > engine.MaxDifficulty {
		return nil, fmt.Errorf("%w: difficulty must be between %d and %d, got %d", ErrInvalidRequest, engine.MinDifficulty, engine.MaxDifficulty, difficulty)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", SessionSetup{Mode: mode, Symbols: symbols, Difficulty: difficulty})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.bind(sess)

	log.Info().Str("session", sess.ID).Str("mode", mode.ID).Int("difficulty", difficulty).Msg("session created")
	return s.info(sess), nil
}

// GetSession retrieves session information and touches its access time
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sess.ID)

	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// StartGame begins a new game in the session, abandoning any game in progress
func (s *gameServiceImpl) StartGame(ctx context.Context, sessionID string, opts StartOptions) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.bind(sess)

	modeID := opts.ModeID
	if modeID == "" {
		modeID = sess.Mode.ID
	}
	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return nil, err
	}

	playerFirst := s.rng.IntN(2) == 0
	if opts.PlayerFirst != nil {
		playerFirst = *opts.PlayerFirst
	}

	if err := sess.Game.Start(mode, playerFirst); err != nil {
		return nil, err
	}
	sess.Mode = mode
	s.sessions.UpdateLastAccessed(sess.ID)

	st := sess.Game.State()
	first := "You move first"
	if !playerFirst {
		first = "CPU moves first"
	}
	result := &MoveResult{
		Success:   true,
		GameState: &st,
		Board:     sess.Game.Board().Render(),
		Message:   fmt.Sprintf("%s started. %s.", mode.Title, first),
		Events: []GameEvent{{
			Type:      "game_started",
			Message:   fmt.Sprintf("%s: %dx%d, %d in a row", mode.Title, mode.Rows, mode.Cols, mode.Objective),
			Timestamp: time.Now(),
		}},
	}
	s.finishResult(sess, result)

	log.Info().Str("session", sess.ID).Str("game_id", st.GameID).Str("mode", mode.ID).Bool("player_first", playerFirst).Msg("game started")
	return result, nil
}

// ApplyPlayerMove places the player's mark at (row, col)
func (s *gameServiceImpl) ApplyPlayerMove(ctx context.Context, sessionID string, row, col int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.bind(sess)
	s.sessions.UpdateLastAccessed(sess.ID)

	c := engine.Coord{Row: row, Col: col}
	st, err := sess.Game.Apply(engine.Player, c)
	if err != nil {
		log.Debug().Err(err).Str("session", sess.ID).Stringer("coord", c).Msg("player move rejected")
		return nil, err
	}

	result := &MoveResult{
		Success:   true,
		Move:      st.LastMove,
		GameState: &st,
		Board:     sess.Game.Board().Render(),
		Events: []GameEvent{{
			Type:      "move",
			Message:   fmt.Sprintf("Player placed %s at %s", st.LastMove.Symbol, c),
			Timestamp: time.Now(),
			Coord:     &c,
		}},
	}
	s.finishResult(sess, result)

	return result, nil
}

// RequestCPUMove lets the CPU strategy pick and play its move
func (s *gameServiceImpl) RequestCPUMove(ctx context.Context, sessionID string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.bind(sess)
	s.sessions.UpdateLastAccessed(sess.ID)

	g := sess.Game
	if g.Phase() != engine.InProgress {
		return nil, fmt.Errorf("%w: phase is %s", engine.ErrGameNotInProgress, g.Phase())
	}
	if g.Turn() != engine.Cpu {
		return nil, fmt.Errorf("%w: waiting on %s", engine.ErrNotYourTurn, g.Turn())
	}

	symbols := g.Symbols()
	decision, err := sess.Strategy.Decide(g.Board(), g.Mode().Objective, symbols.Cpu, symbols.Player, sess.Difficulty)
	if err != nil {
		return nil, err
	}

	st, err := g.Apply(engine.Cpu, decision.Coord)
	if err != nil {
		return nil, fmt.Errorf("cpu move %s: %w", decision.Coord, err)
	}

	c := decision.Coord
	result := &MoveResult{
		Success:   true,
		Move:      st.LastMove,
		Tier:      decision.Tier,
		GameState: &st,
		Board:     g.Board().Render(),
		Events: []GameEvent{{
			Type:      "cpu_move",
			Message:   fmt.Sprintf("CPU placed %s at %s (%s)", st.LastMove.Symbol, c, decision.Tier),
			Timestamp: time.Now(),
			Coord:     &c,
		}},
	}
	s.finishResult(sess, result)

	log.Debug().Str("session", sess.ID).Stringer("coord", c).Str("tier", string(decision.Tier)).Msg("cpu moved")
	return result, nil
}

// Reset abandons the current game. Nothing is recorded for an unfinished game.
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Game.Reset()
	s.persist(sess.ID, "reset")

	st := sess.Game.State()
	return &st, nil
}

// GetBoard returns the session's current board
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*BoardView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	st := sess.Game.State()
	view := &BoardView{
		SessionID: sess.ID,
		GameState: &st,
	}

	mode := sess.Game.Mode()
	if mode.ID == "" {
		mode = sess.Mode
	}
	view.Rows, view.Cols, view.Objective = mode.Rows, mode.Cols, mode.Objective

	b := sess.Game.Board()
	if b == nil && !mode.Template && mode.Rows > 0 && mode.Cols > 0 {
		b = engine.NewBoard(mode)
	}
	if b != nil {
		view.Cells = b.Snapshot()
		view.Rendered = b.Render()
	}

	return view, nil
}

// GetHistory returns the moves of the current game in play order
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	g := sess.Game
	h := g.History()
	moves := h.Ordered(g.PlayerFirst())
	symbols := g.Symbols()
	for i := range moves {
		moves[i].Symbol = symbols.For(moves[i].Actor)
	}

	return &HistoryResponse{
		SessionID:   sess.ID,
		Moves:       moves,
		TotalMoves:  h.Len(),
		Turns:       h.Turns(),
		PlayerFirst: g.PlayerFirst(),
	}, nil
}

// SaveReplay stores the session's finished game in the first free replay slot
func (s *gameServiceImpl) SaveReplay(ctx context.Context, sessionID, name string) (*replay.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	r, err := engine.NewReplay(name, sess.Game)
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		r.Name = fmt.Sprintf("%s %s", r.Mode.Title, r.RecordedAt.Local().Format("2006-01-02 15:04"))
	}

	slot, err := s.replays.Save(ctx, r)
	if err != nil {
		return nil, err
	}

	return s.summary(ctx, slot)
}

// ListReplays returns every replay slot, empty ones included
func (s *gameServiceImpl) ListReplays(ctx context.Context) ([]replay.Summary, error) {
	return s.replays.List(ctx)
}

// DeleteReplay empties a replay slot
func (s *gameServiceImpl) DeleteReplay(ctx context.Context, slot int) error {
	return s.replays.Delete(ctx, slot)
}

// RenameReplay renames the replay in slot
func (s *gameServiceImpl) RenameReplay(ctx context.Context, slot int, name string) (*replay.Summary, error) {
	sum, err := s.replays.Rename(ctx, slot, name)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// PlayReplay opens a playback of the replay in slot, positioned before the first move
func (s *gameServiceImpl) PlayReplay(ctx context.Context, slot int) (*ReplayPlayback, error) {
	r, err := s.replays.Get(ctx, slot)
	if err != nil {
		return nil, err
	}
	if store.IsEmptyReplay(r) {
		return nil, fmt.Errorf("%w: slot %d is empty", replay.ErrSlotNotFound, slot)
	}

	player, err := engine.NewPlayer(r)
	if err != nil {
		return nil, err
	}

	sum, err := s.summary(ctx, slot)
	if err != nil {
		return nil, err
	}

	pb := &playback{
		id:       uuid.NewString(),
		slot:     slot,
		summary:  *sum,
		player:   player,
		lastUsed: time.Now(),
	}

	s.mu.Lock()
	s.playbacks[pb.id] = pb
	s.mu.Unlock()

	total := r.History().Len()
	log.Info().Str("playback", pb.id).Int("slot", slot).Int("steps", total).Msg("replay playback opened")

	return &ReplayPlayback{
		ID:          pb.id,
		Slot:        slot,
		Replay:      pb.summary,
		TotalSteps:  total,
		StepDwellMS: s.stepDwell.Milliseconds(),
		Frame: engine.Frame{
			Total: total,
			State: player.State(),
			Board: player.Board().Render(),
		},
	}, nil
}

// StepReplay applies the next recorded move of a playback. Once the moves
// run out every further step returns the final frame with Exhausted set.
func (s *gameServiceImpl) StepReplay(ctx context.Context, playbackID string) (*ReplayFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pb, ok := s.playbacks[playbackID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlaybackNotFound, playbackID)
	}

	frame, err := pb.player.Step()
	if err != nil {
		return nil, err
	}
	pb.lastUsed = time.Now()
	if errors.Is(frame.Err(), engine.ErrReplayExhausted) {
		log.Debug().Str("playback", pb.id).Int("slot", pb.slot).Msg("replay exhausted, holding final frame")
	}

	return &ReplayFrame{
		PlaybackID:  pb.id,
		Slot:        pb.slot,
		StepDwellMS: s.stepDwell.Milliseconds(),
		Frame:       frame,
	}, nil
}

// CleanupPlaybacks drops playbacks not stepped within maxAge
func (s *gameServiceImpl) CleanupPlaybacks(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, pb := range s.playbacks {
		if pb.lastUsed.Before(cutoff) {
			delete(s.playbacks, id)
			removed++
		}
	}
	return removed
}

// GetStats returns the win/loss/tie record
func (s *gameServiceImpl) GetStats(ctx context.Context) (*StatsInfo, error) {
	t := s.stats.Snapshot()
	return &StatsInfo{Wins: t.Wins, Losses: t.Losses, Ties: t.Ties, Played: t.Played()}, nil
}

// ResetStats zeroes the record
func (s *gameServiceImpl) ResetStats(ctx context.Context) error {
	return s.stats.Reset(ctx)
}

// GetSymbols returns the symbols new sessions use
func (s *gameServiceImpl) GetSymbols(ctx context.Context) (engine.SymbolPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadSymbols(ctx)
}

// SetSymbols changes the symbols new sessions use. Existing sessions keep theirs.
func (s *gameServiceImpl) SetSymbols(ctx context.Context, symbols engine.SymbolPair) (engine.SymbolPair, error) {
	if err := symbols.Validate(); err != nil {
		return engine.SymbolPair{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.Save(ctx, s.saves, store.Setting(store.SettingPlayerSymbol), string(symbols.Player)); err != nil {
		return engine.SymbolPair{}, err
	}
	if err := store.Save(ctx, s.saves, store.Setting(store.SettingEnemySymbol), string(symbols.Cpu)); err != nil {
		return engine.SymbolPair{}, err
	}
	return symbols, nil
}

// ListModes returns the catalog with the user's custom mode in place of the template
func (s *gameServiceImpl) ListModes(ctx context.Context) ([]*ModeInfo, error) {
	modes, err := s.configs.ListModes()
	if err != nil {
		return nil, err
	}

	custom, err := store.LoadCustomMode(ctx, s.saves)
	if err != nil {
		return nil, err
	}
	for i, m := range modes {
		if m.ID == engine.CustomModeID {
			modes[i] = &ModeInfo{
				ID:          custom.ID,
				Title:       custom.Title,
				Description: custom.Description,
				Rows:        custom.Rows,
				Cols:        custom.Cols,
				Objective:   custom.Objective,
				Template:    custom.Template,
				Builtin:     m.Builtin,
			}
		}
	}
	return modes, nil
}

// GetMode returns a mode by ID
func (s *gameServiceImpl) GetMode(ctx context.Context, modeID string) (*engine.GameMode, error) {
	mode, err := s.resolveMode(ctx, modeID)
	if err != nil {
		return nil, err
	}
	return &mode, nil
}

// SaveCustomMode validates and stores the user-defined mode
func (s *gameServiceImpl) SaveCustomMode(ctx context.Context, mode engine.GameMode) (*engine.GameMode, error) {
	mode.ID = engine.CustomModeID
	mode.Template = false
	if mode.Title == "" {
		mode.Title = engine.CustomTemplate().Title
	}
	if err := engine.ValidateMode(mode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := store.SaveCustomMode(ctx, s.saves, mode); err != nil {
		return nil, err
	}
	log.Info().Int("rows", mode.Rows).Int("cols", mode.Cols).Int("objective", mode.Objective).Msg("custom mode saved")
	return &mode, nil
}

// SaveMode writes a mode file under mode.ID. The custom ID is routed to
// SaveCustomMode; built-in IDs are rejected.
func (s *gameServiceImpl) SaveMode(ctx context.Context, mode engine.GameMode) (*engine.GameMode, error) {
	if mode.ID == engine.CustomModeID {
		return s.SaveCustomMode(ctx, mode)
	}
	if _, builtin := engine.BuiltinMode(mode.ID); builtin {
		return nil, fmt.Errorf("%w: %s is a built-in mode", ErrInvalidRequest, mode.ID)
	}
	mode.Template = false
	if err := engine.ValidateMode(mode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := s.configs.SaveMode(&mode); err != nil {
		return nil, err
	}
	return &mode, nil
}

// session looks a session up by ID
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

// bind attaches the stats hook and a CPU strategy to sessions that lack
// them, such as sessions restored from disk. Callers hold the write lock.
func (s *gameServiceImpl) bind(sess *Session) {
	if sess.Strategy == nil {
		sess.Strategy = engine.NewStrategy(rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64())))
	}
	if sess.hooked {
		return
	}
	id := sess.ID
	sess.Game.OnEnd(func(ev engine.GameEnded) {
		if err := s.stats.Record(context.Background(), ev); err != nil {
			log.Error().Err(err).Str("session", id).Str("game_id", ev.GameID).Msg("failed to record stats")
		}
		log.Info().Str("session", id).Str("game_id", ev.GameID).Str("outcome", string(ev.Outcome)).Msg("game over")
	})
	sess.hooked = true
}

// finishResult fills in the message, the terminal event and the CPU dwell
// hint, then persists the session
func (s *gameServiceImpl) finishResult(sess *Session, result *MoveResult) {
	st := result.GameState
	result.Message = joinMessage(result.Message, outcomeMessage(st))

	if st.Phase.IsTerminal() {
		result.Events = append(result.Events, GameEvent{
			Type:      "game_over",
			Message:   outcomeMessage(st),
			Timestamp: time.Now(),
		})
	}
	if st.Phase == engine.InProgress && st.Turn == engine.Cpu {
		result.CpuDwellMS = s.cpuDwell.Milliseconds()
	}

	s.persist(sess.ID, "move")
}

func (s *gameServiceImpl) persist(id, after string) {
	if err := s.sessions.Save(id); err != nil {
		log.Warn().Err(err).Str("session", id).Str("after", after).Msg("failed to persist session")
	}
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	st := sess.Game.State()
	mode := sess.Mode
	return &SessionInfo{
		ID:             sess.ID,
		ModeID:         mode.ID,
		Difficulty:     sess.Difficulty,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      &st,
		Mode:           &mode,
	}
}

func (s *gameServiceImpl) summary(ctx context.Context, slot int) (*replay.Summary, error) {
	list, err := s.replays.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sum := range list {
		if sum.Slot == slot {
			return &sum, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", replay.ErrSlotNotFound, slot)
}

// resolveMode maps a mode ID to a mode. The empty ID is the default mode and
// "custom" is whatever the user last saved.
func (s *gameServiceImpl) resolveMode(ctx context.Context, id string) (engine.GameMode, error) {
	switch id {
	case "":
		if def := s.configs.GetDefault(); def != nil {
			return *def, nil
		}
		return engine.GameMode{}, fmt.Errorf("%w: no default mode", ErrModeNotFound)
	case engine.CustomModeID:
		return store.LoadCustomMode(ctx, s.saves)
	}

	mode, err := s.configs.LoadMode(id)
	if err != nil {
		return engine.GameMode{}, err
	}
	return *mode, nil
}

func (s *gameServiceImpl) loadSymbols(ctx context.Context) (engine.SymbolPair, error) {
	player, err := store.Load[string](ctx, s.saves, store.Setting(store.SettingPlayerSymbol))
	if err != nil {
		return engine.SymbolPair{}, err
	}
	cpu, err := store.Load[string](ctx, s.saves, store.Setting(store.SettingEnemySymbol))
	if err != nil {
		return engine.SymbolPair{}, err
	}
	return engine.SymbolPair{Player: engine.Symbol(player), Cpu: engine.Symbol(cpu)}, nil
}

func outcomeMessage(st *engine.GameState) string {
	switch st.Phase {
	case engine.Won:
		return "You win!"
	case engine.Lost:
		return "The CPU wins."
	case engine.Tied:
		return "It's a tie."
	case engine.InProgress:
		if st.Turn == engine.Player {
			return "Your turn."
		}
		return "CPU's turn."
	}
	return ""
}

func joinMessage(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
