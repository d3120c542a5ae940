// Command selfplay pits the CPU strategy against itself. The "player" side
// and the "cpu" side each get their own difficulty, first move alternates
// between games, and the tally is printed at the end.
//
// With --db the tally is kept in a SQLite save store across runs and the
// last game of the run is saved into the replay pool of that store, where
// the server can play it back.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/connect-x/game/config"
	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/stats"
	"github.com/wricardo/connect-x/game/store"
)

// Options configures a simulation run
type Options struct {
	ModeID           string
	Games            int
	PlayerDifficulty int
	CpuDifficulty    int
	Seed             uint64
	ReplayName       string
	ReplaySlots      int
}

// Result is the outcome of a simulation run
type Result struct {
	Mode       engine.GameMode
	Games      int
	Run        stats.Totals
	Stored     stats.Totals
	Tiers      map[engine.Tier]int
	TotalMoves int
	Last       *engine.Replay
	Slot       int
}

// simulate plays opts.Games games on mode and records them into st
func simulate(ctx context.Context, mode engine.GameMode, opts Options, st store.Store) (*Result, error) {
	if opts.Games < 1 {
		return nil, fmt.Errorf("games must be at least 1, got %d", opts.Games)
	}
	difficulty := map[engine.Actor]int{
		engine.Player: opts.PlayerDifficulty,
		engine.Cpu:    opts.CpuDifficulty,
	}
	for actor, d := range difficulty {
		if d < engine.MinDifficulty || d > engine.MaxDifficulty {
			return nil, fmt.Errorf("%s difficulty must be between %d and %d, got %d",
				actor, engine.MinDifficulty, engine.MaxDifficulty, d)
		}
	}

	tracker, err := stats.Load(ctx, st)
	if err != nil {
		return nil, err
	}

	game, err := engine.NewGame(engine.DefaultSymbols())
	if err != nil {
		return nil, err
	}

	result := &Result{
		Mode:  mode,
		Games: opts.Games,
		Tiers: make(map[engine.Tier]int),
	}

	var recordErr error
	game.OnEnd(func(ev engine.GameEnded) {
		switch ev.Outcome {
		case engine.Won:
			result.Run.Wins++
		case engine.Lost:
			result.Run.Losses++
		case engine.Tied:
			result.Run.Ties++
		}
		if err := tracker.Record(ctx, ev); err != nil && recordErr == nil {
			recordErr = err
		}
	})

	strategy := engine.NewStrategy(rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)))

	for i := 0; i < opts.Games; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := game.Start(mode, i%2 == 0); err != nil {
			return nil, err
		}

		for !game.IsOver() {
			actor := game.Turn()
			symbols := game.Symbols()
			decision, err := strategy.Decide(game.Board(), mode.Objective, symbols.For(actor), symbols.For(actor.Other()), difficulty[actor])
			if err != nil {
				return nil, fmt.Errorf("game %d: %w", i+1, err)
			}
			if _, err := game.Apply(actor, decision.Coord); err != nil {
				return nil, fmt.Errorf("game %d: %w", i+1, err)
			}
			result.Tiers[decision.Tier]++
			result.TotalMoves++
		}

		log.Debug().
			Int("game", i+1).
			Str("outcome", string(game.Phase())).
			Int("moves", game.History().Len()).
			Msg("game finished")
	}
	if recordErr != nil {
		return nil, recordErr
	}

	result.Stored = tracker.Snapshot()

	name := opts.ReplayName
	if name == "" {
		name = fmt.Sprintf("Selfplay %s %d vs %d", mode.Title, opts.PlayerDifficulty, opts.CpuDifficulty)
	}
	result.Last, err = engine.NewReplay(name, game)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// saveReplay puts the last game of a run into the pool. A full pool is
// reported but not fatal.
func saveReplay(ctx context.Context, pool *replay.Pool, result *Result) error {
	slot, err := pool.Save(ctx, result.Last)
	if errors.Is(err, engine.ErrReplayPoolFull) {
		log.Warn().Int("slots", pool.Slots()).Msg("replay pool is full, last game not saved")
		return nil
	}
	if err != nil {
		return err
	}
	result.Slot = slot
	return nil
}

func printResult(w io.Writer, r *Result, opts Options) {
	fmt.Fprintf(w, "Mode: %s (%dx%d, %d in a row)\n", r.Mode.Title, r.Mode.Rows, r.Mode.Cols, r.Mode.Objective)
	fmt.Fprintf(w, "Games: %d (player difficulty %d vs cpu difficulty %d)\n", r.Games, opts.PlayerDifficulty, opts.CpuDifficulty)
	fmt.Fprintf(w, "Player wins: %d (%.1f%%)\n", r.Run.Wins, percent(r.Run.Wins, r.Games))
	fmt.Fprintf(w, "CPU wins:    %d (%.1f%%)\n", r.Run.Losses, percent(r.Run.Losses, r.Games))
	fmt.Fprintf(w, "Ties:        %d (%.1f%%)\n", r.Run.Ties, percent(r.Run.Ties, r.Games))
	fmt.Fprintf(w, "Average moves: %.1f\n", float64(r.TotalMoves)/float64(r.Games))
	fmt.Fprintf(w, "Decisions: win %d, block %d, random %d\n",
		r.Tiers[engine.TierWin], r.Tiers[engine.TierBlock], r.Tiers[engine.TierRandom])

	if r.Stored != r.Run {
		fmt.Fprintf(w, "Stored record: %d played, %d/%d/%d\n",
			r.Stored.Played(), r.Stored.Wins, r.Stored.Losses, r.Stored.Ties)
	}
	if r.Slot > 0 {
		fmt.Fprintf(w, "Last game saved to replay slot %d: %s\n", r.Slot, r.Last.Summary())
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func run(ctx context.Context, w io.Writer, dbPath string, opts Options) error {
	modes, err := config.NewManager("")
	if err != nil {
		return err
	}
	mode, err := modes.LoadMode(opts.ModeID)
	if err != nil {
		return err
	}

	var st store.Store = store.NewMemoryStore()
	if dbPath != "" {
		sqlite, err := store.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open save store: %w", err)
		}
		defer sqlite.Close()
		st = sqlite
	}

	result, err := simulate(ctx, *mode, opts, st)
	if err != nil {
		return err
	}

	if dbPath != "" {
		if err := saveReplay(ctx, replay.NewPool(st, opts.ReplaySlots), result); err != nil {
			return fmt.Errorf("save replay: %w", err)
		}
	}

	printResult(w, result, opts)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "selfplay",
		Usage: "simulate CPU vs CPU games",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: config.DefaultModeID, Usage: "mode ID to play"},
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 100, Usage: "number of games"},
			&cli.IntFlag{Name: "player-difficulty", Value: engine.DefaultDifficulty, Usage: "difficulty of the player side (0-100)"},
			&cli.IntFlag{Name: "cpu-difficulty", Value: engine.DefaultDifficulty, Usage: "difficulty of the cpu side (0-100)"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed (default: time based)"},
			&cli.StringFlag{Name: "db", Usage: "SQLite save store to record stats and the last replay into", Sources: cli.EnvVars("SELFPLAY_DB")},
			&cli.StringFlag{Name: "name", Usage: "name of the saved replay"},
			&cli.IntFlag{Name: "replay-slots", Value: 5, Usage: "replay pool size"},
			&cli.BoolFlag{Name: "debug", Usage: "log every game"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
			if cmd.Bool("debug") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

			seed := cmd.Uint64("seed")
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			return run(ctx, os.Stdout, cmd.String("db"), Options{
				ModeID:           cmd.String("mode"),
				Games:            cmd.Int("games"),
				PlayerDifficulty: cmd.Int("player-difficulty"),
				CpuDifficulty:    cmd.Int("cpu-difficulty"),
				Seed:             seed,
				ReplayName:       cmd.String("name"),
				ReplaySlots:      cmd.Int("replay-slots"),
			})
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
