// Package engine implements the rules of connect-K-in-a-row games.
//
// The package provides:
//   - Board, a fixed rows x cols grid of symbols with legality checks
//   - CheckWin and CheckTie, which scan rows, columns and both diagonals
//   - Game, the turn state machine (Pregame, InProgress, Won, Lost, Tied)
//   - Strategy, the CPU opponent (win, then block, then random)
//   - Replay and ReplayPlayer, which record and re-simulate finished games
//
// Game Rules:
//
// A GameMode fixes the board shape and the objective K. Two sides, the
// player and the CPU, alternate placing their symbol on an empty cell. The
// first side to hold K consecutive cells along any row, column or diagonal
// wins. A full board with no such run is a tie. The win check always runs
// before the tie check, so a move that fills the board and completes a run
// is a win.
//
// Usage:
//
//	mode, _ := engine.BuiltinMode("connect4")
//	game, err := engine.NewGame(engine.DefaultSymbols())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := game.Start(mode, true); err != nil {
//		log.Fatal(err)
//	}
//
//	state, err := game.Apply(engine.Player, engine.Coord{Row: 5, Col: 3})
//	if errors.Is(err, engine.ErrIllegalMove) {
//		// rejected, nothing changed
//	}
//
//	cpu := engine.NewStrategy(nil)
//	c, _ := cpu.SelectMove(game.Board(), mode.Objective, "O", "X", engine.DefaultDifficulty)
//	state, err = game.Apply(engine.Cpu, c)
//
// Game is single-goroutine. Callers that share a game across goroutines
// must serialize access themselves.
package engine
