package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/service"
)

// formatGrid lays out rendered rows with row and column indices
func formatGrid(rendered []string) string {
	if len(rendered) == 0 {
		return "(no board)\n"
	}

	var sb strings.Builder
	cols := len([]rune(rendered[0]))

	sb.WriteString("    ")
	for c := 0; c < cols; c++ {
		sb.WriteString(fmt.Sprintf("%3d", c))
	}
	sb.WriteString("\n")

	for r, line := range rendered {
		sb.WriteString(fmt.Sprintf("%3d ", r))
		for _, cell := range line {
			sb.WriteString(fmt.Sprintf("%3c", cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game in progress. Call start_game to begin.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Phase: %s\n", state.Phase))
	if state.Mode.ID != "" {
		sb.WriteString(fmt.Sprintf("Mode: %s (%dx%d, %d in a row)\n",
			state.Mode.Title, state.Mode.Rows, state.Mode.Cols, state.Mode.Objective))
	}
	if state.Symbols.Player != engine.Empty {
		sb.WriteString(fmt.Sprintf("You: %s  CPU: %s\n", state.Symbols.Player, state.Symbols.Cpu))
	}
	sb.WriteString(fmt.Sprintf("Moves: %d\n", state.MoveCount))

	switch {
	case state.Phase == engine.InProgress:
		sb.WriteString(fmt.Sprintf("Turn: %s\n", state.Turn))
	case state.Phase.IsTerminal() && len(state.WinningLine) > 0:
		cells := make([]string, len(state.WinningLine))
		for i, c := range state.WinningLine {
			cells[i] = c.String()
		}
		sb.WriteString(fmt.Sprintf("Winning line: %s\n", strings.Join(cells, " ")))
	}
	return sb.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var sb strings.Builder

	sb.WriteString(result.Message)
	sb.WriteString("\n")
	if result.Move != nil {
		sb.WriteString(fmt.Sprintf("%s placed %s at %s", result.Move.Actor, result.Move.Symbol, result.Move.Coord))
		if result.Tier != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", result.Tier))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(formatGrid(result.Board))
	sb.WriteString("\n")
	sb.WriteString(formatGameState(result.GameState))

	if result.GameState != nil && result.GameState.Phase == engine.InProgress && result.GameState.Turn == engine.Cpu {
		sb.WriteString("\nCall cpu_move to let the CPU play.\n")
	}
	return sb.String()
}

func formatBoardView(view *service.BoardView) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Board %dx%d, %d in a row wins\n\n", view.Rows, view.Cols, view.Objective))
	sb.WriteString(formatGrid(view.Rendered))
	sb.WriteString("\n")
	sb.WriteString(formatGameState(view.GameState))
	return sb.String()
}

func formatHistory(history *service.HistoryResponse) string {
	if len(history.Moves) == 0 {
		return "No moves yet.\n"
	}

	var sb strings.Builder
	first := "CPU"
	if history.PlayerFirst {
		first = "Player"
	}
	sb.WriteString(fmt.Sprintf("Moves: %d (%d turns, %s first)\n\n", history.TotalMoves, history.Turns, first))
	for i, m := range history.Moves {
		sb.WriteString(fmt.Sprintf("%3d. %-6s %s %s\n", i+1, m.Actor, m.Symbol, m.Coord))
	}
	return sb.String()
}

func formatStats(stats *service.StatsInfo) string {
	return fmt.Sprintf("Played: %d\nWins: %d\nLosses: %d\nTies: %d\n",
		stats.Played, stats.Wins, stats.Losses, stats.Ties)
}

func formatReplays(replays []replay.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Replay slots (%d):\n\n", len(replays)))
	for _, r := range replays {
		if r.Empty {
			sb.WriteString(fmt.Sprintf("%2d. (empty)\n", r.Slot))
			continue
		}
		sb.WriteString(fmt.Sprintf("%2d. %s\n", r.Slot, r.Text))
	}
	return sb.String()
}

func formatModes(modes []service.ModeInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game modes (%d):\n\n", len(modes)))
	for _, m := range modes {
		if m.Template {
			sb.WriteString(fmt.Sprintf("- %s: %s (not configured)\n", m.ID, m.Title))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s, %dx%d, %d in a row\n", m.ID, m.Title, m.Rows, m.Cols, m.Objective))
		if m.Description != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", m.Description))
		}
	}
	return sb.String()
}
