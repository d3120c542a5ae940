package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"connect-x",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`connect-x - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Get K of your marks in a row (horizontal, vertical or diagonal) on an R x C
board before the CPU does. K, R and C come from the game mode.

AVAILABLE TOOLS:
- create_session: Create a new session (mode, difficulty)
- list_sessions: List active sessions
- start_game: Start a game in a session (mode, who moves first)
- place_mark: Place your mark at row/col - requires intent explanation
- cpu_move: Let the CPU take its turn
- board: Show the current board
- reset_game: Abandon the current game
- move_history: Moves of the current game in order
- list_modes: Board sizes and objectives
- list_replays: Saved replay slots
- save_replay: Save a finished game
- stats: Win/loss/tie record
- game_rules: Full rules and coordinate conventions

NOTE: The 'intent' parameter on place_mark serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mode_id": map[string]interface{}{
					"type":        "string",
					"description": "Mode ID such as connect4 or tictactoe (optional, see list_modes)",
				},
				"difficulty": map[string]interface{}{
					"type":        "integer",
					"description": "CPU difficulty 0-100 (optional, default from settings)",
					"minimum":     engine.MinDifficulty,
					"maximum":     engine.MaxDifficulty,
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start a new game in a session. Any game in progress is abandoned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"mode_id": map[string]interface{}{
					"type":        "string",
					"description": "Mode to play (optional, keeps the session's mode)",
				},
				"player_first": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether you move first (optional, a coin flip decides)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStartGame)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_mark",
		Description: "Place your mark on an empty cell. Rows and columns are 0-based from the top-left.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based, top to bottom)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based, left to right)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Why this cell: the line you are building or blocking",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handlePlaceMark)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cpu_move",
		Description: "Let the CPU take its turn",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleCPUMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Show the current board with row and column indices",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Abandon the current game. Nothing is recorded.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "List the moves of the current game in play order",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Data
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_modes",
		Description: "List the available game modes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListModes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_replays",
		Description: "List the replay slots",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListReplays)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_replay",
		Description: "Save the session's finished game into the first free replay slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Replay name (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSaveReplay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Show the win/loss/tie record",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the full rules, coordinate conventions and strategy hints",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(args map[string]interface{}, suffix string) string {
	id, _ := args["session_id"].(string)
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if modeID, _ := args["mode_id"].(string); modeID != "" {
		body["mode_id"] = modeID
	}
	if difficulty, ok := intArg(args, "difficulty"); ok {
		body["difficulty"] = difficulty
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nMode: %s\nDifficulty: %d\n\nCall start_game to begin.",
		session.ID, session.ModeID, session.Difficulty)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := engine.Pregame
		if s.GameState != nil {
			phase = s.GameState.Phase
		}
		result += fmt.Sprintf("- %s (Mode: %s, Phase: %s, Created: %s)\n",
			s.ID, s.ModeID, phase, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if modeID, _ := args["mode_id"].(string); modeID != "" {
		body["mode_id"] = modeID
	}
	if first, ok := args["player_first"].(bool); ok {
		body["player_first"] = first
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/start"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handlePlaceMark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col must be integers"), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	var result service.MoveResult
	body := map[string]int{"row": row, "col": col}
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleCPUMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/cpu-move"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var view service.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), "/board"), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoardView(&view)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), "/history"), nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListModes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var modes []service.ModeInfo
	if err := c.apiCall(ctx, "GET", "/api/modes", nil, &modes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatModes(modes)), nil
}

func (c *Client) handleListReplays(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Replays []replay.Summary `json:"replays"`
	}
	if err := c.apiCall(ctx, "GET", "/api/replays", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatReplays(response.Replays)), nil
}

func (c *Client) handleSaveReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	name, _ := args["name"].(string)

	var summary replay.Summary
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/replay"), map[string]string{"name": name}, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Saved to slot %d: %s", summary.Slot, summary.Text)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.StatsInfo
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameRules), nil
}

const gameRules = `connect-x - Complete Rules

GAME OBJECTIVE:
Be the first to get K of your marks in an unbroken line. Lines count
horizontally, vertically and along both diagonals.

THE BOARD:
- Each mode fixes the rows (R), columns (C) and objective (K)
- Coordinates are (row, col), 0-based, row 0 at the top, col 0 at the left
- '.' is an empty cell; your mark and the CPU's are shown in the legend

TURN ORDER:
1. start_game decides who moves first (or you choose with player_first)
2. Players alternate one mark per turn; any empty cell is legal
3. There is no gravity: marks stay where they are placed
4. When it is the CPU's turn, call cpu_move

ENDING:
- WON: you complete a line of K
- LOST: the CPU completes a line of K
- TIED: the board fills with no line of K
- A finished game is counted once in stats and can be saved with save_replay

THE CPU:
The CPU first looks for a cell that completes its own line, then for a cell
that blocks yours, and otherwise plays anywhere. Its difficulty (0-100) is the
chance it looks for those tactical moves at all.

STRATEGY HINTS:
- Central cells lie on more lines than edge cells
- Build two threats at once; the CPU can only block one
- Before every move, check whether the CPU has K-1 in a line with a gap

ERRORS:
- "cell occupied" or "out of bounds": pick another cell, your turn is kept
- "not your turn": call cpu_move first
- "game not in progress": call start_game

Good luck!`
