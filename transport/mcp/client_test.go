package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.StatsInfo{Wins: 3, Losses: 1, Ties: 2, Played: 6})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var stats service.StatsInfo
	if err := client.apiCall(context.Background(), "GET", "/api/stats", nil, &stats); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if stats.Wins != 3 || stats.Played != 6 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}

	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_apiCall_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "illegal move: cell occupied",
			"code":  409,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "POST", "/api/sessions/s1/move", map[string]int{"row": 0, "col": 0}, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 409 response")
	}
	if err.Error() != "illegal move: cell occupied" {
		t.Errorf("Expected server message, got: %v", err)
	}
}

func TestClient_createSession(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)

		resp := service.SessionInfo{
			ID:         "test-session-123",
			ModeID:     "tictactoe",
			Difficulty: 40,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{
		"mode_id":    "tictactoe",
		"difficulty": float64(40),
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "test-session-123") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}

	if body["mode_id"] != "tictactoe" {
		t.Errorf("Expected mode_id forwarded, got %v", body["mode_id"])
	}
	if body["difficulty"] != float64(40) {
		t.Errorf("Expected difficulty forwarded, got %v", body["difficulty"])
	}
}

func TestClient_placeMark(t *testing.T) {
	var path string
	var body map[string]int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)

		resp := service.MoveResult{
			Success: true,
			Move:    &engine.Move{Actor: engine.Player, Coord: engine.Coord{Row: 1, Col: 2}, Symbol: "X"},
			GameState: &engine.GameState{
				Phase:     engine.InProgress,
				Turn:      engine.Cpu,
				MoveCount: 1,
				Symbols:   engine.DefaultSymbols(),
			},
			Board:   []string{"...", "..X", "..."},
			Message: "CPU's turn.",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handlePlaceMark(context.Background(), callRequest("place_mark", map[string]interface{}{
		"session_id": "abc",
		"row":        float64(1),
		"col":        float64(2),
		"intent":     "take the center column",
	}))
	if err != nil {
		t.Fatalf("placeMark failed: %v", err)
	}

	if path != "/api/sessions/abc/move" {
		t.Errorf("Expected move path, got %s", path)
	}
	if body["row"] != 1 || body["col"] != 2 {
		t.Errorf("Expected row 1 col 2, got %v", body)
	}

	text := resultText(t, result)
	for _, want := range []string{"CPU's turn.", "player placed X at (1,2)", "cpu_move"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_placeMark_BadArgs(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handlePlaceMark(context.Background(), callRequest("place_mark", map[string]interface{}{
		"session_id": "abc",
		"row":        "one",
	}))
	if err != nil {
		t.Fatalf("placeMark returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error for non-numeric row")
	}
}

func TestClient_placeMark_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "illegal move: not your turn", "code": 409})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handlePlaceMark(context.Background(), callRequest("place_mark", map[string]interface{}{
		"session_id": "abc",
		"row":        float64(0),
		"col":        float64(0),
	}))
	if err != nil {
		t.Fatalf("placeMark returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "not your turn") {
		t.Errorf("Expected server message, got: %s", text)
	}
}

func TestClient_listReplays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"slots": 2,
			"replays": []replay.Summary{
				{Slot: 1, Name: "Opening", Text: "Opening - Tic-Tac-Toe - won in 3 turns"},
				{Slot: 2, Empty: true},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleListReplays(context.Background(), callRequest("list_replays", nil))
	if err != nil {
		t.Fatalf("listReplays failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Opening - Tic-Tac-Toe") {
		t.Errorf("Expected replay text, got: %s", text)
	}
	if !strings.Contains(text, "2. (empty)") {
		t.Errorf("Expected empty slot, got: %s", text)
	}
}

func TestFormatGrid(t *testing.T) {
	got := formatGrid([]string{"X.O", "..."})
	want := "      0  1  2\n  0   X  .  O\n  1   .  .  .\n"
	if got != want {
		t.Errorf("formatGrid mismatch\nwant:\n%q\ngot:\n%q", want, got)
	}

	if got := formatGrid(nil); !strings.Contains(got, "no board") {
		t.Errorf("Expected placeholder for empty board, got %q", got)
	}
}

func TestFormatGameState(t *testing.T) {
	state := &engine.GameState{
		Phase:     engine.InProgress,
		Turn:      engine.Player,
		Mode:      engine.GameMode{ID: "connect4", Title: "Connect Four", Rows: 6, Cols: 7, Objective: 4},
		Symbols:   engine.DefaultSymbols(),
		MoveCount: 5,
	}

	result := formatGameState(state)
	for _, want := range []string{"Phase: in_progress", "Connect Four (6x7, 4 in a row)", "You: X  CPU: O", "Moves: 5", "Turn: player"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in %s", want, result)
		}
	}
}

func TestFormatGameState_Won(t *testing.T) {
	state := &engine.GameState{
		Phase:       engine.Won,
		Winner:      engine.Player,
		WinningLine: []engine.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}},
	}

	result := formatGameState(state)
	if !strings.Contains(result, "Winning line: (0,0) (1,1) (2,2)") {
		t.Errorf("Expected winning line, got %s", result)
	}
	if strings.Contains(result, "Turn:") {
		t.Errorf("Finished game should not show a turn, got %s", result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if result := formatGameState(nil); !strings.Contains(result, "start_game") {
		t.Errorf("Expected hint to start a game, got %s", result)
	}
}

func TestFormatHistory(t *testing.T) {
	history := &service.HistoryResponse{
		Moves: []engine.Move{
			{Actor: engine.Player, Coord: engine.Coord{Row: 1, Col: 1}, Symbol: "X"},
			{Actor: engine.Cpu, Coord: engine.Coord{Row: 0, Col: 0}, Symbol: "O"},
		},
		TotalMoves:  2,
		Turns:       1,
		PlayerFirst: true,
	}

	result := formatHistory(history)
	if !strings.Contains(result, "Player first") {
		t.Errorf("Expected first mover, got %s", result)
	}
	if !strings.Contains(result, "2. cpu    O (0,0)") {
		t.Errorf("Expected CPU move line, got %s", result)
	}

	if result := formatHistory(&service.HistoryResponse{}); result != "No moves yet.\n" {
		t.Errorf("Unexpected empty history: %q", result)
	}
}

func TestFormatModes(t *testing.T) {
	result := formatModes([]service.ModeInfo{
		{ID: "tictactoe", Title: "Tic-Tac-Toe", Rows: 3, Cols: 3, Objective: 3, Builtin: true},
		{ID: "custom", Title: "Custom", Template: true},
	})

	if !strings.Contains(result, "tictactoe: Tic-Tac-Toe, 3x3, 3 in a row") {
		t.Errorf("Expected mode line, got %s", result)
	}
	if !strings.Contains(result, "custom: Custom (not configured)") {
		t.Errorf("Expected template line, got %s", result)
	}
}

func TestClient_handleGameRules(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameRules(context.Background(), callRequest("game_rules", nil))
	if err != nil {
		t.Fatalf("handleGameRules failed: %v", err)
	}

	text := resultText(t, result)
	expectedContent := []string{
		"connect-x - Complete Rules",
		"GAME OBJECTIVE:",
		"THE BOARD:",
		"TURN ORDER:",
		"ENDING:",
		"THE CPU:",
		"STRATEGY HINTS:",
	}

	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in rules", content)
		}
	}
}
