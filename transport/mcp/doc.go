// Package mcp exposes connect-x to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the API server, and the JSON response is turned into plain text with the
// board drawn as a grid with row and column indices.
//
// MCP Tools:
//   - create_session, list_sessions, start_game
//   - place_mark, cpu_move, board, reset_game, move_history
//   - list_modes, list_replays, save_replay, stats, game_rules
//
// Transport Modes:
//
// The same server can be served over stdio for local agents or mounted on
// the HTTP server at /mcp.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
