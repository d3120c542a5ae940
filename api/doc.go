// Package api provides the HTTP REST API for connect-x.
//
// Endpoints (all under /api, JSON in and out):
//
// Sessions:
//   - POST /sessions - Create a session {mode_id, symbols, difficulty}
//   - GET /sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N&mode=id)
//   - GET /sessions/{id} - Get a session
//   - DELETE /sessions/{id} - Delete a session
//
// Play:
//   - POST /sessions/{id}/start - Start a game {mode_id, player_first}
//   - POST /sessions/{id}/move - Place the player's mark {row, col}
//   - POST /sessions/{id}/cpu-move - Let the CPU move
//   - GET /sessions/{id}/board - Current board
//   - POST /sessions/{id}/reset - Abandon the current game
//   - GET /sessions/{id}/history - Moves in play order (?order=desc)
//
// Replays:
//   - POST /sessions/{id}/replay - Save the finished game {name}
//   - GET /replays - List every slot
//   - PATCH /replays/{slot} - Rename {name}
//   - DELETE /replays/{slot} - Clear a slot
//   - POST /replays/{slot}/play - Open a playback
//   - POST /playbacks/{id}/step - Advance a playback by one move
//
// Other:
//   - GET, DELETE /stats
//   - GET, PUT /settings/symbols
//   - GET /modes, GET /modes/{id}, PUT /modes/{id}, PUT /modes/custom
//   - GET /health
//
// Live updates are served on /ws?session=<id> or /ws?playback=<id>.
// Every state change made through the API is broadcast to the hub.
//
// Error Handling:
//
// Errors are returned as JSON with a status picked by statusFor: 404 for
// unknown sessions, modes, slots and playbacks, 400 for malformed input,
// 409 for moves the rules reject and replay conflicts.
//
//	{
//	  "error": "illegal move: cell occupied",
//	  "code": 409
//	}
package api
