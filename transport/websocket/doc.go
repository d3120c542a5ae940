// Package websocket pushes live board updates to browsers.
//
// A central Hub owns every connection. Clients attach to a channel ID given
// as a query parameter: a session ID for live games, or a playback ID to
// watch a replay. The hub never reads commands from clients; moves go
// through the REST API, which then broadcasts.
//
// Message Protocol:
//
// Outgoing messages are JSON objects with session_id and event:
//   - board_update: game_state and the rendered board after any change
//   - game_over: sent right after the board_update of a terminal move
//   - replay_frame: one engine.Frame in data
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// Register, unregister and broadcast requests are channel sends handled by
// the Run goroutine, which is the only code touching the client map.
// Broadcasts never block the caller; when the queue is full the message is
// dropped and logged.
package websocket
