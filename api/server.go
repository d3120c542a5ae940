package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/service"
	"github.com/wricardo/connect-x/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/start", s.handleStartGame).Methods("POST")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/cpu-move", s.handleCPUMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/replay", s.handleSaveReplay).Methods("POST")

	// Replays
	api.HandleFunc("/replays", s.handleListReplays).Methods("GET")
	api.HandleFunc("/replays/{slot:[0-9]+}", s.handleRenameReplay).Methods("PATCH")
	api.HandleFunc("/replays/{slot:[0-9]+}", s.handleDeleteReplay).Methods("DELETE")
	api.HandleFunc("/replays/{slot:[0-9]+}/play", s.handlePlayReplay).Methods("POST")
	api.HandleFunc("/playbacks/{id}/step", s.handleStepReplay).Methods("POST")

	// Stats and settings
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/stats", s.handleResetStats).Methods("DELETE")
	api.HandleFunc("/settings/symbols", s.handleGetSymbols).Methods("GET")
	api.HandleFunc("/settings/symbols", s.handleSetSymbols).Methods("PUT")

	// Modes
	api.HandleFunc("/modes", s.handleListModes).Methods("GET")
	api.HandleFunc("/modes/custom", s.handleSaveCustomMode).Methods("PUT")
	api.HandleFunc("/modes/{id}", s.handleGetMode).Methods("GET")
	api.HandleFunc("/modes/{id}", s.handleSaveMode).Methods("PUT")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// respondErr writes err with the status statusFor picks
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrModeNotFound),
		errors.Is(err, service.ErrPlaybackNotFound),
		errors.Is(err, replay.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, engine.ErrInvalidSymbols),
		errors.Is(err, engine.ErrModeNotPlayable),
		errors.Is(err, replay.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrIllegalMove),
		errors.Is(err, engine.ErrGameNotFinished),
		errors.Is(err, engine.ErrReplayPoolFull),
		errors.Is(err, replay.ErrAlreadySaved):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decodeBody reads an optional JSON body into v. An empty body is not an error.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func slotVar(r *http.Request) (int, error) {
	slot, err := strconv.Atoi(mux.Vars(r)["slot"])
	if err != nil {
		return 0, fmt.Errorf("%w: bad slot", service.ErrInvalidRequest)
	}
	return slot, nil
}

// broadcast pushes a move result to WebSocket clients of the session
func (s *Server) broadcast(sessionID string, result *service.MoveResult) {
	if s.hub == nil || result == nil {
		return
	}
	s.hub.BroadcastBoard(sessionID, result.GameState, result.Board)
	for _, ev := range result.Events {
		// BroadcastBoard already announced the terminal state
		if ev.Type == websocket.EventGameOver {
			continue
		}
		s.hub.BroadcastEvent(sessionID, ev.Type, ev)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return
	modeID := query.Get("mode")

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	if modeID != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if sess.ModeID == modeID {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}
	total := len(sessions)

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var opts service.StartOptions
	if err := decodeBody(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.StartGame(r.Context(), sessionID, opts)
	if err != nil {
		respondErr(w, err)
		return
	}

	s.broadcast(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	result, err := s.service.ApplyPlayerMove(r.Context(), sessionID, *req.Row, *req.Col)
	if err != nil {
		log.Debug().Err(err).Str("session", sessionID).Int("row", *req.Row).Int("col", *req.Col).Msg("move rejected")
		respondErr(w, err)
		return
	}

	s.broadcast(sessionID, result)
	log.Info().Str("session", sessionID).Int("row", *req.Row).Int("col", *req.Col).Str("phase", string(result.GameState.Phase)).Msg("player move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCPUMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.RequestCPUMove(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}

	s.broadcast(sessionID, result)
	log.Info().Str("session", sessionID).Stringer("coord", result.Move.Coord).Str("tier", string(result.Tier)).Str("phase", string(result.GameState.Phase)).Msg("cpu move")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetBoard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}

	if s.hub != nil {
		var rendered []string
		if board, err := s.service.GetBoard(r.Context(), sessionID); err == nil {
			rendered = board.Rendered
		}
		s.hub.BroadcastBoard(sessionID, state, rendered)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	if r.URL.Query().Get("order") == "desc" {
		moves := make([]engine.Move, len(history.Moves))
		for i, m := range history.Moves {
			moves[len(moves)-1-i] = m
		}
		history.Moves = moves
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleSaveReplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := s.service.SaveReplay(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, summary)
}

// Replay Handlers

func (s *Server) handleListReplays(w http.ResponseWriter, r *http.Request) {
	replays, err := s.service.ListReplays(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slots":   len(replays),
		"replays": replays,
	})
}

func (s *Server) handleRenameReplay(w http.ResponseWriter, r *http.Request) {
	slot, err := slotVar(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := s.service.RenameReplay(r.Context(), slot, req.Name)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteReplay(w http.ResponseWriter, r *http.Request) {
	slot, err := slotVar(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	if err := s.service.DeleteReplay(r.Context(), slot); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Replay slot %d cleared", slot),
	})
}

func (s *Server) handlePlayReplay(w http.ResponseWriter, r *http.Request) {
	slot, err := slotVar(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	playback, err := s.service.PlayReplay(r.Context(), slot)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, playback)
}

func (s *Server) handleStepReplay(w http.ResponseWriter, r *http.Request) {
	frame, err := s.service.StepReplay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastFrame(frame.PlaybackID, frame)
	}

	respondJSON(w, http.StatusOK, frame)
}

// Stats and Settings Handlers

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetStats(r.Context()); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Statistics reset"})
}

func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.service.GetSymbols(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleSetSymbols(w http.ResponseWriter, r *http.Request) {
	var req engine.SymbolPair
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbols, err := s.service.SetSymbols(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, symbols)
}

// Mode Handlers

func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	modes, err := s.service.ListModes(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, modes)
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	modeID := strings.TrimSuffix(mux.Vars(r)["id"], ".json")

	mode, err := s.service.GetMode(r.Context(), modeID)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mode)
}

func (s *Server) handleSaveCustomMode(w http.ResponseWriter, r *http.Request) {
	var mode engine.GameMode
	if err := json.NewDecoder(r.Body).Decode(&mode); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.service.SaveCustomMode(r.Context(), mode)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleSaveMode(w http.ResponseWriter, r *http.Request) {
	var mode engine.GameMode
	if err := json.NewDecoder(r.Body).Decode(&mode); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode.ID = strings.TrimSuffix(mux.Vars(r)["id"], ".json")

	saved, err := s.service.SaveMode(r.Context(), mode)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, saved)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	if playbackID := query.Get("playback"); playbackID != "" {
		s.hub.ServeWS(w, r, playbackID)
		return
	}

	sessionID := query.Get("session")
	if sessionID == "" {
		http.Error(w, "session or playback parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
