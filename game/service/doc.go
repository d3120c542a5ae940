// Package service provides the business logic layer for connect-x.
//
// The service package implements:
//   - Multi-session game management
//   - Mode resolution, including the user's custom mode
//   - Player moves and CPU turns
//   - Replay saving and step-wise playback
//   - Win/loss/tie statistics
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager owns the mode catalog. ReplayPool and StatsTracker are
// satisfied by the replay and stats packages.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns one engine.Game and one CPU strategy. The
// service attaches a game-over hook to every session it touches so finished
// games land in the statistics exactly once.
//
// Usage:
//
//	saves := store.NewMemoryStore()
//	tracker, _ := stats.Load(ctx, saves)
//	svc := service.NewGameService(session.NewManager(), configs, saves, replay.NewPool(saves, replay.DefaultSlots), tracker)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{ModeID: "connect4"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.StartGame(ctx, info.ID, service.StartOptions{})
//	if res.CpuDwellMS > 0 {
//		res, err = svc.RequestCPUMove(ctx, info.ID)
//	}
package service
