// Package service provides the business logic layer for Jigsaw Studio.
//
// The service package implements:
//   - Multi-session puzzle management
//   - Artwork generation and loading
//   - Drag, snap and scatter orchestration on top of the puzzle engine
//   - Tile outlines, cut tile images and scatter transitions
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level puzzle operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ThemeManager loads the preset artwork themes.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the puzzle engine. Each session owns one engine; every state change goes
// through the engine's Apply so the transports never touch tiles directly.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	themeMgr := config.NewManager("themes")
//	gameService := service.NewGameService(sessionMgr, themeMgr, artwork.NewProcedural())
//
//	info, err := gameService.CreateSession(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.Measure(ctx, info.ID, 1280, 800)
//	gameService.Generate(ctx, info.ID, service.GenerateRequest{ThemeID: "neon_city"})
//	gameService.Scatter(ctx, info.ID)
package service
