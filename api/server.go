package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/jigsaw-studio/game/artwork"
	"github.com/wricardo/jigsaw-studio/game/config"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/service"
	"github.com/wricardo/jigsaw-studio/game/session"
	"github.com/wricardo/jigsaw-studio/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
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
	s.router.Use(requestLogger)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Artwork
	api.HandleFunc("/sessions/{id}/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/sessions/{id}/image", s.handleLoadImage).Methods("POST")
	api.HandleFunc("/sessions/{id}/change", s.handleChangePuzzle).Methods("POST")

	// Play
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/measure", s.handleMeasure).Methods("POST")
	api.HandleFunc("/sessions/{id}/scatter", s.handleScatter).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/start", s.handleDragStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/move", s.handleDragMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/drag/release", s.handleDragRelease).Methods("POST")

	// Rendering
	api.HandleFunc("/sessions/{id}/tiles/{tile}/outline", s.handleTileOutline).Methods("GET")
	api.HandleFunc("/sessions/{id}/tiles/{tile}/mask.png", s.handleTileImage).Methods("GET")
	api.HandleFunc("/sessions/{id}/tiles/{tile}/piece.svg", s.handlePieceSVG).Methods("GET")
	api.HandleFunc("/sessions/{id}/guides", s.handleGuides).Methods("GET")
	api.HandleFunc("/sessions/{id}/transition", s.handleTransition).Methods("GET")

	// Themes
	api.HandleFunc("/themes", s.handleListThemes).Methods("GET")
	api.HandleFunc("/themes/{id}", s.handleGetTheme).Methods("GET")

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
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr picks the status from the error chain
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrThemeNotFound),
		errors.Is(err, service.ErrTileNotFound):
		return http.StatusNotFound
	case errors.Is(err, puzzle.ErrNoImage),
		errors.Is(err, puzzle.ErrNotMeasured),
		errors.Is(err, puzzle.ErrBusy),
		errors.Is(err, puzzle.ErrGenerating),
		errors.Is(err, service.ErrNoLayout):
		return http.StatusConflict
	case errors.Is(err, puzzle.ErrUnknownEvent),
		errors.Is(err, artwork.ErrEmptyPrompt),
		errors.Is(err, config.ErrInvalidTheme),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, artwork.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(err, artwork.ErrNoImage),
		errors.Is(err, artwork.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decodeBody reads an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func tileParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["tile"])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", service.ErrTileNotFound, mux.Vars(r)["tile"])
	}
	return id, nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.CreateSession(r.Context())
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

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
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

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

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

// Artwork Handlers

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Generate(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoadImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.LoadImage(r.Context(), mux.Vars(r)["id"], req.Image)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleChangePuzzle(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ChangePuzzle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Play Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Measure(r.Context(), mux.Vars(r)["id"], req.Width, req.Height)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Scatter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type dragRequest struct {
	TileID *int    `json:"tile_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func decodeDrag(w http.ResponseWriter, r *http.Request) (dragRequest, bool) {
	var req dragRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.TileID == nil {
		respondError(w, http.StatusBadRequest, "tile_id is required")
		return req, false
	}
	return req, true
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDrag(w, r)
	if !ok {
		return
	}

	result, err := s.service.DragStart(r.Context(), mux.Vars(r)["id"], *req.TileID)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDrag(w, r)
	if !ok {
		return
	}

	result, err := s.service.DragMove(r.Context(), mux.Vars(r)["id"], *req.TileID, req.X, req.Y)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDragRelease(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDrag(w, r)
	if !ok {
		return
	}

	result, err := s.service.DragRelease(r.Context(), mux.Vars(r)["id"], *req.TileID)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Rendering Handlers

func (s *Server) handleTileOutline(w http.ResponseWriter, r *http.Request) {
	tileID, err := tileParam(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	outline, err := s.service.TileOutline(r.Context(), mux.Vars(r)["id"], tileID)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, outline)
}

func (s *Server) handleTileImage(w http.ResponseWriter, r *http.Request) {
	tileID, err := tileParam(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	data, err := s.service.TileImage(r.Context(), mux.Vars(r)["id"], tileID)
	if err != nil {
		respondErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePieceSVG(w http.ResponseWriter, r *http.Request) {
	tileID, err := tileParam(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	doc, err := s.service.PieceSVG(r.Context(), mux.Vars(r)["id"], tileID)
	if err != nil {
		respondErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, doc)
}

func (s *Server) handleGuides(w http.ResponseWriter, r *http.Request) {
	guides, err := s.service.Guides(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(guides),
		"guides": guides,
	})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	fps := 0
	if fpsStr := r.URL.Query().Get("fps"); fpsStr != "" {
		f, err := strconv.Atoi(fpsStr)
		if err != nil || f <= 0 || f > 120 {
			respondError(w, http.StatusBadRequest, "fps must be between 1 and 120")
			return
		}
		fps = f
	}

	transition, err := s.service.Transition(r.Context(), mux.Vars(r)["id"], fps)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, transition)
}

// Theme Handlers

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.service.ListThemes(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, themes)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.service.GetTheme(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, theme)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket disabled", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r, info.ID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
