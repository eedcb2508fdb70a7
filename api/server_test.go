package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/jigsaw-studio/game/artwork"
	"github.com/wricardo/jigsaw-studio/game/config"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/render"
	"github.com/wricardo/jigsaw-studio/game/service"
	"github.com/wricardo/jigsaw-studio/game/session"
	"github.com/wricardo/jigsaw-studio/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	GenerateFunc     func(ctx context.Context, sessionID string, req service.GenerateRequest) (*service.ActionResult, error)
	LoadImageFunc    func(ctx context.Context, sessionID, imageRef string) (*service.ActionResult, error)
	ChangePuzzleFunc func(ctx context.Context, sessionID string) (*service.ActionResult, error)

	MeasureFunc     func(ctx context.Context, sessionID string, width, height int) (*service.ActionResult, error)
	ScatterFunc     func(ctx context.Context, sessionID string) (*service.ActionResult, error)
	DragStartFunc   func(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error)
	DragMoveFunc    func(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.ActionResult, error)
	DragReleaseFunc func(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error)
	ApplyFunc       func(ctx context.Context, sessionID string, ev puzzle.Event) (*service.ActionResult, error)

	GetStateFunc    func(ctx context.Context, sessionID string) (*puzzle.GameState, error)
	TileOutlineFunc func(ctx context.Context, sessionID string, tileID int) (*service.TileOutline, error)
	TileImageFunc   func(ctx context.Context, sessionID string, tileID int) ([]byte, error)
	PieceSVGFunc    func(ctx context.Context, sessionID string, tileID int) (string, error)
	GuidesFunc      func(ctx context.Context, sessionID string) ([]render.Guide, error)
	TransitionFunc  func(ctx context.Context, sessionID string, fps int) (*service.Transition, error)

	ListThemesFunc func(ctx context.Context) ([]*service.Theme, error)
	GetThemeFunc   func(ctx context.Context, themeID string) (*service.Theme, error)
}

func okResult(ev puzzle.EventType) *service.ActionResult {
	return &service.ActionResult{
		Outcome: puzzle.Outcome{Event: ev, Applied: true},
		State:   &puzzle.GameState{Tiles: []puzzle.Tile{}},
	}
}

func (m *MockGameService) CreateSession(ctx context.Context) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx)
	}
	return &service.SessionInfo{ID: "test-session", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Generate(ctx context.Context, sessionID string, req service.GenerateRequest) (*service.ActionResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, sessionID, req)
	}
	return okResult(puzzle.EventLoadImage), nil
}

func (m *MockGameService) LoadImage(ctx context.Context, sessionID, imageRef string) (*service.ActionResult, error) {
	if m.LoadImageFunc != nil {
		return m.LoadImageFunc(ctx, sessionID, imageRef)
	}
	return okResult(puzzle.EventLoadImage), nil
}

func (m *MockGameService) ChangePuzzle(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	if m.ChangePuzzleFunc != nil {
		return m.ChangePuzzleFunc(ctx, sessionID)
	}
	return okResult(puzzle.EventChangePuzzle), nil
}

func (m *MockGameService) Measure(ctx context.Context, sessionID string, width, height int) (*service.ActionResult, error) {
	if m.MeasureFunc != nil {
		return m.MeasureFunc(ctx, sessionID, width, height)
	}
	return okResult(puzzle.EventMeasure), nil
}

func (m *MockGameService) Scatter(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	if m.ScatterFunc != nil {
		return m.ScatterFunc(ctx, sessionID)
	}
	return okResult(puzzle.EventScatter), nil
}

func (m *MockGameService) DragStart(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error) {
	if m.DragStartFunc != nil {
		return m.DragStartFunc(ctx, sessionID, tileID)
	}
	return okResult(puzzle.EventDragStart), nil
}

func (m *MockGameService) DragMove(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.ActionResult, error) {
	if m.DragMoveFunc != nil {
		return m.DragMoveFunc(ctx, sessionID, tileID, x, y)
	}
	return okResult(puzzle.EventDragMove), nil
}

func (m *MockGameService) DragRelease(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error) {
	if m.DragReleaseFunc != nil {
		return m.DragReleaseFunc(ctx, sessionID, tileID)
	}
	return okResult(puzzle.EventDragRelease), nil
}

func (m *MockGameService) Apply(ctx context.Context, sessionID string, ev puzzle.Event) (*service.ActionResult, error) {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, sessionID, ev)
	}
	return okResult(ev.Type), nil
}

func (m *MockGameService) GetState(ctx context.Context, sessionID string) (*puzzle.GameState, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID)
	}
	return &puzzle.GameState{Tiles: []puzzle.Tile{}}, nil
}

func (m *MockGameService) TileOutline(ctx context.Context, sessionID string, tileID int) (*service.TileOutline, error) {
	if m.TileOutlineFunc != nil {
		return m.TileOutlineFunc(ctx, sessionID, tileID)
	}
	return &service.TileOutline{TileID: tileID, Path: "M 0 0 Z"}, nil
}

func (m *MockGameService) TileImage(ctx context.Context, sessionID string, tileID int) ([]byte, error) {
	if m.TileImageFunc != nil {
		return m.TileImageFunc(ctx, sessionID, tileID)
	}
	return []byte("\x89PNG"), nil
}

func (m *MockGameService) PieceSVG(ctx context.Context, sessionID string, tileID int) (string, error) {
	if m.PieceSVGFunc != nil {
		return m.PieceSVGFunc(ctx, sessionID, tileID)
	}
	return `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, nil
}

func (m *MockGameService) Guides(ctx context.Context, sessionID string) ([]render.Guide, error) {
	if m.GuidesFunc != nil {
		return m.GuidesFunc(ctx, sessionID)
	}
	return []render.Guide{}, nil
}

func (m *MockGameService) Transition(ctx context.Context, sessionID string, fps int) (*service.Transition, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, sessionID, fps)
	}
	return &service.Transition{FPS: fps}, nil
}

func (m *MockGameService) ListThemes(ctx context.Context) ([]*service.Theme, error) {
	if m.ListThemesFunc != nil {
		return m.ListThemesFunc(ctx)
	}
	return []*service.Theme{}, nil
}

func (m *MockGameService) GetTheme(ctx context.Context, themeID string) (*service.Theme, error) {
	if m.GetThemeFunc != nil {
		return m.GetThemeFunc(ctx, themeID)
	}
	return &service.Theme{ID: themeID}, nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, w.Body.String())
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "ab12", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Minute)},
				{ID: "mid", CreatedAt: base.Add(time.Minute), LastAccessedAt: base.Add(time.Minute)},
				{ID: "new", CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(2 * time.Minute)},
			}, nil
		},
	}
	server := setupTestServer(mock)

	tests := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{"default is most recently accessed first", "", []string{"old", "new", "mid"}, 3},
		{"created ascending", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"limit", "?sort=created&limit=2", []string{"new", "mid"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.total || resp.Count != len(tt.want) {
				t.Errorf("Expected count %d total %d, got %d %d", len(tt.want), tt.total, resp.Count, resp.Total)
			}
			for i, id := range tt.want {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Fatalf("Expected order %v, got %+v", tt.want, resp.Sessions)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: "ab12", State: &puzzle.GameState{Moves: 3}}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			return fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	if info.State == nil || info.State.Moves != 3 {
		t.Errorf("Expected state with 3 moves, got %+v", info.State)
	}

	if w := serve(server, makeRequest("GET", "/api/sessions/zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown session, got %d", w.Code)
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 deleting unknown session, got %d", w.Code)
	}
}

// Artwork Tests

func TestGenerate(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"prompt", map[string]string{"prompt": "koi pond"}, nil, http.StatusOK},
		{"missing credential", map[string]string{"prompt": "koi pond"}, artwork.ErrMissingCredential, http.StatusServiceUnavailable},
		{"no image in reply", map[string]string{"prompt": "koi pond"}, fmt.Errorf("gemini: %w", artwork.ErrNoImage), http.StatusBadGateway},
		{"already generating", map[string]string{"prompt": "koi pond"}, puzzle.ErrGenerating, http.StatusConflict},
		{"empty prompt", map[string]string{}, artwork.ErrEmptyPrompt, http.StatusBadRequest},
		{"unknown theme", map[string]string{"theme_id": "mars"}, fmt.Errorf("theme mars: %w", config.ErrThemeNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.GenerateRequest
			mock := &MockGameService{
				GenerateFunc: func(ctx context.Context, sessionID string, req service.GenerateRequest) (*service.ActionResult, error) {
					got = req
					if tt.err != nil {
						return nil, tt.err
					}
					return okResult(puzzle.EventLoadImage), nil
				},
			}

			w := serve(setupTestServer(mock), makeRequest("POST", "/api/sessions/ab12/generate", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if m, ok := tt.body.(map[string]string); ok && got.Prompt != m["prompt"] {
				t.Errorf("Expected prompt %q, got %q", m["prompt"], got.Prompt)
			}
		})
	}
}

func TestLoadImageAndChange(t *testing.T) {
	var loaded string
	mock := &MockGameService{
		LoadImageFunc: func(ctx context.Context, sessionID, imageRef string) (*service.ActionResult, error) {
			loaded = imageRef
			return okResult(puzzle.EventLoadImage), nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/image", map[string]string{"image": "data:image/png;base64,AA=="}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if loaded != "data:image/png;base64,AA==" {
		t.Errorf("Unexpected image ref %q", loaded)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/change", nil))
	var res service.ActionResult
	parseResponse(t, w, &res)
	if res.Outcome.Event != puzzle.EventChangePuzzle || !res.Outcome.Applied {
		t.Errorf("Unexpected outcome %+v", res.Outcome)
	}
}

// Play Tests

func TestMeasureAndScatter(t *testing.T) {
	var w0, h0 int
	mock := &MockGameService{
		MeasureFunc: func(ctx context.Context, sessionID string, width, height int) (*service.ActionResult, error) {
			w0, h0 = width, height
			return okResult(puzzle.EventMeasure), nil
		},
		ScatterFunc: func(ctx context.Context, sessionID string) (*service.ActionResult, error) {
			return nil, puzzle.ErrBusy
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/measure", map[string]int{"width": 1280, "height": 720}))
	if w.Code != http.StatusOK || w0 != 1280 || h0 != 720 {
		t.Errorf("Expected 200 with 1280x720, got %d with %dx%d", w.Code, w0, h0)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/scatter", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while busy, got %d", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/sessions/ab12/measure", strings.NewReader("{bad"))
	if w := serve(server, req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad body, got %d", w.Code)
	}
}

func TestDrag(t *testing.T) {
	type call struct {
		op   string
		tile int
		x, y float64
	}
	var calls []call
	mock := &MockGameService{
		DragStartFunc: func(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error) {
			calls = append(calls, call{op: "start", tile: tileID})
			return okResult(puzzle.EventDragStart), nil
		},
		DragMoveFunc: func(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.ActionResult, error) {
			calls = append(calls, call{"move", tileID, x, y})
			return okResult(puzzle.EventDragMove), nil
		},
		DragReleaseFunc: func(ctx context.Context, sessionID string, tileID int) (*service.ActionResult, error) {
			calls = append(calls, call{op: "release", tile: tileID})
			res := okResult(puzzle.EventDragRelease)
			res.Outcome.Snapped = true
			return res, nil
		},
	}
	server := setupTestServer(mock)

	serve(server, makeRequest("POST", "/api/sessions/ab12/drag/start", map[string]int{"tile_id": 0}))
	serve(server, makeRequest("POST", "/api/sessions/ab12/drag/move", map[string]interface{}{"tile_id": 0, "x": 12.5, "y": 40}))
	w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag/release", map[string]int{"tile_id": 0}))

	want := []call{{op: "start"}, {"move", 0, 12.5, 40}, {op: "release"}}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d calls, got %+v", len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %+v, got %+v", i, want[i], calls[i])
		}
	}

	var res service.ActionResult
	parseResponse(t, w, &res)
	if !res.Outcome.Snapped {
		t.Error("Expected snapped outcome")
	}

	if w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag/start", map[string]int{})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without tile_id, got %d", w.Code)
	}
}

// Rendering Tests

func TestTileEndpoints(t *testing.T) {
	mock := &MockGameService{
		TileOutlineFunc: func(ctx context.Context, sessionID string, tileID int) (*service.TileOutline, error) {
			if tileID >= puzzle.TileCount {
				return nil, service.ErrTileNotFound
			}
			return &service.TileOutline{TileID: tileID, Row: tileID / puzzle.Cols, Path: "M 0 0 Z"}, nil
		},
		TileImageFunc: func(ctx context.Context, sessionID string, tileID int) ([]byte, error) {
			return nil, service.ErrNoLayout
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/tiles/7/outline", nil))
	var out service.TileOutline
	parseResponse(t, w, &out)
	if out.TileID != 7 || out.Row != 1 {
		t.Errorf("Unexpected outline %+v", out)
	}

	for _, path := range []string{"/api/sessions/ab12/tiles/20/outline", "/api/sessions/ab12/tiles/x/outline"} {
		if w := serve(server, makeRequest("GET", path, nil)); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}

	if w := serve(server, makeRequest("GET", "/api/sessions/ab12/tiles/0/mask.png", nil)); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 before measure, got %d", w.Code)
	}

	mock.TileImageFunc = nil
	w = serve(server, makeRequest("GET", "/api/sessions/ab12/tiles/0/mask.png", nil))
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}

	var gotTile int
	mock.PieceSVGFunc = func(ctx context.Context, sessionID string, tileID int) (string, error) {
		gotTile = tileID
		return "<svg/>", nil
	}
	w = serve(server, makeRequest("GET", "/api/sessions/ab12/tiles/5/piece.svg", nil))
	if w.Code != http.StatusOK || gotTile != 5 {
		t.Errorf("Expected 200 for tile 5, got %d for tile %d", w.Code, gotTile)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Expected image/svg+xml, got %s", ct)
	}
	if w.Body.String() != "<svg/>" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestTransition(t *testing.T) {
	var gotFPS int
	mock := &MockGameService{
		TransitionFunc: func(ctx context.Context, sessionID string, fps int) (*service.Transition, error) {
			gotFPS = fps
			return &service.Transition{FPS: fps, Duration: puzzle.ScatterCooldown}, nil
		},
	}
	server := setupTestServer(mock)

	if w := serve(server, makeRequest("GET", "/api/sessions/ab12/transition?fps=12", nil)); w.Code != http.StatusOK || gotFPS != 12 {
		t.Errorf("Expected 200 at 12 fps, got %d at %d", w.Code, gotFPS)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/ab12/transition?fps=0", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for fps=0, got %d", w.Code)
	}
}

func TestThemes(t *testing.T) {
	mock := &MockGameService{
		ListThemesFunc: func(ctx context.Context) ([]*service.Theme, error) {
			return []*service.Theme{{ID: "neon_city", BuiltIn: true}}, nil
		},
		GetThemeFunc: func(ctx context.Context, themeID string) (*service.Theme, error) {
			return nil, fmt.Errorf("theme %s: %w", themeID, config.ErrThemeNotFound)
		},
	}
	server := setupTestServer(mock)

	var themes []*service.Theme
	parseResponse(t, serve(server, makeRequest("GET", "/api/themes", nil)), &themes)
	if len(themes) != 1 || themes[0].ID != "neon_city" {
		t.Errorf("Unexpected themes %+v", themes)
	}

	if w := serve(server, makeRequest("GET", "/api/themes/mars", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrTileNotFound), http.StatusNotFound},
		{puzzle.ErrNoImage, http.StatusConflict},
		{puzzle.ErrNotMeasured, http.StatusConflict},
		{puzzle.ErrBusy, http.StatusConflict},
		{puzzle.ErrUnknownEvent, http.StatusBadRequest},
		{artwork.ErrMissingCredential, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: quota", artwork.ErrGeneration), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRequestID(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("GET", "/api/health", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}

	req := makeRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "trace-1")
	if got := serve(server, req).Header().Get(RequestIDHeader); got != "trace-1" {
		t.Errorf("Expected incoming request id to be kept, got %q", got)
	}
}

func TestWebSocketEndpoint(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, session.ErrSessionNotFound
		},
	}
	server := setupTestServer(mock)

	if w := serve(server, makeRequest("GET", "/ws", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without session, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/ws?session=zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown session, got %d", w.Code)
	}
}

// TestFullStack drives a real service over HTTP and watches the socket.
func TestFullStack(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	sessions := session.NewManagerWithOptions(session.Options{Listener: hub.BroadcastState})
	defer sessions.CloseAll()
	themes, err := config.NewManager("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	ref, err := render.EncodeDataURI(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	svc := service.NewGameService(sessions, themes, artwork.Static{Ref: ref})
	ts := httptest.NewServer(NewServer(svc, hub))
	defer ts.Close()

	post := func(path string, body interface{}) *http.Response {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/api/sessions", nil)
	var info service.SessionInfo
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || info.ID == "" {
		t.Fatalf("create: status %d id %q", resp.StatusCode, info.ID)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + info.ID
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	post("/api/sessions/"+info.ID+"/measure", map[string]int{"width": 1000, "height": 800}).Body.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.State == nil || msg.State.BoardHeight != 656 {
		t.Errorf("Expected broadcast board height 656, got %+v", msg.State)
	}

	resp = post("/api/sessions/"+info.ID+"/generate", map[string]string{"theme_id": "neon_city"})
	var res service.ActionResult
	json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(res.State.Tiles) != puzzle.TileCount {
		t.Fatalf("generate: status %d tiles %d", resp.StatusCode, len(res.State.Tiles))
	}

	resp = post("/api/sessions/"+info.ID+"/scatter", nil)
	json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if !res.State.Shuffled || !res.State.Busy {
		t.Errorf("Expected shuffled and busy after scatter, got %+v", res.State)
	}

	resp = post("/api/sessions/"+info.ID+"/scatter", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for scatter during cooldown, got %d", resp.StatusCode)
	}

	png, err := http.Get(ts.URL + "/api/sessions/" + info.ID + "/tiles/0/mask.png")
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	png.Body.Close()
	if png.StatusCode != http.StatusOK || png.Header.Get("Content-Type") != "image/png" {
		t.Errorf("mask: status %d type %s", png.StatusCode, png.Header.Get("Content-Type"))
	}
}
