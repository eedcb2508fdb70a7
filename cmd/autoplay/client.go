package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/service"
)

// Client talks to the REST API of one play session.
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			// generation holds the request open
			Timeout: 3 * time.Minute,
		},
	}
}

// SessionID returns the session the client plays in.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) CreateSession(ctx context.Context) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &info); err != nil {
		return nil, err
	}
	c.sessionID = info.ID
	return &info, nil
}

// Resume points the client at an existing session.
func (c *Client) Resume(ctx context.Context, id string) (*puzzle.GameState, error) {
	c.sessionID = id
	return c.State(ctx)
}

func (c *Client) State(ctx context.Context) (*puzzle.GameState, error) {
	var state puzzle.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) action(ctx context.Context, suffix string, body interface{}) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(suffix), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Measure(ctx context.Context, width, height int) (*service.ActionResult, error) {
	return c.action(ctx, "/measure", map[string]int{"width": width, "height": height})
}

func (c *Client) Generate(ctx context.Context, req service.GenerateRequest) (*service.ActionResult, error) {
	return c.action(ctx, "/generate", req)
}

func (c *Client) LoadImage(ctx context.Context, ref string) (*service.ActionResult, error) {
	return c.action(ctx, "/image", map[string]string{"image": ref})
}

func (c *Client) Scatter(ctx context.Context) (*service.ActionResult, error) {
	return c.action(ctx, "/scatter", nil)
}

type dragBody struct {
	TileID int     `json:"tile_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Drag picks a tile up, moves the pointer to (x, y) and releases it.
func (c *Client) Drag(ctx context.Context, tileID int, x, y float64) (*service.ActionResult, error) {
	steps := []struct {
		suffix string
		body   dragBody
	}{
		{"/drag/start", dragBody{TileID: tileID}},
		{"/drag/move", dragBody{TileID: tileID, X: x, Y: y}},
		{"/drag/release", dragBody{TileID: tileID}},
	}

	var result *service.ActionResult
	for _, step := range steps {
		var err error
		result, err = c.action(ctx, step.suffix, step.body)
		if err != nil {
			return nil, err
		}
		if !result.Outcome.Applied {
			return result, fmt.Errorf("%s on tile %d not applied: %s", step.suffix, tileID, result.Outcome.Reason)
		}
	}
	return result, nil
}

func (c *Client) Outline(ctx context.Context, tileID int) (*service.TileOutline, error) {
	var outline service.TileOutline
	if err := c.do(ctx, http.MethodGet, c.sessionPath(fmt.Sprintf("/tiles/%d/outline", tileID)), nil, &outline); err != nil {
		return nil, err
	}
	return &outline, nil
}
