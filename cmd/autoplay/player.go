package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/service"
)

// maxJitter keeps a jittered drop inside the snap radius on both axes.
var maxJitter = math.Floor(puzzle.SnapThreshold/math.Sqrt2) - 1

var ErrNotSolved = errors.New("puzzle not solved")

// PlayerOptions tune how the puzzle is played.
type PlayerOptions struct {
	Width, Height int

	// Artwork source, in order of preference. Without any of them a
	// session that has no image yet is given the default theme.
	Image   string
	Prompt  string
	ThemeID string

	// Jitter offsets each drop by up to this many pixels per axis.
	Jitter float64
	// Misdrop first drops every tile in the tray before placing it.
	Misdrop bool

	Delay     time.Duration
	MaxRounds int
	Seed      int64
}

// Player drives a session from an empty board to a solved puzzle.
type Player struct {
	client *Client
	opts   PlayerOptions
	rng    *rand.Rand
}

func NewPlayer(client *Client, opts PlayerOptions) *Player {
	if opts.Width <= 0 {
		opts.Width = 1000
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 3
	}
	if opts.Jitter > maxJitter {
		opts.Jitter = maxJitter
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &Player{client: client, opts: opts, rng: rand.New(rand.NewSource(opts.Seed))}
}

// Prepare measures the board, loads artwork when needed and scatters the
// tiles, waiting out the cooldown.
func (p *Player) Prepare(ctx context.Context) (*puzzle.GameState, error) {
	result, err := p.client.Measure(ctx, p.opts.Width, p.opts.Height)
	if err != nil {
		return nil, err
	}
	state := result.State

	if state.Image == "" || p.opts.Image != "" || p.opts.Prompt != "" {
		if state, err = p.loadArtwork(ctx); err != nil {
			return nil, err
		}
	}

	if !state.Shuffled || state.Solved {
		if _, err := p.client.Scatter(ctx); err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
		log.Infof("🧩 Scattered %d tiles", len(state.Tiles))
	}

	return p.waitIdle(ctx)
}

func (p *Player) loadArtwork(ctx context.Context) (*puzzle.GameState, error) {
	var (
		result *service.ActionResult
		err    error
	)
	switch {
	case p.opts.Image != "":
		log.Info("Loading supplied image")
		result, err = p.client.LoadImage(ctx, p.opts.Image)
	case p.opts.Prompt != "":
		log.Infof("🎨 Generating artwork for %q", p.opts.Prompt)
		result, err = p.client.Generate(ctx, service.GenerateRequest{Prompt: p.opts.Prompt})
	default:
		themeID := p.opts.ThemeID
		if themeID == "" {
			themeID = "enchanted_forest"
		}
		log.Infof("🎨 Generating artwork for theme %s", themeID)
		result, err = p.client.Generate(ctx, service.GenerateRequest{ThemeID: themeID})
	}
	if err != nil {
		return nil, fmt.Errorf("load artwork: %w", err)
	}
	return result.State, nil
}

// waitIdle polls until the scatter cooldown is over.
func (p *Player) waitIdle(ctx context.Context) (*puzzle.GameState, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		state, err := p.client.State(ctx)
		if err != nil {
			return nil, err
		}
		if !state.Busy {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Player) jitter() float64 {
	if p.opts.Jitter == 0 {
		return 0
	}
	return (p.rng.Float64()*2 - 1) * p.opts.Jitter
}

// Solve places every loose tile, bottom of the stack first, until the
// puzzle reports solved or the rounds run out.
func (p *Player) Solve(ctx context.Context, state *puzzle.GameState) (*puzzle.GameState, error) {
	trayX, trayY, trayW, trayH := puzzle.TrayRect(state.Width, state.Height)

	for round := 1; round <= p.opts.MaxRounds && !state.Solved; round++ {
		loose := make([]puzzle.Tile, 0, len(state.Tiles))
		for _, t := range state.Tiles {
			if !t.Snapped {
				loose = append(loose, t)
			}
		}
		sort.Slice(loose, func(i, j int) bool { return loose[i].ZIndex < loose[j].ZIndex })
		log.Infof("=== Round %d: %d loose tiles ===", round, len(loose))

		for _, t := range loose {
			outline, err := p.client.Outline(ctx, t.ID)
			if err != nil {
				return state, err
			}
			b := outline.Bounds

			if p.opts.Misdrop {
				if _, err := p.client.Drag(ctx, t.ID, trayX+trayW/2, trayY+trayH/2); err != nil {
					return state, err
				}
			}

			x := float64(b.X) + float64(b.Width)/2 + p.jitter()
			y := float64(b.Y) + float64(b.Height)/2 + p.jitter()
			result, err := p.client.Drag(ctx, t.ID, x, y)
			if err != nil {
				return state, err
			}
			state = result.State
			log.Debugf("tile %d -> (%.0f,%.0f) snapped=%t", t.ID, x, y, result.Outcome.Snapped)

			if p.opts.Delay > 0 {
				time.Sleep(p.opts.Delay)
			}
		}
	}

	if !state.Solved {
		return state, fmt.Errorf("%w after %d rounds: %d/%d placed", ErrNotSolved, p.opts.MaxRounds, puzzle.SnappedCount(state.Tiles), len(state.Tiles))
	}
	return state, nil
}

// Play runs Prepare then Solve.
func (p *Player) Play(ctx context.Context) (*puzzle.GameState, error) {
	state, err := p.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	return p.Solve(ctx, state)
}
