// Command autoplay plays a Jigsaw Studio puzzle to completion through the
// REST API. It creates (or resumes) a session, measures a virtual container,
// loads artwork, scatters the tiles and drags each one home.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/artwork"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	sessionID := flag.String("session", "", "Resume playing an existing session by ID")
	width := flag.Int("width", 1000, "Container width")
	height := flag.Int("height", 800, "Container height")
	imagePath := flag.String("image", "", "Image file to play with instead of generated artwork")
	prompt := flag.String("prompt", "", "Prompt for generated artwork")
	theme := flag.String("theme", "", "Theme preset for generated artwork")
	jitter := flag.Float64("jitter", 0, "Drop up to this many pixels off target (capped inside the snap radius)")
	misdrop := flag.Bool("misdrop", false, "Drop each tile in the tray once before placing it")
	rounds := flag.Int("rounds", 3, "Maximum passes over the loose tiles")
	delayMs := flag.Int("delay", 0, "Delay between drops in milliseconds (0 = no delay)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := PlayerOptions{
		Width:     *width,
		Height:    *height,
		Prompt:    *prompt,
		ThemeID:   *theme,
		Jitter:    *jitter,
		Misdrop:   *misdrop,
		Delay:     time.Duration(*delayMs) * time.Millisecond,
		MaxRounds: *rounds,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			log.Fatalf("Failed to read image: %v", err)
		}
		opts.Image = artwork.DataURI(http.DetectContentType(data), data)
	}

	log.Infof("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	if *sessionID != "" {
		if _, err := client.Resume(ctx, *sessionID); err != nil {
			log.Fatalf("Failed to resume session %s: %v", *sessionID, err)
		}
		log.Infof("🔄 Resuming session: %s", client.SessionID())
	} else {
		if _, err := client.CreateSession(ctx); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Infof("✨ Session created: %s", client.SessionID())
	}

	start := time.Now()
	state, err := NewPlayer(client, opts).Play(ctx)
	if err != nil {
		log.Errorf("❌ %v", err)
		log.Infof("Session: %s", client.SessionID())
		os.Exit(1)
	}

	log.Infof("🎉 SOLVED in %d moves (%s wall clock, %ds on the game timer)",
		state.Moves, time.Since(start).Round(time.Millisecond), state.ElapsedSeconds)
	log.Infof("Session: %s", client.SessionID())
}
