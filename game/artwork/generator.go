package artwork

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrMissingCredential = errors.New("API key is missing; set API_KEY to enable artwork generation")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrNoImage           = errors.New("no image was generated; try a different description")
	ErrGeneration        = errors.New("artwork generation failed")
)

// Generator turns a subject description into an image reference.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const promptEnvelope = "A high-quality, intricate, and vibrant artistic scene for a jigsaw puzzle. " +
	"Subject: %s. The composition must be dense, detailed, and completely fill the frame " +
	"from edge to edge without large empty, white, or monochromatic backgrounds. " +
	"Cinematic lighting, rich colors, 8k resolution."

// BuildPrompt wraps a subject in the fixed instruction sent to the model.
func BuildPrompt(subject string) string {
	return fmt.Sprintf(promptEnvelope, strings.TrimSpace(subject))
}

// DataURI encodes raw image bytes as a data URI. An empty mime type
// defaults to image/png.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EnvKey returns the API key from API_KEY, falling back to GEMINI_API_KEY.
// It is read on every call so a key added to the environment is picked up
// without a restart.
func EnvKey() string {
	if key := os.Getenv("API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GEMINI_API_KEY")
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Static returns the same reference (or error) for every prompt.
type Static struct {
	Ref string
	Err error
}

func (s Static) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Ref == "" {
		return "", ErrNoImage
	}
	return s.Ref, nil
}
