package artwork

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash-image"
	DefaultAspectRatio = "16:9"
)

// GeminiOptions configures a Gemini generator. Zero values select the
// defaults and the environment key lookup.
type GeminiOptions struct {
	Model       string
	AspectRatio string
	BaseURL     string
	Timeout     time.Duration
	Key         func() string
}

// Gemini generates artwork with Google's image model.
type Gemini struct {
	opts GeminiOptions
}

func NewGemini(opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = DefaultAspectRatio
	}
	if opts.Key == nil {
		opts.Key = EnvKey
	}
	return &Gemini{opts: opts}
}

// Generate implements Generator. A fresh client is built per call so the
// most recent key is always used.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	key := g.opts.Key()
	if key == "" {
		return "", ErrMissingCredential
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.opts.BaseURL},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to create client: %v", ErrGeneration, err)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(BuildPrompt(prompt)), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: g.opts.AspectRatio},
	})
	if err != nil {
		log.WithError(err).WithField("model", g.opts.Model).Warn("artwork generation failed")
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	ref, err := ExtractImage(resp)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"model":    g.opts.Model,
		"duration": time.Since(start).Round(time.Millisecond),
		"bytes":    len(ref),
	}).Info("artwork generated")
	return ref, nil
}

// ExtractImage returns the first inline image of the first candidate as a
// data URI.
func ExtractImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoImage
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return "", ErrNoImage
	}
	for _, part := range c.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return DataURI(part.InlineData.MIMEType, part.InlineData.Data), nil
	}
	return "", ErrNoImage
}
