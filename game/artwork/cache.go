package artwork

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileCache wraps a Generator and keeps every generated image on disk, keyed
// by the normalized prompt, so asking for the same subject twice costs one
// remote call.
type FileCache struct {
	dir  string
	next Generator
}

type cachedArtwork struct {
	Prompt    string    `json:"prompt"`
	Ref       string    `json:"ref"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string, next Generator) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artwork cache directory: %w", err)
	}
	return &FileCache{dir: dir, next: next}, nil
}

// Generate implements Generator.
func (c *FileCache) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}

	path := c.path(prompt)
	if data, err := os.ReadFile(path); err == nil {
		var entry cachedArtwork
		if err := json.Unmarshal(data, &entry); err == nil && entry.Ref != "" {
			log.WithField("prompt", entry.Prompt).Debug("artwork cache hit")
			return entry.Ref, nil
		}
		log.Warnf("Ignoring unreadable artwork cache entry %s", path)
	}

	ref, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	entry := cachedArtwork{Prompt: normalize(prompt), Ref: ref, CreatedAt: time.Now()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		log.Warnf("Failed to cache artwork for %q: %v", entry.Prompt, err)
	}
	return ref, nil
}

// Clear removes every cached entry.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read artwork cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (c *FileCache) path(prompt string) string {
	sum := sha256.Sum256([]byte(normalize(prompt)))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".json")
}

func normalize(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}
