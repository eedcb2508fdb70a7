package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/service"
)

var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidTheme  = errors.New("invalid theme")
)

// MaxPromptLength bounds the subject text of a theme.
const MaxPromptLength = 500

// DefaultThemeID is used when no default is set explicitly.
const DefaultThemeID = "enchanted_forest"

var themeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// builtInThemes are always available, even without a themes directory.
var builtInThemes = []service.Theme{
	{
		ID:     "enchanted_forest",
		Name:   "Enchanted Forest",
		Prompt: "An enchanted forest with crystal trees and golden fireflies, detailed watercolor style",
		Icon:   "fa-tree",
	},
	{
		ID:     "neon_city",
		Name:   "Neon City",
		Prompt: "A cyberpunk metropolis in the rain with neon reflections in the puddles, cinematic style",
		Icon:   "fa-city",
	},
	{
		ID:     "space_voyage",
		Name:   "Space Voyage",
		Prompt: "A colorful nebula with astronauts exploring ancient floating ruins, epic style",
		Icon:   "fa-rocket",
	},
	{
		ID:     "samurai_cat",
		Name:   "Samurai Cat",
		Prompt: "A cat dressed as a samurai in a Japanese cherry blossom garden, traditional illustration style",
		Icon:   "fa-cat",
	},
}

// Manager handles theme loading and caching
type Manager struct {
	themesDir string
	defaultID string
	themes    map[string]*service.Theme
	mu        sync.RWMutex
}

// NewManager creates a new theme manager. An empty themesDir serves the
// built-in themes only.
func NewManager(themesDir string) (*Manager, error) {
	if themesDir != "" {
		if _, err := os.Stat(themesDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("themes directory does not exist: %s", themesDir)
		}
	}

	return &Manager{
		themesDir: themesDir,
		defaultID: DefaultThemeID,
		themes:    make(map[string]*service.Theme),
	}, nil
}

// LoadTheme loads a theme by id. Files in the themes directory override
// built-in themes with the same id.
func (m *Manager) LoadTheme(id string) (*service.Theme, error) {
	id = strings.TrimSuffix(strings.ToLower(id), ".json")

	m.mu.RLock()
	if theme, exists := m.themes[id]; exists {
		m.mu.RUnlock()
		return theme, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

func (m *Manager) loadLocked(id string) (*service.Theme, error) {
	if theme, exists := m.themes[id]; exists {
		return theme, nil
	}

	theme, err := m.readFile(id)
	if errors.Is(err, ErrThemeNotFound) {
		theme, err = builtIn(id)
	}
	if err != nil {
		return nil, err
	}

	m.themes[id] = theme
	return theme, nil
}

func (m *Manager) readFile(id string) (*service.Theme, error) {
	if m.themesDir == "" || !themeIDPattern.MatchString(id) {
		return nil, ErrThemeNotFound
	}

	data, err := os.ReadFile(filepath.Join(m.themesDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrThemeNotFound
		}
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme service.Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme: %w", err)
	}
	if theme.ID == "" {
		theme.ID = id
	}
	theme.BuiltIn = false

	if err := ValidateTheme(&theme); err != nil {
		return nil, err
	}
	if theme.ID != id {
		return nil, fmt.Errorf("%w: file %s.json declares id %q", ErrInvalidTheme, id, theme.ID)
	}
	return &theme, nil
}

func builtIn(id string) (*service.Theme, error) {
	for _, t := range builtInThemes {
		if t.ID == id {
			theme := t
			theme.BuiltIn = true
			return &theme, nil
		}
	}
	return nil, ErrThemeNotFound
}

// ListThemes returns the built-in themes followed by the themes directory,
// each theme once.
func (m *Manager) ListThemes() ([]*service.Theme, error) {
	ids := make([]string, 0, len(builtInThemes))
	seen := make(map[string]bool)
	for _, t := range builtInThemes {
		ids = append(ids, t.ID)
		seen[t.ID] = true
	}

	if m.themesDir != "" {
		entries, err := os.ReadDir(m.themesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read themes directory: %w", err)
		}
		var extra []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			id := strings.TrimSuffix(entry.Name(), ".json")
			if !seen[id] {
				extra = append(extra, id)
				seen[id] = true
			}
		}
		sort.Strings(extra)
		ids = append(ids, extra...)
	}

	themes := make([]*service.Theme, 0, len(ids))
	for _, id := range ids {
		theme, err := m.LoadTheme(id)
		if err != nil {
			log.Warnf("Skipping theme %s: %v", id, err)
			continue
		}
		themes = append(themes, theme)
	}
	return themes, nil
}

// GetDefault returns the default theme
func (m *Manager) GetDefault() *service.Theme {
	m.mu.RLock()
	id := m.defaultID
	m.mu.RUnlock()

	theme, err := m.LoadTheme(id)
	if err != nil {
		fallback, _ := builtIn(DefaultThemeID)
		return fallback
	}
	return theme
}

// SetDefault sets the default theme by id
func (m *Manager) SetDefault(id string) error {
	if _, err := m.LoadTheme(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = strings.ToLower(id)
	return nil
}

// RefreshCache drops every cached theme so the next load rereads the files
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes = make(map[string]*service.Theme)
}

// SaveTheme writes a theme to the themes directory
func (m *Manager) SaveTheme(theme *service.Theme) error {
	if m.themesDir == "" {
		return fmt.Errorf("no themes directory configured")
	}
	if err := ValidateTheme(theme); err != nil {
		return err
	}

	saved := *theme
	saved.BuiltIn = false
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	path := filepath.Join(m.themesDir, saved.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	m.mu.Lock()
	m.themes[saved.ID] = &saved
	m.mu.Unlock()
	return nil
}

// ValidateTheme checks that a theme can be offered to players
func ValidateTheme(theme *service.Theme) error {
	if theme == nil {
		return fmt.Errorf("%w: theme is nil", ErrInvalidTheme)
	}
	if !themeIDPattern.MatchString(theme.ID) {
		return fmt.Errorf("%w: id %q must be lowercase letters, digits, '-' or '_'", ErrInvalidTheme, theme.ID)
	}
	if strings.TrimSpace(theme.Name) == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidTheme, theme.ID)
	}
	prompt := strings.TrimSpace(theme.Prompt)
	if prompt == "" {
		return fmt.Errorf("%w: %s has no prompt", ErrInvalidTheme, theme.ID)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: %s prompt is %d characters, limit is %d", ErrInvalidTheme, theme.ID, len(prompt), MaxPromptLength)
	}
	return nil
}
