package session

import (
	"time"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session snapshot to storage
	Save(data *PersistedSessionData) error

	// Load retrieves a session snapshot from storage by ID
	Load(id string) (*PersistedSessionData, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string           `json:"id"`
	ThemeID        string           `json:"theme_id,omitempty"`
	Prompt         string           `json:"prompt,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	State          puzzle.GameState `json:"state"`
}
