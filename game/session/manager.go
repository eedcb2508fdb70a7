package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Options configures the engines the manager creates.
type Options struct {
	// Listener receives every applied event of every session.
	Listener service.StateListener

	// Engine returns the base engine options for a new session. OnChange is
	// always replaced by the manager.
	Engine func() puzzle.Options

	// Persistence, when set, keeps a snapshot of every session so play
	// survives a restart. Sessions missing from memory are loaded from it.
	Persistence SessionPersistence
}

// Manager handles play session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	opts     Options
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return NewManagerWithOptions(Options{})
}

// NewManagerWithOptions creates a new session manager that wires a state
// listener and engine options into every session.
func NewManagerWithOptions(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		opts:     opts,
	}
}

// Create creates a new session with the given ID, or a random one
func (m *Manager) Create(id string) (*service.Session, error) {
	if strings.ContainsAny(id, " /?#") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
		for m.sessionExists(id) {
			id = m.generateSessionID()
		}
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	session := m.newSession(id, now, now)
	m.sessions[strings.ToLower(id)] = session

	// Auto-save if persistence is enabled
	m.persist(session)
	return session, nil
}

// newSession builds a session whose engine reports to the listener and to
// persistence.
func (m *Manager) newSession(id string, createdAt, lastAccessed time.Time) *service.Session {
	var engOpts puzzle.Options
	if m.opts.Engine != nil {
		engOpts = m.opts.Engine()
	}

	session := &service.Session{
		ID:        id,
		CreatedAt: createdAt,
	}
	session.Touch(lastAccessed)
	listener := m.opts.Listener
	engOpts.OnChange = nil
	if listener != nil || m.opts.Persistence != nil {
		engOpts.OnChange = func(state puzzle.GameState, out puzzle.Outcome) {
			if listener != nil {
				listener(id, state, out)
			}
			if persistable(out.Event) {
				m.persist(session)
			}
		}
	}
	session.Engine = puzzle.NewEngine(engOpts)
	return session
}

// persistable leaves out the high-rate events; their effect is saved with
// the next release or tick-free change.
func persistable(t puzzle.EventType) bool {
	switch t {
	case puzzle.EventDragStart, puzzle.EventDragMove, puzzle.EventTick:
		return false
	}
	return true
}

func (m *Manager) persist(session *service.Session) {
	if m.opts.Persistence == nil {
		return
	}
	if err := m.opts.Persistence.Save(snapshotOf(session)); err != nil {
		log.Warnf("Failed to persist session %s: %v", session.ID, err)
	}
}

func snapshotOf(session *service.Session) *PersistedSessionData {
	themeID, prompt := session.Artwork()
	return &PersistedSessionData{
		ID:             session.ID,
		ThemeID:        themeID,
		Prompt:         prompt,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessed(),
		State:          session.Engine.State(),
	}
}

// restore rebuilds a session from a persisted snapshot.
func (m *Manager) restore(data *PersistedSessionData) (*service.Session, error) {
	session := m.newSession(data.ID, data.CreatedAt, data.LastAccessedAt)
	if err := session.Engine.Restore(data.State); err != nil {
		session.Engine.Close()
		return nil, fmt.Errorf("failed to restore session %s: %w", data.ID, err)
	}
	session.SetArtwork(data.ThemeID, data.Prompt)
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Try loading from persistence if not in memory
	if m.opts.Persistence != nil && m.opts.Persistence.Exists(id) {
		data, err := m.opts.Persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}
		loaded, err := m.restore(data)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// another caller may have loaded it meanwhile
		if existing, ok := m.sessions[strings.ToLower(id)]; ok {
			loaded.Engine.Close()
			return existing, nil
		}
		m.sessions[strings.ToLower(id)] = loaded
		return loaded, nil
	}

	return nil, ErrSessionNotFound
}

// List returns all active sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	sortByCreation(result)
	return result
}

// Delete removes a session and stops its timers
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[strings.ToLower(id)]
	if exists {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if exists {
		session.Engine.Close()
	}

	// Delete from persistence if it exists
	if m.opts.Persistence != nil && m.opts.Persistence.Exists(id) {
		if err := m.opts.Persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !exists {
		return ErrSessionNotFound
	}
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	var expired []*service.Session
	for id, session := range m.sessions {
		if session.LastAccessed().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Engine.Close()
		if m.opts.Persistence != nil && m.opts.Persistence.Exists(session.ID) {
			if err := m.opts.Persistence.Delete(session.ID); err != nil {
				log.Warnf("Failed to delete expired session %s: %v", session.ID, err)
			}
		}
	}
	return len(expired)
}

// RunCleanup removes expired sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupExpiredSessions(maxAge); n > 0 {
				log.Infof("Removed %d expired sessions", n)
			}
		}
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops the timers of every session and forgets them.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Engine.Close()
	}
}

// LoadPersistedSessions loads all persisted sessions into memory and
// returns how many were loaded.
func (m *Manager) LoadPersistedSessions() (int, error) {
	if m.opts.Persistence == nil {
		return 0, nil // No persistence configured
	}

	sessionIDs, err := m.opts.Persistence.ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loadedCount := 0
	for _, id := range sessionIDs {
		m.mu.RLock()
		_, exists := m.sessions[strings.ToLower(id)]
		m.mu.RUnlock()
		if exists {
			continue
		}

		data, err := m.opts.Persistence.Load(id)
		if err != nil {
			log.Warnf("Failed to load persisted session %s: %v", id, err)
			continue
		}
		session, err := m.restore(data)
		if err != nil {
			log.Warnf("%v", err)
			continue
		}

		m.mu.Lock()
		m.sessions[strings.ToLower(session.ID)] = session
		m.mu.Unlock()
		loadedCount++
	}

	if loadedCount > 0 {
		log.Infof("Loaded %d persisted sessions from storage", loadedCount)
	}
	return loadedCount, nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.opts.Persistence == nil {
		return nil // No persistence configured
	}

	errorCount := 0
	for _, session := range m.List() {
		if err := m.opts.Persistence.Save(snapshotOf(session)); err != nil {
			log.Warnf("Failed to save session %s: %v", session.ID, err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}
	return nil
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

func sortByCreation(sessions []*service.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
