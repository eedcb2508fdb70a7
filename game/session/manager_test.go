package session

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got '%s'", session.ID)
		}
	})

	t.Run("duplicate ID", func(t *testing.T) {
		if _, err := manager.Create("TEST-SESSION"); !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		if _, err := manager.Create("a/b"); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()
	manager.Create("AbCd")

	session, err := manager.Get("abcd")
	if err != nil {
		t.Fatalf("Expected case-insensitive lookup, got %v", err)
	}
	if session.ID != "AbCd" {
		t.Errorf("Expected original ID to be kept, got %s", session.ID)
	}

	if _, err := manager.Get("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("gone")
	session.Engine.Apply(puzzle.Event{Type: puzzle.EventMeasure, Width: 800, Height: 600})

	if err := manager.Delete("GONE"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", manager.Count())
	}
	if err := manager.Delete("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	for _, id := range []string{"one", "two", "three"} {
		manager.Create(id)
		time.Sleep(time.Millisecond)
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i, want := range []string{"one", "two", "three"} {
		if sessions[i].ID != want {
			t.Errorf("Position %d: got %s, want %s", i, sessions[i].ID, want)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	old, _ := manager.Create("old")
	manager.Create("new")
	old.Touch(time.Now().Add(-2 * time.Hour))

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected old session to be removed")
	}
	if _, err := manager.Get("new"); err != nil {
		t.Error("Expected new session to remain")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	session, _ := manager.Create("touch")
	before := session.LastAccessed()
	time.Sleep(2 * time.Millisecond)

	if err := manager.UpdateLastAccessed("touch"); err != nil {
		t.Fatalf("UpdateLastAccessed: %v", err)
	}
	if !session.LastAccessed().After(before) {
		t.Error("Expected last access to move forward")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Listener(t *testing.T) {
	var mu sync.Mutex
	var got []string

	manager := NewManagerWithOptions(Options{
		Listener: func(sessionID string, state puzzle.GameState, out puzzle.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, sessionID+":"+string(out.Event))
		},
		Engine: func() puzzle.Options {
			return puzzle.Options{Rand: rand.New(rand.NewSource(1))}
		},
	})
	defer manager.CloseAll()

	a, _ := manager.Create("aaaa")
	b, _ := manager.Create("bbbb")
	a.Engine.Apply(puzzle.Event{Type: puzzle.EventMeasure, Width: 800, Height: 600})
	b.Engine.Apply(puzzle.Event{Type: puzzle.EventLoadImage, Image: "img"})

	mu.Lock()
	defer mu.Unlock()
	want := "aaaa:measure,bbbb:load_image"
	if strings.Join(got, ",") != want {
		t.Errorf("Got %v, want %s", got, want)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			if _, err := manager.Get(session.ID); err != nil {
				t.Errorf("Get: %v", err)
			}
			manager.List()
		}()
	}
	wg.Wait()

	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	defer manager.CloseAll()

	a, _ := manager.Create("iso1")
	b, _ := manager.Create("iso2")
	a.Engine.Apply(puzzle.Event{Type: puzzle.EventMeasure, Width: 1000, Height: 800})
	a.Engine.Apply(puzzle.Event{Type: puzzle.EventLoadImage, Image: "img"})

	if len(a.Engine.Tiles()) != puzzle.TileCount {
		t.Errorf("Expected tiles in first session")
	}
	if len(b.Engine.Tiles()) != 0 {
		t.Errorf("Second session should be untouched")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := manager.generateSessionID()
		if len(id) != 4 {
			t.Fatalf("Expected 4-character ID, got %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 40 {
		t.Errorf("Expected mostly unique IDs, got %d distinct of 50", len(seen))
	}
}
