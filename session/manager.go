package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrSessionActive is returned by Start while a link is open or opening.
	ErrSessionActive = errors.New("session already active")
	// ErrNotActive is returned by Stop when no link is open.
	ErrNotActive = errors.New("no active session")
)

// Manager owns the HUD state and at most one session at a time.
type Manager struct {
	state   *State
	opts    Options
	journal Journal

	mu        sync.Mutex
	current   *Session
	starting  bool
	currentID string

	journalStop func()
	journalDone chan struct{}
}

// NewManager creates a manager. journal may be nil.
func NewManager(opts Options, logCapacity int, journal Journal) *Manager {
	m := &Manager{
		state:   NewState(logCapacity),
		opts:    opts,
		journal: journal,
	}
	if journal != nil {
		events, stop := m.state.Subscribe(256)
		m.journalStop = stop
		m.journalDone = make(chan struct{})
		go m.runJournal(events)
	}
	return m
}

func (m *Manager) runJournal(events <-chan Event) {
	defer close(m.journalDone)
	ctx := context.Background()
	for ev := range events {
		if ev.Kind == EventFrame {
			continue
		}
		m.mu.Lock()
		id := m.currentID
		m.mu.Unlock()
		if id == "" {
			continue
		}
		if err := m.journal.Record(ctx, id, ev); err != nil {
			log.Printf("⚠️ [%s] Journal write failed: %v", id[:8], err)
		}
	}
}

// SessionID returns the ID of the latest session, or "" before the first
// Start.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// State exposes the shared HUD state.
func (m *Manager) State() *State {
	return m.state
}

// Snapshot returns the current HUD state.
func (m *Manager) Snapshot() Snapshot {
	return m.state.Snapshot()
}

// Subscribe forwards to State.Subscribe.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	return m.state.Subscribe(buffer)
}

// Start opens a new session. Output kept alive for a previous session's
// drain is released first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.starting || (m.current != nil && m.current.live()) {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.starting = true
	prev := m.current
	m.current = nil
	if prev != nil {
		// Late events from the previous link must not reach the new one.
		prev.retire()
	}
	id := uuid.New().String()
	m.currentID = id
	m.mu.Unlock()

	if prev != nil {
		prev.release()
		m.journalClosed(prev.ID)
	}

	s := newSession(id, m.state, m.opts)
	err := s.start(ctx)

	m.mu.Lock()
	m.starting = false
	if err == nil {
		m.current = s
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if m.journal != nil {
		if jerr := m.journal.Opened(ctx, s); jerr != nil {
			log.Printf("⚠️ [%s] Journal write failed: %v", id[:8], jerr)
		}
	}
	log.Printf("🚀 [%s] Session started", id[:8])
	return nil
}

// Stop closes the open link. Playback already scheduled keeps playing
// until the next Start or Shutdown.
func (m *Manager) Stop() error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil || !s.live() {
		return ErrNotActive
	}
	s.stop()
	m.journalClosed(s.ID)
	log.Printf("🛑 [%s] Session stopped", s.ID[:8])
	return nil
}

func (m *Manager) journalClosed(id string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Closed(context.Background(), id); err != nil {
		log.Printf("⚠️ [%s] Journal write failed: %v", id[:8], err)
	}
}

// Shutdown releases the current session and the journal.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()

	if s != nil {
		s.stop()
		s.retire()
		s.release()
		m.journalClosed(s.ID)
	}

	if m.journal != nil {
		m.journalStop()
		<-m.journalDone
		if err := m.journal.Close(); err != nil {
			log.Printf("⚠️ Error closing journal: %v", err)
		}
	}
}
