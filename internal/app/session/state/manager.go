package state

import (
	"sync"
	"time"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID string

	// Session lifecycle
	phase     Phase
	startedAt *time.Time

	// Queue origin
	source Source
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		phase:     PhaseWaiting,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// SetPhase sets the session phase. Entering PhaseActive stamps the start time once.
func (m *Manager) SetPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = p
	if p == PhaseActive && m.startedAt == nil {
		now := time.Now()
		m.startedAt = &now
	}
}

// GetStartedAt returns when the session became active, or nil.
func (m *Manager) GetStartedAt() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startedAt
}

// GetSource returns the current queue origin.
func (m *Manager) GetSource() Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// SetPlaylistSource records that the queue is a snapshot of the named playlist.
func (m *Manager) SetPlaylistSource(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = Source{Kind: SourcePlaylist, Playlist: name}
}

// SetFilesSource records that the queue holds directly loaded files.
func (m *Manager) SetFilesSource() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = Source{Kind: SourceFiles}
}

// RenamePlaylistSource follows a playlist rename so the label stays accurate.
func (m *Manager) RenamePlaylistSource(oldName, newName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source.Kind == SourcePlaylist && m.source.Playlist == oldName {
		m.source.Playlist = newName
	}
}
