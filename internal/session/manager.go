package session

import (
	"sync"
	"time"
)

// Manager serializes sends per chat so that messages to the same chat reach
// the transport in the order they were accepted.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*chatLock
}

type chatLock struct {
	mu       sync.Mutex
	lastUsed time.Time
	// holders counts goroutines holding or waiting on mu
	holders int
}

func NewManager() *Manager {
	return &Manager{
		locks: make(map[string]*chatLock),
	}
}

// WithLock executes fn while holding the per-chat mutex.
// Sends to the same chat are serialized; different chats run in parallel.
func (m *Manager) WithLock(chat string, fn func() error) error {
	m.mu.Lock()
	cl, ok := m.locks[chat]
	if !ok {
		cl = &chatLock{}
		m.locks[chat] = cl
	}
	cl.holders++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		cl.holders--
		m.mu.Unlock()
	}()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	m.mu.Lock()
	cl.lastUsed = time.Now()
	m.mu.Unlock()
	return fn()
}

// Cleanup removes idle locks not used within maxAge.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for chat, cl := range m.locks {
		if cl.holders == 0 && now.Sub(cl.lastUsed) > maxAge {
			delete(m.locks, chat)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked chats.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
