package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/emu-ps2/ee2/service"
)

// ErrSessionNotFound is returned when a session is not found.
var ErrSessionNotFound = errors.New("session not found")

const (
	defaultPhysMemSize   = 32 * 1024 * 1024
	defaultCacheCapacity = 4096
)

// Session represents an active core + its engine service.
type Session struct {
	ID        string
	Service   *service.EngineService
	CreatedAt time.Time
}

// SessionManager manages multiple concurrently running cores, one per
// session, analogous to the teacher's api.SessionManager over *vm.VM.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// CreateSession builds a new core-backed session with a unique ID.
func (sm *SessionManager) CreateSession(req SessionCreateRequest) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	memSize := req.PhysicalMemSize
	if memSize == 0 {
		memSize = defaultPhysMemSize
	}
	cacheCap := req.CacheCapacity
	if cacheCap == 0 {
		cacheCap = defaultCacheCapacity
	}

	session := &Session{
		ID:        id,
		Service:   service.NewEngineService(memSize, cacheCap),
		CreatedAt: time.Now(),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[id] = session
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session by ID.
func (sm *SessionManager) DestroySession(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, id)
	return nil
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
