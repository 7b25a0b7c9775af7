package session

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidSession is returned when a store is asked to persist a session that breaks
// the status invariant.
var ErrInvalidSession = errors.New("invalid session")

// ErrStoreUnavailable is returned when the backing engine of a store fails.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrSessionCorrupt is returned when a persisted session blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

// Store persists the single current [Session] of a client installation.
//
// Load on an empty store returns [Anonymous] and a nil error. Clear on an empty store
// is a no-op.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current Session
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{current: Anonymous()}
}

// NewMemoryStoreWith returns a [MemoryStore] seeded with s.
func NewMemoryStoreWith(s Session) *MemoryStore {
	return &MemoryStore{current: s}
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if !s.Valid() {
		return ErrInvalidSession
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.current = Anonymous()
	m.mu.Unlock()
	return nil
}
