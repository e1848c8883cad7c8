package engine

import "sync"

// sessionLocks is a keyed lock registry: one mutex per session ID, created
// lazily. Ingestion, chat-turn completion, rename and delete on the same
// session serialize through it; different sessions share nothing.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[string]*sync.Mutex)}
}

func (l *sessionLocks) get(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.m[sessionID]
	if !ok {
		lk = &sync.Mutex{}
		l.m[sessionID] = lk
	}
	return lk
}
