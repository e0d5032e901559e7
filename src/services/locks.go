package services

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks hands out one mutex per account id so trades on the same
// account serialize while trades on different accounts run in parallel.
// Locks are never removed; the map grows with the number of accounts that
// have ever traded in this process, which is bounded and tiny.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *accountLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
