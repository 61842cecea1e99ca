package pipeline

import (
	"sync"

	"cloud.google.com/go/civil"
)

// monthLocks serializes read-merge-write cycles per (user, month) inside one
// process. Entries are dropped once no goroutine holds or waits on them.
type monthLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newMonthLocks() *monthLocks {
	return &monthLocks{entries: make(map[string]*lockEntry)}
}

// lock blocks until the (user, month) slot is free and returns its unlock func.
func (l *monthLocks) lock(userID string, month civil.Date) func() {
	key := userID + "|" + month.String()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

func (l *monthLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
