package services

import "sync"

// SiteLocks serializes mutating operations per site id. Build, Serve, Stop
// and Delete on the same site never interleave; different sites proceed
// independently. Registry reads are not gated by these locks.
type SiteLocks struct {
	mu    sync.Mutex
	locks map[string]*siteLock
}

type siteLock struct {
	sync.Mutex
	refs int
}

func NewSiteLocks() *SiteLocks {
	return &SiteLocks{locks: make(map[string]*siteLock)}
}

// Acquire blocks until the lock for id is held and returns the release
// function. Lock entries are reference counted and dropped when idle so the
// map does not grow with deleted sites.
func (l *SiteLocks) Acquire(id string) (release func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &siteLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()

	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
