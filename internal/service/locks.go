package service

import "sync"

// ProjectLocks serializes state transitions per project id. Operations on
// different projects proceed in parallel; two writers on the same project
// never interleave. Lock entries are never evicted, which is acceptable for
// the entity counts this service sees.
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for a project and returns the unlock func.
func (l *ProjectLocks) Lock(projectID string) func() {
	l.mu.Lock()
	m, ok := l.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[projectID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
