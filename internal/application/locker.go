package application

import "sync"

// pathLocker serializes operations per workspace key. Git's index and HEAD
// are single-writer state, so no two operations may run concurrently
// against the same (repository, user) working directory.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*workspaceLock
}

type workspaceLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*workspaceLock)}
}

// acquire blocks until the named workspace is exclusively held and returns
// the release function. Entries are dropped once the last waiter releases.
func (l *pathLocker) acquire(key string) func() {
	l.mu.Lock()
	wl, ok := l.locks[key]
	if !ok {
		wl = &workspaceLock{}
		l.locks[key] = wl
	}
	wl.refs++
	l.mu.Unlock()

	wl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			wl.mu.Unlock()
			l.mu.Lock()
			wl.refs--
			if wl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}
