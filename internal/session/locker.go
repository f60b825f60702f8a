package session

import (
	"context"
	"sync"
)

// RemoteLock excludes other processes from a session key.
type RemoteLock interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Locker serialises work per session key. Locks for idle keys are released
// so the map does not grow with every customer ever seen.
type Locker struct {
	mu     sync.Mutex
	locks  map[string]*keyLock
	remote RemoteLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// NewSharedLocker creates a Locker that also holds remote's lease for a
// key, so replicas sharing a session store serialise turns too.
func NewSharedLocker(remote RemoteLock) *Locker {
	l := NewLocker()
	l.remote = remote
	return l
}

// Acquire takes the in-process lock for key, then the remote lease when
// one is configured. The returned func releases both.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	unlock := l.Lock(key)
	if l.remote == nil {
		return unlock, nil
	}
	release, err := l.remote.Acquire(ctx, key)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		release()
		unlock()
	}, nil
}

// Lock blocks until key is free and returns its unlock func.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
