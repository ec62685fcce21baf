package fuse

import (
	"sync"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.KeyLocker = (*Locker)(nil)

// Locker serializes work per entity key. Distinct keys never block each
// other. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[wikifuse.EntityKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return &Locker{}
}

// Lock blocks until key is free and returns its unlock function.
func (l *Locker) Lock(key wikifuse.EntityKey) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[wikifuse.EntityKey]*keyLock)
	}
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

// Len returns the number of keys currently locked or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
