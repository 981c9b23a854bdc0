package service

import (
	"sync"

	"airdrop_backend/internal/model"
)

// userLocks serializes the read-rate-write sequences of one user record so
// the stored rating always matches the stored inputs.
type userLocks struct {
	mu    sync.Mutex
	locks map[model.UserFilter]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[model.UserFilter]*userLock)}
}

// lock blocks until filter's record is free and returns its unlock func.
func (l *userLocks) lock(filter model.UserFilter) func() {
	l.mu.Lock()
	ul, ok := l.locks[filter]
	if !ok {
		ul = &userLock{}
		l.locks[filter] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, filter)
		}
		l.mu.Unlock()
	}
}
