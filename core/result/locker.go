package result

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// KeyLocker serializes read-modify-write cycles on a single result.
type KeyLocker interface {
	// Lock blocks until `key` is acquired or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockKey is the lock key of the (studentID, examID) result.
func LockKey(studentID, examID string) string {
	return "result:" + examID + ":" + studentID
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{} // holds a token while locked
	refs int
}

var _ KeyLocker = (*localLocker)(nil) // interface compliance check

// NewLocalLocker returns an in-process KeyLocker. Keys are forgotten once nobody holds or waits on them.
func NewLocalLocker() KeyLocker {
	return &localLocker{locks: make(map[string]*keyLock)}
}

func (l *localLocker) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *localLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	kl := l.acquire(key)
	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, errors.Wrapf(ctx.Err(), "locking %s", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

type nopLocker struct{}

// NopLocker never blocks; saves then rely on version checks alone.
var NopLocker KeyLocker = nopLocker{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }
