// Package lock provides per-evidence-item mutual exclusion for ledger
// mutations. Sequence assignment and hash chaining are not commutative, so
// all mutations for one item are serialized; different items never contend.
//
// Acquisition is bounded: custody operations are interactive, and a caller
// stuck behind a slow writer gets ErrBusy rather than an unbounded wait.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when the per-item lock could not be acquired within the
// configured wait. Callers surface it as a retryable Busy error.
var ErrBusy = errors.New("evidence item busy")

// Keyed serializes operations per key. Acquire blocks until the key's lock is
// held, the wait budget runs out (ErrBusy), or ctx is done. The returned
// release function must be called exactly once.
type Keyed interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// DefaultWait bounds lock acquisition for interactive custody operations.
const DefaultWait = 3 * time.Second

// KeyedMutex is the in-process Keyed implementation: one channel-based mutex
// per live key, reference-counted so idle keys do not leak.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*itemLock
	wait  time.Duration
}

type itemLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex builds a KeyedMutex with the given acquisition budget; zero
// means DefaultWait.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &KeyedMutex{locks: make(map[string]*itemLock), wait: wait}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &itemLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			m.unref(key, l)
		}, nil
	case <-timer.C:
		m.unref(key, l)
		return nil, ErrBusy
	case <-ctx.Done():
		m.unref(key, l)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) unref(key string, l *itemLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}
