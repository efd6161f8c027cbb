package kmutex

import (
	"sync"
	"sync/atomic"

	"github.com/NathanVRyver/preemptive-threads/internal/spinwait"
)

const (
	unlocked = iota
	locked
	lockedWithWaiters
)

// spinAttempts bounds the spin phase before falling back to the wait list.
// Each attempt's backoff step does proportionally more work than the
// last (spinwait's doubling escalation), so this approximates spec §4.7's
// "bounded exponential backoff up to ~64 spins" without needing the shared
// spinwait helper to report a raw spin count back to its caller.
const spinAttempts = 10

// Mutex is the one-word CAS mutex of spec §4.7: state is 0 (unlocked), 1
// (locked, no known waiters) or 2 (locked, at least one waiter registered).
// The zero Mutex is ready to use.
type Mutex struct {
	state atomic.Int32

	waitersMu sync.Mutex
	waiters   []chan struct{}
}

// TryLock attempts a single acquire CAS and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(unlocked, locked)
}

// Lock acquires the mutex, spinning briefly before blocking on the wait
// list (spec §4.7).
func (m *Mutex) Lock() {
	if m.TryLock() {
		return
	}
	b := spinwait.New()
	for i := 0; i < spinAttempts; i++ {
		if m.TryLock() {
			return
		}
		b.Wait()
	}
	m.lockSlow()
}

// lockSlow registers the caller on the wait list, advertising
// lockedWithWaiters so the holder's Unlock knows to wake someone, then
// blocks until woken. The waiter is handed the lock directly by Unlock -
// it never needs to re-CAS after waking.
func (m *Mutex) lockSlow() {
	for {
		m.waitersMu.Lock()
		if m.state.CompareAndSwap(unlocked, locked) {
			m.waitersMu.Unlock()
			return
		}
		if !m.state.CompareAndSwap(locked, lockedWithWaiters) && m.state.Load() == unlocked {
			m.waitersMu.Unlock()
			continue
		}
		ch := make(chan struct{})
		m.waiters = append(m.waiters, ch)
		m.waitersMu.Unlock()

		<-ch
		return
	}
}

// Unlock releases the mutex, waking one waiter if any are registered
// (spec §4.7: "unlock is a release store if state=1, or a wake-one if
// state=2").
func (m *Mutex) Unlock() {
	if m.state.CompareAndSwap(locked, unlocked) {
		return
	}

	m.waitersMu.Lock()
	if len(m.waiters) == 0 {
		// No registered waiter. lockSlow sets lockedWithWaiters and appends
		// its channel while holding waitersMu, so this is reached only when
		// the state was not lockedWithWaiters (e.g. Unlock on an unlocked
		// mutex); nothing to hand off to, so just release.
		m.state.Store(unlocked)
		m.waitersMu.Unlock()
		return
	}
	ch := m.waiters[0]
	m.waiters = m.waiters[1:]
	if len(m.waiters) == 0 {
		m.state.Store(locked)
	}
	m.waitersMu.Unlock()

	close(ch)
}

// Guard is the RAII-style lock scope: Release is equivalent to a Rust drop.
type Guard struct {
	m        *Mutex
	released bool
}

// LockGuard locks m and returns a Guard that releases it on Release.
func (m *Mutex) LockGuard() *Guard {
	m.Lock()
	return &Guard{m: m}
}

// Release unlocks the guarded mutex. Calling it twice panics.
func (g *Guard) Release() {
	if g.released {
		panic("kmutex: guard released twice")
	}
	g.released = true
	g.m.Unlock()
}
