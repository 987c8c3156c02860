package syncobj

import "github.com/kolkov/racesim/internal/engine/vclock"

// Mutex is the bookkeeping for one (possibly recursive) mutex, grounded on
// the release-clock handoff pattern from the teacher's syncshadow.SyncVar
// (SetReleaseClock/Join-on-acquire), generalized with the owner/recursion
// tracking and Waitset a real blocking mutex needs that a passive shadow
// (which never blocks a real goroutine) does not.
type Mutex struct {
	Waitset

	owner        int
	hasOwner     bool
	recursion    int
	releaseClock *vclock.VectorClock
}

// NewMutex returns an unlocked mutex.
func NewMutex(threads int) *Mutex {
	return &Mutex{releaseClock: vclock.New(threads)}
}

// TryLock attempts to acquire the mutex for thread. On success, it joins
// the release clock left by the last unlock into threadClock (establishing
// happens-before from the previous critical section) and returns true. On
// failure (another thread owns it, non-recursively) it returns false and
// the caller must park the thread on the Waitset.
func (m *Mutex) TryLock(thread int, threadClock *vclock.VectorClock) bool {
	if m.hasOwner && m.owner != thread {
		return false
	}
	if m.hasOwner && m.owner == thread {
		m.recursion++
		return true
	}
	m.hasOwner = true
	m.owner = thread
	m.recursion = 1
	threadClock.Join(m.releaseClock)
	return true
}

// Unlock releases one level of recursion for thread. Once recursion reaches
// zero, the mutex is freed and threadClock is captured as the release clock
// future acquirers will join. Returns true once the mutex is actually free
// (recursion reached zero) so the caller knows whether to wake a waiter.
func (m *Mutex) Unlock(thread int, threadClock *vclock.VectorClock) bool {
	if !m.hasOwner || m.owner != thread {
		return false
	}
	m.recursion--
	if m.recursion > 0 {
		return false
	}
	m.hasOwner = false
	m.releaseClock.CopyFrom(threadClock)
	return true
}

// IsLocked reports whether any thread currently owns the mutex.
func (m *Mutex) IsLocked() bool {
	return m.hasOwner
}

// Owner returns the owning thread and whether the mutex is held.
func (m *Mutex) Owner() (int, bool) {
	return m.owner, m.hasOwner
}

// Reset restores the mutex to its unlocked, never-acquired state.
func (m *Mutex) Reset() {
	m.Waitset.Reset()
	m.hasOwner = false
	m.owner = 0
	m.recursion = 0
	m.releaseClock.Reset()
}
