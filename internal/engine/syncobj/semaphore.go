package syncobj

import "github.com/kolkov/racesim/internal/engine/vclock"

// Semaphore is a counting semaphore: Acquire succeeds immediately while the
// count is positive, otherwise the caller must park on the Waitset; Release
// either wakes a parked thread (handing it the releaser's clock) or, if
// nobody is waiting, increments the count for a future Acquire to consume.
type Semaphore struct {
	Waitset

	count        int
	releaseClock *vclock.VectorClock
}

// NewSemaphore returns a semaphore initialized to the given count.
func NewSemaphore(threads, initial int) *Semaphore {
	return &Semaphore{count: initial, releaseClock: vclock.New(threads)}
}

// TryAcquire attempts to take one permit for thread. On success it joins
// the accumulated release clock into threadClock and returns true; on
// failure the caller must Park the thread.
func (s *Semaphore) TryAcquire(threadClock *vclock.VectorClock) bool {
	if s.count <= 0 {
		return false
	}
	s.count--
	threadClock.Join(s.releaseClock)
	return true
}

// Release returns one permit. If a thread is parked, it is woken (the
// permit is handed directly to it rather than incrementing the count) and
// returned — the caller joins s's accumulated release clock into the woken
// thread's own clock, the same as TryAcquire does; otherwise the count is
// incremented and ok is false.
func (s *Semaphore) Release(releaserClock *vclock.VectorClock) (woken Waiter, ok bool) {
	s.releaseClock.Join(releaserClock)
	if w, has := s.PopFront(); has {
		return w, true
	}
	s.count++
	return Waiter{}, false
}

// Count reports the current available permits (ignoring parked waiters).
func (s *Semaphore) Count() int {
	return s.count
}

// Reset restores the semaphore to its initial count and clears waiters; the
// release clock is also cleared since it carries forward happens-before
// edges that should not leak across iterations.
func (s *Semaphore) Reset(initial int) {
	s.Waitset.Reset()
	s.count = initial
	s.releaseClock.Reset()
}
