// Package syncobj implements the shared synchronization-object state from
// spec.md §3/§4.D: mutex, condition variable, semaphore, event, each built
// on a common Waitset of parked threads.
//
// These types hold bookkeeping only — they decide *whether* a thread may
// proceed and *which* clock a waking thread should join, but the actual
// suspension of a logical thread (asking the scheduler for permission,
// switching its fiber) is the execution context's job (internal/engine/context),
// so that syncobj never needs to import scheduler or fiber and stays trivial
// to unit test in isolation.
package syncobj

// Waiter is one thread parked on a Waitset.
type Waiter struct {
	Thread int
	Timed  bool
}

// Waitset is a FIFO of parked threads, the building block every sync object
// in this package shares (spec.md §4.D).
type Waitset struct {
	waiters []Waiter
}

// Park enqueues thread as blocked, timed or not, and returns the new Waiter.
func (w *Waitset) Park(thread int, timed bool) *Waiter {
	w.waiters = append(w.waiters, Waiter{Thread: thread, Timed: timed})
	return &w.waiters[len(w.waiters)-1]
}

// Empty reports whether any thread is parked.
func (w *Waitset) Empty() bool {
	return len(w.waiters) == 0
}

// Len reports how many threads are parked.
func (w *Waitset) Len() int {
	return len(w.waiters)
}

// Peek returns the waiters currently parked, oldest first, without removing
// them.
func (w *Waitset) Peek() []Waiter {
	return w.waiters
}

// Remove dequeues and returns the waiter parked by the given thread, or
// false if that thread is not parked here. Removal is order-preserving
// (FIFO for the remaining waiters).
func (w *Waitset) Remove(thread int) (Waiter, bool) {
	for i, wt := range w.waiters {
		if wt.Thread == thread {
			out := wt
			w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
			return out, true
		}
	}
	return Waiter{}, false
}

// PopFront dequeues and returns the longest-waiting thread (FIFO wake
// order), or false if nobody is parked.
func (w *Waitset) PopFront() (Waiter, bool) {
	if len(w.waiters) == 0 {
		return Waiter{}, false
	}
	out := w.waiters[0]
	w.waiters = w.waiters[1:]
	return out, true
}

// PopAll dequeues and returns every parked thread, oldest first. Used by
// broadcast-style wakes (CondVar.Broadcast, Event.Set).
func (w *Waitset) PopAll() []Waiter {
	out := w.waiters
	w.waiters = nil
	return out
}

// Reset clears the waitset, for per-iteration reuse.
func (w *Waitset) Reset() {
	w.waiters = w.waiters[:0]
}
