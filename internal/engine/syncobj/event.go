package syncobj

import "github.com/kolkov/racesim/internal/engine/vclock"

// Event is a manual-reset event: Set wakes every currently parked thread and
// latches signaled so future Waits return immediately; Reset un-latches it.
type Event struct {
	Waitset

	signaled     bool
	releaseClock *vclock.VectorClock
}

// NewEvent returns an unsignaled event.
func NewEvent(threads int) *Event {
	return &Event{releaseClock: vclock.New(threads)}
}

// TryWait returns true (joining the release clock) if the event is already
// signaled; otherwise the caller must Park the thread.
func (e *Event) TryWait(threadClock *vclock.VectorClock) bool {
	if !e.signaled {
		return false
	}
	threadClock.Join(e.releaseClock)
	return true
}

// Set latches the event and releases every parked thread — the caller
// joins e's accumulated release clock into each woken thread's own clock,
// the same as TryWait does.
func (e *Event) Set(setterClock *vclock.VectorClock) []Waiter {
	e.signaled = true
	e.releaseClock.Join(setterClock)
	return e.PopAll()
}

// Clear un-latches the event (the user-visible "reset" operation on a
// manual-reset event). Waiters already parked remain parked — this only
// affects future TryWait calls. Named Clear because Reset is the
// per-iteration teardown, which also drops the parked waiters.
func (e *Event) Clear() {
	e.signaled = false
}

// IsSet reports the current latch state.
func (e *Event) IsSet() bool {
	return e.signaled
}

// Reset restores the event to its unsignaled, never-waited-on state,
// clearing both the latch and any parked waiters. This shadows
// Waitset.Reset deliberately: per-iteration teardown must also un-latch.
func (e *Event) Reset() {
	e.Waitset.Reset()
	e.signaled = false
	e.releaseClock.Reset()
}
