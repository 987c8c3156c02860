package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
	"github.com/kolkov/racesim/internal/engine/syncobj"
)

// block marks the calling thread blocked and asks the scheduler whether
// that would deadlock every remaining thread. On deadlock it records the
// failure and returns false; the caller must stop without suspending
// further.
func (c *Context) block(timed, allowSpurious bool, label, kind string) bool {
	thread := c.current
	c.status[thread] = stateBlocked
	if !c.sched.ParkCurrent(timed, allowSpurious, len(c.runnableThreads())) {
		c.fail(history.Deadlock, fmt.Sprintf("thread blocked on %s %q would deadlock", kind, label), thread)
		return false
	}
	return true
}

// MutexLock acquires m for the calling thread, blocking (cooperatively) if
// it is already held elsewhere.
func (c *Context) MutexLock(label string, m *syncobj.Mutex) {
	thread := c.current
	clock := c.clocks[thread]
	if m.TryLock(thread, clock) {
		c.log.Append(history.Event{Thread: thread, Kind: history.KindMutexLock, Reason: scheduler.ReasonSched, Object: label})
		c.suspend(scheduler.ReasonSched)
		return
	}
	m.Park(thread, false)
	if !c.block(false, false, label, "mutex") {
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindMutexLock, Reason: scheduler.ReasonSched, Object: label, Detail: "parked"})
	c.suspend(scheduler.ReasonSched)
}

// MutexUnlock releases m, waking the longest-waiting parked thread (if
// any) by handing it the lock directly.
func (c *Context) MutexUnlock(label string, m *syncobj.Mutex) {
	thread := c.current
	clock := c.clocks[thread]
	freed := m.Unlock(thread, clock)
	c.log.Append(history.Event{Thread: thread, Kind: history.KindMutexUnlock, Reason: scheduler.ReasonSched, Object: label})
	if freed {
		c.handOffMutex(m)
	}
	c.suspend(scheduler.ReasonSched)
}

func (c *Context) handOffMutex(m *syncobj.Mutex) {
	w, ok := m.PopFront()
	if !ok {
		return
	}
	m.TryLock(w.Thread, c.clocks[w.Thread])
	c.wake(w.Thread)
}

// wake promotes a parked thread to runnable, routing the decision through
// the scheduler (spec.md §4.D) rather than poking c.status directly, so a
// strategy that wants to record or replay wakeup order has a single place
// to observe it. doSwitch is always false here: the waking thread keeps
// running until its own suspend point, it never hands off control directly.
func (c *Context) wake(thread int) {
	c.status[thread] = stateRunnable
	c.sched.Unpark(thread, false)
}

// CondVarWait atomically (from the model's perspective) releases m and
// parks on cv, then reacquires m once woken.
func (c *Context) CondVarWait(label string, cv *syncobj.CondVar, m *syncobj.Mutex) {
	thread := c.current
	clock := c.clocks[thread]

	if m.Unlock(thread, clock) {
		c.handOffMutex(m)
	}
	cv.Park(thread, false)
	if !c.block(false, true, label, "condvar") {
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindCondVarWait, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
	if c.failure != nil {
		return
	}

	for !m.TryLock(thread, clock) {
		m.Park(thread, false)
		if !c.block(false, false, label, "mutex") {
			return
		}
		c.suspend(scheduler.ReasonSched)
		if c.failure != nil {
			return
		}
	}
}

// CondVarSignal wakes the single longest-waiting thread parked on cv, if
// any.
func (c *Context) CondVarSignal(label string, cv *syncobj.CondVar) {
	thread := c.current
	clock := c.clocks[thread]
	if woken, ok := cv.Signal(); ok {
		c.clocks[woken].Join(clock)
		c.wake(woken)
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindCondVarSignal, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}

// CondVarBroadcast wakes every thread parked on cv.
func (c *Context) CondVarBroadcast(label string, cv *syncobj.CondVar) {
	thread := c.current
	clock := c.clocks[thread]
	for _, w := range cv.Broadcast() {
		c.clocks[w.Thread].Join(clock)
		c.wake(w.Thread)
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindCondVarBroadcast, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}

// SemaphoreAcquire takes one permit from s, blocking if none are
// available.
func (c *Context) SemaphoreAcquire(label string, s *syncobj.Semaphore) {
	thread := c.current
	clock := c.clocks[thread]
	if s.TryAcquire(clock) {
		c.log.Append(history.Event{Thread: thread, Kind: history.KindSemaphoreAcquire, Reason: scheduler.ReasonSched, Object: label})
		c.suspend(scheduler.ReasonSched)
		return
	}
	s.Park(thread, false)
	if !c.block(false, false, label, "semaphore") {
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindSemaphoreAcquire, Reason: scheduler.ReasonSched, Object: label, Detail: "parked"})
	c.suspend(scheduler.ReasonSched)
}

// SemaphoreRelease returns one permit to s, handing it directly to a
// parked thread if one is waiting.
func (c *Context) SemaphoreRelease(label string, s *syncobj.Semaphore) {
	thread := c.current
	clock := c.clocks[thread]
	if w, woken := s.Release(clock); woken {
		c.clocks[w.Thread].Join(clock)
		c.wake(w.Thread)
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindSemaphoreRelease, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}

// EventWait blocks until e is signaled (TryWait succeeds).
func (c *Context) EventWait(label string, e *syncobj.Event) {
	thread := c.current
	clock := c.clocks[thread]
	if e.TryWait(clock) {
		c.log.Append(history.Event{Thread: thread, Kind: history.KindEventWait, Reason: scheduler.ReasonSched, Object: label})
		c.suspend(scheduler.ReasonSched)
		return
	}
	e.Park(thread, false)
	if !c.block(false, false, label, "event") {
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindEventWait, Reason: scheduler.ReasonSched, Object: label, Detail: "parked"})
	c.suspend(scheduler.ReasonSched)
}

// EventSet latches e and wakes every parked thread.
func (c *Context) EventSet(label string, e *syncobj.Event) {
	thread := c.current
	clock := c.clocks[thread]
	for _, w := range e.Set(clock) {
		c.clocks[w.Thread].Join(clock)
		c.wake(w.Thread)
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindEventSet, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}
