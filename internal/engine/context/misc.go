package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// Yield is a voluntary scheduling point with no other effect, for test
// bodies that want to widen the set of interleavings a scheduler explores
// without touching any shared state.
func (c *Context) Yield() {
	thread := c.current
	c.log.Append(history.Event{Thread: thread, Kind: history.KindYield, Reason: scheduler.ReasonUser})
	c.suspend(scheduler.ReasonUser)
}

// Rand returns a scheduler-controlled integer in [0, limit), tagged with
// purpose so a FullSearch or ContextBound strategy can branch on it exactly
// like any other choice point (spec.md's sched_type restoration treats
// "random choice requested by the test" as first-class, not a side
// channel the scheduler can't see).
func (c *Context) Rand(limit int, purpose string) int {
	return c.sched.Rand(limit, purpose)
}

// Hash returns a stable-within-iteration surrogate for ptr, letting test
// bodies hash addresses (e.g. to pick a bucket in a lock-striped map)
// without the result depending on ASLR (internal/engine/addrhash).
func (c *Context) Hash(ptr uintptr) uint64 {
	return c.hash.Hash(ptr)
}

// Spawn brings a dynamic thread online, up to Capacity. It returns the new
// thread's id. The caller is responsible for starting that thread's fiber
// and calling BindYielder before ever resuming it.
func (c *Context) Spawn() (int, error) {
	if c.threads >= c.capacity {
		return 0, fmt.Errorf("racesim: spawn exceeds thread capacity %d", c.capacity)
	}
	id := c.threads
	c.threads++
	c.clocks[id].Reset()
	c.status[id] = stateRunnable
	c.fenceReleaseClock[id] = nil
	c.pendingAcquire[id] = nil

	thread := c.current
	clock := c.clocks[thread]
	clock.Advance(thread)
	c.noteProgress()
	c.clocks[id].Join(clock)

	c.log.Append(history.Event{Thread: thread, Kind: history.KindSpawn, Reason: scheduler.ReasonSched, Detail: fmt.Sprintf("spawned=%d", id)})
	c.suspend(scheduler.ReasonSched)
	return id, nil
}
