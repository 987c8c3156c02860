package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
	"github.com/kolkov/racesim/internal/engine/varstate"
)

// NonAtomicRead records a read of an ordinary variable, reporting a data
// race if any concurrent unsynchronized store has touched it.
func (c *Context) NonAtomicRead(label string, v *varstate.State) {
	thread := c.current
	clock := c.clocks[thread]
	if !v.Load(clock) {
		c.fail(history.DataRace, fmt.Sprintf("racy read of %q", label), thread)
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindNonAtomicRead, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}

// NonAtomicWrite records a write to an ordinary variable, reporting a data
// race if any concurrent read or write has touched it without
// happens-before.
func (c *Context) NonAtomicWrite(label string, v *varstate.State) {
	thread := c.current
	clock := c.clocks[thread]
	clock.Advance(thread)
	c.noteProgress()
	if !v.Store(clock) {
		c.fail(history.DataRace, fmt.Sprintf("racy write of %q", label), thread)
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindNonAtomicWrite, Reason: scheduler.ReasonSched, Object: label})
	c.suspend(scheduler.ReasonSched)
}
