package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/memmgr"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// Alloc requests a new heap block of size bytes, returning an opaque handle
// the calling thread must later pass to Free or Touch.
func (c *Context) Alloc(size int) int64 {
	thread := c.current
	handle := c.mem.Alloc(size)
	c.log.Append(history.Event{Thread: thread, Kind: history.KindAlloc, Reason: scheduler.ReasonSched, Detail: fmt.Sprintf("handle=%d size=%d", handle, size)})
	c.suspend(scheduler.ReasonSched)
	return handle
}

// Free releases handle. A double free is reported immediately; a
// use-after-free is only detectable later, at the Touch that dereferences a
// deferred (but already freed) block.
func (c *Context) Free(handle int64) {
	thread := c.current
	switch c.mem.Free(handle) {
	case memmgr.FreeDoubleFree:
		c.fail(history.DoubleFree, fmt.Sprintf("double free of handle %d", handle), thread)
		return
	case memmgr.FreeUnknownHandle:
		c.fail(history.DoubleFree, fmt.Sprintf("free of unknown handle %d", handle), thread)
		return
	}
	c.log.Append(history.Event{Thread: thread, Kind: history.KindFree, Reason: scheduler.ReasonSched, Detail: fmt.Sprintf("handle=%d", handle)})
	c.suspend(scheduler.ReasonSched)
}

// Touch dereferences handle without freeing it, the hook bodies use to
// expose use-after-free on a block whose free was deferred rather than
// applied immediately (spec.md §4.E).
func (c *Context) Touch(handle int64) {
	thread := c.current
	switch c.mem.Touch(handle) {
	case memmgr.TouchUseAfterFree:
		c.fail(history.UninitializedAccess, fmt.Sprintf("use after free of handle %d", handle), thread)
		return
	case memmgr.TouchUnknownHandle:
		c.fail(history.UninitializedAccess, fmt.Sprintf("access to unknown handle %d", handle), thread)
		return
	}
	c.suspend(scheduler.ReasonSched)
}
