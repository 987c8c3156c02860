package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/atomichist"
	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/memorder"
	"github.com/kolkov/racesim/internal/engine/scheduler"
	"github.com/kolkov/racesim/internal/engine/vclock"
)

// AtomicLoad performs a load of order on cell, for the calling thread
// (Context.Current()), choosing among the history entries currently
// visible to that thread's clock (spec.md §4.B) and joining the chosen
// entry's carried clocks per C++11 acquire semantics.
func (c *Context) AtomicLoad(label string, cell *atomichist.Cell, order memorder.Order) uint64 {
	thread := c.current
	clock := c.clocks[thread]

	var visible []atomichist.Entry
	if order == memorder.SeqCst {
		visible = cell.VisibleSeqCst(clock, c.seqCstFence(thread))
	} else {
		visible = cell.Visible(clock)
	}
	if len(visible) == 0 {
		c.fail(history.UninitializedAccess, fmt.Sprintf("load of %q before any store", label), thread)
		return 0
	}

	idx := 0
	if len(visible) > 1 {
		idx = c.sched.Rand(len(visible), "atomic_load")
	}
	entry := visible[idx]

	if order.HasAcquire() {
		clock.Join(entry.AcquireCarry)
	} else {
		// A relaxed load still owes its acquire-carry to a *later* fence
		// (SPEC_FULL.md domain expansion #2): remember it for FenceAcquire
		// to drain.
		c.pendingAcquire[thread] = append(c.pendingAcquire[thread], entry.AcquireCarry)
	}

	c.log.Append(history.Event{
		Thread: thread, Kind: history.KindAtomicLoad, Reason: scheduler.ReasonAtomicLoad,
		Object: label, Detail: fmt.Sprintf("value=%d order=%s", entry.Value, order),
	})
	c.suspend(scheduler.ReasonAtomicLoad)
	return entry.Value
}

// AtomicStore performs a store of value with order on cell.
func (c *Context) AtomicStore(label string, cell *atomichist.Cell, value uint64, order memorder.Order) {
	thread := c.current
	clock := c.clocks[thread]
	clock.Advance(thread)
	c.noteProgress()

	entry := atomichist.Entry{
		Value:      value,
		Writer:     thread,
		StoreClock: clock.Clone(),
		SeqCst:     order == memorder.SeqCst,
	}
	releaseClock := clock
	if fc := c.fenceReleaseClock[thread]; fc != nil {
		releaseClock = clock.Clone()
		releaseClock.Join(fc)
	}
	if order.HasRelease() || c.fenceReleaseClock[thread] != nil {
		entry.AcquireCarry = releaseClock.Clone()
		entry.ReleaseClock = releaseClock.Clone()
	} else {
		entry.AcquireCarry = vclock.New(clock.Len())
		entry.ReleaseClock = vclock.New(clock.Len())
	}
	cell.Append(entry)

	c.log.Append(history.Event{
		Thread: thread, Kind: history.KindAtomicStore, Reason: scheduler.ReasonSched,
		Object: label, Detail: fmt.Sprintf("value=%d order=%s", value, order),
	})
	c.suspend(scheduler.ReasonSched)
}

// AtomicRMW performs a read-modify-write: loads the newest entry, computes
// apply(old) for the new value, and stores it with full acquire-release
// strength regardless of order (an RMW always participates in the release
// sequence, per C++11).
func (c *Context) AtomicRMW(label string, cell *atomichist.Cell, order memorder.Order, apply func(old uint64) uint64) uint64 {
	thread := c.current
	clock := c.clocks[thread]

	newest, ok := cell.Newest()
	if !ok {
		c.fail(history.UninitializedAccess, fmt.Sprintf("RMW on %q before any store", label), thread)
		return 0
	}
	if order.HasAcquire() {
		clock.Join(newest.AcquireCarry)
	}
	old := newest.Value
	clock.Advance(thread)
	c.noteProgress()

	next := apply(old)
	entry := atomichist.Entry{
		Value:        next,
		Writer:       thread,
		StoreClock:   clock.Clone(),
		AcquireCarry: clock.Clone(),
		ReleaseClock: clock.Clone(),
		SeqCst:       order == memorder.SeqCst,
	}
	cell.Append(entry)

	c.log.Append(history.Event{
		Thread: thread, Kind: history.KindAtomicRMW, Reason: scheduler.ReasonSched,
		Object: label, Detail: fmt.Sprintf("old=%d new=%d order=%s", old, next, order),
	})
	c.suspend(scheduler.ReasonSched)
	return old
}

// CompareAndSwap performs cell.CAS(expected, desired, order): if the
// newest value matches expected it stores desired and returns true;
// otherwise it returns false without storing. Only the failure path records
// a scheduler choice point (purpose "cas_fail"), after the failure is
// already decided; spurious failure of a matching CAS is not modeled.
func (c *Context) CompareAndSwap(label string, cell *atomichist.Cell, expected, desired uint64, order memorder.Order) bool {
	thread := c.current
	newest, ok := cell.Newest()
	if !ok || newest.Value != expected {
		c.sched.Rand(1, "cas_fail")
		c.log.Append(history.Event{Thread: thread, Kind: history.KindAtomicRMW, Reason: scheduler.ReasonCASFail, Object: label, Detail: "cas_fail"})
		c.suspend(scheduler.ReasonCASFail)
		return false
	}
	c.AtomicRMW(label, cell, order, func(uint64) uint64 { return desired })
	return true
}

// FenceAcquire drains every pending relaxed-load acquire-carry recorded
// since the last fence, joining them into the calling thread's clock
// (SPEC_FULL.md domain expansion #2).
func (c *Context) FenceAcquire() {
	thread := c.current
	for _, carry := range c.pendingAcquire[thread] {
		c.clocks[thread].Join(carry)
	}
	c.pendingAcquire[thread] = nil
	c.log.Append(history.Event{Thread: thread, Kind: history.KindFence, Reason: scheduler.ReasonSched, Detail: "acquire"})
	c.suspend(scheduler.ReasonSched)
}

// FenceRelease snapshots the calling thread's clock so that every
// subsequent store (even a relaxed one) carries it as a release clock,
// until the thread ends or issues another release fence.
func (c *Context) FenceRelease() {
	thread := c.current
	c.fenceReleaseClock[thread] = c.clocks[thread].Clone()
	c.log.Append(history.Event{Thread: thread, Kind: history.KindFence, Reason: scheduler.ReasonSched, Detail: "release"})
	c.suspend(scheduler.ReasonSched)
}

// FenceAcqRel drains pending acquire-carries and snapshots a release
// clock in the same step, the combined strength a full acq_rel fence
// needs.
func (c *Context) FenceAcqRel() {
	thread := c.current
	for _, carry := range c.pendingAcquire[thread] {
		c.clocks[thread].Join(carry)
	}
	c.pendingAcquire[thread] = nil
	c.fenceReleaseClock[thread] = c.clocks[thread].Clone()
	c.log.Append(history.Event{Thread: thread, Kind: history.KindFence, Reason: scheduler.ReasonSched, Detail: "acq_rel"})
	c.suspend(scheduler.ReasonSched)
}

// FenceSeqCst has acq_rel strength and additionally anchors the calling
// thread into the single global seq-cst total order (spec.md §3's
// "Seq-cst fence order" / §4.A: "the global seq-cst fence joins every
// thread's clock with every other thread's"): it publishes the caller's
// clock into the shared seqCstClock and pulls the shared clock back into
// the caller, so every thread that has ever issued a seq-cst fence is
// transitively ordered against every other one.
func (c *Context) FenceSeqCst() {
	thread := c.current
	for _, carry := range c.pendingAcquire[thread] {
		c.clocks[thread].Join(carry)
	}
	c.pendingAcquire[thread] = nil
	c.fenceReleaseClock[thread] = c.clocks[thread].Clone()

	c.seqCstClock.Join(c.clocks[thread])
	c.clocks[thread].Join(c.seqCstClock)

	c.log.Append(history.Event{Thread: thread, Kind: history.KindFence, Reason: scheduler.ReasonSched, Detail: "seq_cst"})
	c.suspend(scheduler.ReasonSched)
}

// seqCstFence returns the total-order anchor a seq_cst load must respect:
// the shared seqCstClock every FenceSeqCst call has contributed to so far,
// joined with the calling thread's own clock and any release-fence carry
// in effect, so a thread's first seq-cst operation already sees every
// fence that happened before it in the single global order.
func (c *Context) seqCstFence(thread int) *vclock.VectorClock {
	out := c.seqCstClock.Clone()
	out.Join(c.clocks[thread])
	if fc := c.fenceReleaseClock[thread]; fc != nil {
		out.Join(fc)
	}
	return out
}
