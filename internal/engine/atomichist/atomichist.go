// Package atomichist implements the bounded per-atomic store history from
// spec.md §4.B: a ring of the last H stores to one atomic variable, each
// tagged with the clocks needed to model store-buffering and the seq-cst
// total order. A load does not simply return "the" current value — it asks
// the scheduler to pick among the entries that are still *visible* to it,
// which is what lets the engine simulate weak-memory reorderings without
// real parallel hardware.
package atomichist

import "github.com/kolkov/racesim/internal/engine/vclock"

// DefaultDepth is the ring depth used unless a test overrides it, matching
// atomic_history_size from the original implementation.
const DefaultDepth = 3

// Entry is one past store to an atomic cell.
type Entry struct {
	Value       uint64 // the stored value, as a raw 64-bit payload.
	Writer      int    // thread index that performed the store.
	StoreClock  *vclock.VectorClock
	AcquireCarry *vclock.VectorClock // joined by an acquiring load or a later acquire fence; a zero clock if the store had no release semantics.
	ReleaseClock *vclock.VectorClock // the writer's release clock; a zero clock if the store had no release semantics and no release fence was in effect.
	SeqCst      bool
}

// Cell is the bounded store history for a single atomic variable.
//
// Entries are ordered oldest-to-newest by modification order: the thread
// that wrote index k+1 witnessed index k as the current value at the time
// of its own store (spec.md §3's modification-order invariant).
type Cell struct {
	depth   int
	entries []Entry // ring buffer, len <= depth
	next    int     // write cursor into entries once full
	seq     uint64  // count of all stores ever made
}

// New creates a cell with the given ring depth (use DefaultDepth unless a
// test explicitly widens/narrows the store-buffering window).
func New(depth int) *Cell {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Cell{depth: depth, entries: make([]Entry, 0, depth)}
}

// Reset clears all history, leaving the cell as if never stored to.
func (c *Cell) Reset() {
	c.entries = c.entries[:0]
	c.next = 0
	c.seq = 0
}

// Append records a new store, evicting the oldest entry once the ring is
// full. The new entry becomes the newest, i.e. the last one in Visible's
// result.
func (c *Cell) Append(e Entry) {
	c.seq++
	if len(c.entries) < c.depth {
		c.entries = append(c.entries, e)
		return
	}
	c.entries[c.next] = e
	c.next = (c.next + 1) % c.depth
}

// Newest returns the most recent store, or false if the cell has never been
// stored to.
func (c *Cell) Newest() (Entry, bool) {
	if len(c.entries) == 0 {
		return Entry{}, false
	}
	// entries[next-1] (mod depth) is the most recently written slot once the
	// ring has wrapped; before wrapping, entries is append-ordered so the
	// last element is newest either way.
	if len(c.entries) < c.depth {
		return c.entries[len(c.entries)-1], true
	}
	idx := (c.next - 1 + c.depth) % c.depth
	return c.entries[idx], true
}

// Visible returns the entries a thread with the given clock and ordering
// may legally observe, oldest first, newest last. Per spec.md §4.B:
//   - the newest entry is always visible;
//   - an entry the reading thread has already happens-before'd being
//     overwritten (i.e. a strictly older entry than one the reader's clock
//     already dominates) is not visible — you cannot re-read a value you
//     have already observed being superseded.
func (c *Cell) Visible(readerClock *vclock.VectorClock) []Entry {
	if len(c.entries) == 0 {
		return nil
	}
	ordered := c.orderedEntries()
	newestIdx := len(ordered) - 1

	out := make([]Entry, 0, len(ordered))
	for i, e := range ordered {
		if i == newestIdx {
			out = append(out, e)
			continue
		}
		// An entry is stale (not visible) if the reader's clock already
		// dominates a strictly later store by the same modification order —
		// i.e. the reader has synchronized past this point already.
		later := ordered[i+1]
		if later.StoreClock != nil && readerClock.Dominates(later.StoreClock) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// VisibleSeqCst narrows Visible to the entries consistent with the single
// seq-cst total order: a seq-cst load may not observe an entry that is
// older, in modification order, than the last seq-cst store the loading
// thread has already witnessed via the global fence order.
func (c *Cell) VisibleSeqCst(readerClock *vclock.VectorClock, fenceOrder *vclock.VectorClock) []Entry {
	candidates := c.Visible(readerClock)
	out := candidates[:0:0]
	for _, e := range candidates {
		if e.SeqCst && e.StoreClock != nil && fenceOrder.Dominates(e.StoreClock) && !entryIsNewest(candidates, e) {
			// A seq-cst store the fence order already dominates has been
			// superseded in the total order; skip it unless it is still the
			// newest entry (which remains visible unconditionally).
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 && len(candidates) > 0 {
		// Always leave at least the newest entry visible.
		out = append(out, candidates[len(candidates)-1])
	}
	return out
}

func entryIsNewest(entries []Entry, e Entry) bool {
	return len(entries) > 0 && entries[len(entries)-1].Writer == e.Writer && entries[len(entries)-1].StoreClock == e.StoreClock
}

// orderedEntries returns the ring contents oldest-first regardless of
// whether the ring has wrapped.
func (c *Cell) orderedEntries() []Entry {
	if len(c.entries) < c.depth {
		return c.entries
	}
	out := make([]Entry, c.depth)
	for i := 0; i < c.depth; i++ {
		out[i] = c.entries[(c.next+i)%c.depth]
	}
	return out
}

// Depth reports the configured ring depth.
func (c *Cell) Depth() int {
	return c.depth
}

// Len reports how many stores are currently retained (<= Depth()).
func (c *Cell) Len() int {
	return len(c.entries)
}
