// Package memmgr implements the deferred-free allocator from spec.md §4.E:
// it wraps allocation bookkeeping with just enough state to catch
// double-free, use-after-free, and end-of-iteration leaks, deferring a
// fraction of frees (chosen by the scheduler's rand) so that a thread
// touching freed memory actually observes it rather than getting lucky with
// a still-valid reallocation.
package memmgr

// RandFunc asks the scheduler for a number in [0, limit) for the given
// purpose, mirroring the single rand() entry point every non-deterministic
// decision in the engine routes through (spec.md §4.G).
type RandFunc func(limit int, purpose string) int

// block tracks one allocation's lifecycle.
type block struct {
	size     int
	freed    bool
	deferred bool
}

// Manager tracks every allocation made during one iteration.
type Manager struct {
	blocks map[int64]*block
	next   int64
	rand   RandFunc
	// deferDenominator is k in "with probability 1/k the block is
	// deferred"; spec.md §4.E ties it to the active scheduler (2 or 4).
	deferDenominator int
}

// New returns an empty manager. deferDenominator is the k used for the
// defer-on-free coin flip (spec.md says 2 or 4 depending on scheduler).
func New(rand RandFunc, deferDenominator int) *Manager {
	if deferDenominator <= 0 {
		deferDenominator = 4
	}
	return &Manager{
		blocks:           make(map[int64]*block),
		rand:             rand,
		deferDenominator: deferDenominator,
	}
}

// Alloc records a new live allocation of size bytes and returns a handle.
// The handle is an opaque surrogate address, stable within the iteration,
// not a real pointer.
func (m *Manager) Alloc(size int) int64 {
	m.next++
	h := m.next
	m.blocks[h] = &block{size: size}
	return h
}

// FreeResult reports what happened when handle was freed.
type FreeResult int

const (
	// FreeOK is a normal free of a live, non-deferred block.
	FreeOK FreeResult = iota
	// FreeDeferred means the block was marked freed logically but its
	// storage is deliberately kept live until iteration end, so a
	// subsequent Touch will report UseAfterFree instead of succeeding
	// silently.
	FreeDeferred
	// FreeDoubleFree means handle was already freed (deferred or not).
	FreeDoubleFree
	// FreeUnknownHandle means handle was never allocated by this manager,
	// or belongs to a prior iteration.
	FreeUnknownHandle
)

// Free releases handle. With probability 1/deferDenominator (decided via
// rand, purpose "mem_realloc") the underlying block is kept around so a
// later Touch can catch use-after-free; otherwise the handle is dropped
// immediately and a later Touch reports UnknownHandle, mimicking a real
// allocator's freedom to reuse the address.
func (m *Manager) Free(handle int64) FreeResult {
	b, ok := m.blocks[handle]
	if !ok {
		return FreeUnknownHandle
	}
	if b.freed {
		return FreeDoubleFree
	}
	b.freed = true
	if m.rand(m.deferDenominator, "mem_realloc") == 0 {
		b.deferred = true
		return FreeDeferred
	}
	delete(m.blocks, handle)
	return FreeOK
}

// TouchResult reports what happened when a freed-or-live handle was
// dereferenced.
type TouchResult int

const (
	// TouchOK means handle is a live, unfreed allocation.
	TouchOK TouchResult = iota
	// TouchUseAfterFree means handle was freed (and deferred, so the
	// manager still had bookkeeping to notice the access).
	TouchUseAfterFree
	// TouchUnknownHandle means handle was freed-and-reclaimed already, or
	// never allocated; the engine cannot distinguish the two and reports
	// whichever the caller finds more actionable.
	TouchUnknownHandle
)

// Touch records an access to handle, for use-after-free detection.
func (m *Manager) Touch(handle int64) TouchResult {
	b, ok := m.blocks[handle]
	if !ok {
		return TouchUnknownHandle
	}
	if b.freed {
		return TouchUseAfterFree
	}
	return TouchOK
}

// Leaks returns the handles of every allocation still live (never freed,
// or freed-but-deferred counts as live storage but not as a leak — only
// allocations nobody ever freed are leaks) at iteration end.
func (m *Manager) Leaks() []int64 {
	var leaks []int64
	for h, b := range m.blocks {
		if !b.freed {
			leaks = append(leaks, h)
		}
	}
	return leaks
}

// Reset discards all bookkeeping, for reuse across iterations.
func (m *Manager) Reset() {
	m.blocks = make(map[int64]*block)
	m.next = 0
}
