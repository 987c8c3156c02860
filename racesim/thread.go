package racesim

import (
	"fmt"
	"unsafe"

	"github.com/kolkov/racesim/internal/engine/context"
)

// T is the handle a Suite's Thread/Before/After/Invariant methods operate
// through. It is stateless beyond its engine binding, so the same *T value
// is valid from any logical thread's body, including one brought online by
// Spawn mid-iteration — every method acts on whichever thread the engine
// currently has running, never on a thread id fixed at construction.
type T struct {
	ctx *context.Context
	r   *runner
}

// EngineContext exposes the engine handle *T wraps for this iteration.
// It exists so racesim/sync (a sibling package providing Mutex/CondVar/
// Semaphore/Event/ThreadLocal) can reach component D without racesim
// needing to know about any particular synchronization primitive; test
// code should use T's own methods and racesim/sync's wrappers instead of
// calling the engine directly through it.
func (t *T) EngineContext() *context.Context {
	return t.ctx
}

// Assert fails the iteration with UserAssertionFailed if cond is false.
func (t *T) Assert(cond bool, format string, args ...any) {
	if !cond {
		t.ctx.Assert(false, fmt.Sprintf(format, args...))
	}
}

// InvariantFail unconditionally fails the iteration with
// UserInvariantFailed, for an InvariantHook that has already evaluated its
// own condition.
func (t *T) InvariantFail(format string, args ...any) {
	t.ctx.InvariantFail(fmt.Sprintf(format, args...))
}

// Until stops the iteration with UntilConditionHit, for a test that wants
// to halt exploration the moment some condition of interest is reached
// rather than treat it as a failure — e.g. "stop as soon as both threads
// have entered the critical section at least once". Unlike Assert/
// InvariantFail it names no broken invariant; it's a marker that the
// iteration reached a state the test was watching for.
func (t *T) Until(format string, args ...any) {
	t.ctx.Until(fmt.Sprintf(format, args...))
}

// Yield is a voluntary scheduling point with no other effect, widening the
// set of interleavings a scheduler can explore around this point.
func (t *T) Yield() {
	t.ctx.Yield()
}

// FenceAcquire is a standalone acquire fence.
func (t *T) FenceAcquire() { t.ctx.FenceAcquire() }

// FenceRelease is a standalone release fence.
func (t *T) FenceRelease() { t.ctx.FenceRelease() }

// FenceAcqRel is a standalone acquire-release fence.
func (t *T) FenceAcqRel() { t.ctx.FenceAcqRel() }

// FenceSeqCst is a standalone sequentially-consistent fence.
func (t *T) FenceSeqCst() { t.ctx.FenceSeqCst() }

// Hash returns a stable-within-iteration surrogate for p, so a test can
// hash addresses (e.g. to pick a lock-striping bucket) without the result
// depending on real ASLR.
func (t *T) Hash(p unsafe.Pointer) uint64 {
	return t.ctx.Hash(uintptr(p))
}

// Rand returns a scheduler-controlled integer in [0, limit), tagged with
// purpose so an exhaustive search can branch on it like any other choice.
func (t *T) Rand(limit int, purpose string) int {
	return t.ctx.Rand(limit, purpose)
}

// Block is an opaque handle to one simulated heap allocation.
type Block struct {
	handle int64
}

// Alloc requests a new block of size bytes.
func (t *T) Alloc(size int) *Block {
	return &Block{handle: t.ctx.Alloc(size)}
}

// Free releases b. A double free (or freeing an unknown block) fails the
// iteration immediately; a subsequent Touch of a deferred-but-freed block
// is what surfaces a use-after-free.
func (t *T) Free(b *Block) {
	t.ctx.Free(b.handle)
}

// Touch dereferences b without freeing it.
func (t *T) Touch(b *Block) {
	t.ctx.Touch(b.handle)
}

// Spawn brings a new dynamic thread online, up to the dynamic capacity
// Simulate was given, and runs fn as its body. fn may itself call racesim
// operations through any *T value already in its closure (the handle does
// not encode which thread it represents).
func (t *T) Spawn(fn func(idx int)) error {
	id := t.ctx.NextThreadID()
	if id >= t.ctx.Capacity() {
		return fmt.Errorf("racesim: spawn exceeds thread capacity %d", t.ctx.Capacity())
	}
	t.r.spawnFiber(id, func() { fn(id) })
	_, err := t.ctx.Spawn()
	return err
}
