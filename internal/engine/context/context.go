// Package context implements the execution context from spec.md §4.H: the
// facade gluing vector clocks (A), atomic history (B), non-atomic variable
// state (C), synchronization objects (D), the memory manager (E), the
// scheduler (G), and the history log (J) behind the single sequence every
// user-visible operation follows — update bookkeeping, log the event, then
// ask the scheduler who runs next.
//
// Grounded on the teacher's detector.Detector orchestration shape
// (OnWrite/OnRead: fixed step sequence around a small set of shared
// tables), generalized from "guarded by one mutex, callable from any real
// goroutine" to "single cooperative thread, no locking needed" — exactly
// one fiber ever calls into a Context at a time (spec.md §5), so none of
// its state needs synchronization of its own.
package context

import (
	"fmt"

	"github.com/kolkov/racesim/internal/engine/addrhash"
	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/memmgr"
	"github.com/kolkov/racesim/internal/engine/scheduler"
	"github.com/kolkov/racesim/internal/engine/vclock"
)

// threadState is the context's own bookkeeping of a logical thread's
// liveness, distinct from fiber.Status: a thread can be "blocked" in
// context terms (parked on a sync object) while its backing fiber is
// simply parked waiting to be Resumed again — the context is what decides
// whether blocking would deadlock, not the fiber layer.
type threadState int

const (
	stateRunnable threadState = iota
	stateBlocked
	stateFinished
)

// Params configures one Context for its lifetime (spec.md §6's parameter
// struct, the subset the core consumes — iteration_count and the output
// streams live in the driver).
type Params struct {
	// StaticThreads is S: the thread count fixed at construction.
	StaticThreads int
	// DynamicCapacity is D: extra thread slots Spawn may use at runtime.
	DynamicCapacity int
	// ExecutionDepthLimit bounds scheduling steps without clock progress
	// before a livelock is reported.
	ExecutionDepthLimit int
	// DeferDenominator is k in memmgr's "1/k chance of a deferred free".
	DeferDenominator int
}

// Context is the facade a test's thread(i) body operates through.
type Context struct {
	capacity      int // StaticThreads + DynamicCapacity; fixed VectorClock width
	staticThreads int // S, the baseline thread count restored each iteration
	threads       int // live thread count so far (grows via Spawn up to capacity)

	clocks []*vclock.VectorClock
	status []threadState

	sched scheduler.Scheduler
	mem   *memmgr.Manager
	hash  *addrhash.Hasher
	log   *history.Log
	res   pools

	current int
	yielder map[int]func()

	depthLimit       int
	stepsSinceProgress int

	inSpecial bool // before/after/invariant reentrancy guard

	failure *history.Failure
	done    bool

	// invariantFn, if set, is called at every scheduling point (spec.md
	// §6: "invariant() is called at every scheduling point; it must be
	// side-effect-free and may assert").
	invariantFn func()

	// fenceReleaseClock[t], once set by FenceRelease, is joined into
	// every subsequent store by thread t regardless of that store's own
	// ordering — the "restore dropped feature" from thread_info.hpp's
	// fence-carry vectors (SPEC_FULL.md domain expansion #2).
	fenceReleaseClock []*vclock.VectorClock
	// pendingAcquire[t] accumulates the acquire-carry of every relaxed
	// load thread t performs since its last FenceAcquire, to be joined in
	// bulk when the fence executes.
	pendingAcquire [][]*vclock.VectorClock

	// seqCstClock is spec.md §3's "global VC updated on every seq-cst
	// fence": every FenceSeqCst both publishes the caller's clock into it
	// and pulls it back into the caller, anchoring every thread that has
	// ever issued a seq-cst fence into one shared total order. Seq-cst
	// atomics consult it (via seqCstFence) without writing to it directly.
	seqCstClock *vclock.VectorClock
}

// New constructs a Context bound to sched, ready for IterationBegin.
func New(p Params, sched scheduler.Scheduler) *Context {
	capacity := p.StaticThreads + p.DynamicCapacity
	c := &Context{
		capacity:          capacity,
		staticThreads:     p.StaticThreads,
		sched:             sched,
		hash:              addrhash.New(),
		log:               history.New(),
		depthLimit:        p.ExecutionDepthLimit,
		yielder:           make(map[int]func()),
		clocks:            make([]*vclock.VectorClock, capacity),
		status:            make([]threadState, capacity),
		fenceReleaseClock: make([]*vclock.VectorClock, capacity),
		pendingAcquire:    make([][]*vclock.VectorClock, capacity),
	}
	deferK := p.DeferDenominator
	c.mem = memmgr.New(func(limit int, purpose string) int {
		return c.sched.Rand(limit, purpose)
	}, deferK)
	for i := 0; i < capacity; i++ {
		c.clocks[i] = vclock.New(capacity)
	}
	c.seqCstClock = vclock.New(capacity)
	return c
}

// Capacity returns StaticThreads + DynamicCapacity.
func (c *Context) Capacity() int {
	return c.capacity
}

// NextThreadID returns the id Spawn would assign to the next dynamic
// thread, letting a caller prepare that thread's fiber before Spawn's own
// bookkeeping (and possible scheduler switch onto it) runs.
func (c *Context) NextThreadID() int {
	return c.threads
}

// SetInvariant installs fn to be called at every scheduling point (spec.md
// §6): it must be side-effect-free and may call Assert/InvariantFail.
func (c *Context) SetInvariant(fn func()) {
	c.invariantFn = fn
}

// BindYielder registers the function that hands control back to the
// driver for thread. Must be called once per thread before that thread's
// fiber is resumed for the first time in an iteration.
func (c *Context) BindYielder(thread int, yield func()) {
	c.yielder[thread] = yield
}

// Current returns the thread the scheduler has most recently chosen to run
// — the driver resumes this thread's fiber next.
func (c *Context) Current() int {
	return c.current
}

// Log returns the event log recorded so far this iteration.
func (c *Context) Log() *history.Log {
	return c.log
}

// Failure returns the recorded failure for this iteration, or nil on a
// clean run so far.
func (c *Context) Failure() *history.Failure {
	return c.failure
}

// Done reports whether the iteration has finished (every thread finished,
// or a failure was recorded).
func (c *Context) Done() bool {
	return c.done || c.failure != nil
}

// IterationBegin resets all per-iteration state (spec.md §4.H) and returns
// the thread id that should run first.
func (c *Context) IterationBegin(iter int) int {
	c.threads = c.staticThreads
	for i := range c.clocks {
		c.clocks[i].Reset()
		c.status[i] = stateRunnable
		c.fenceReleaseClock[i] = nil
		c.pendingAcquire[i] = nil
	}
	c.seqCstClock.Reset()
	c.mem.Reset()
	c.hash.Reset()
	c.log.Reset()
	c.res.reset()
	c.failure = nil
	c.done = false
	c.stepsSinceProgress = 0
	c.yielder = make(map[int]func())

	first := c.sched.IterationBegin(iter)
	c.current = first
	return first
}

// noteProgress resets the livelock counter: called whenever any thread's
// own vector clock entry advances, since that is "the global clock
// advancing past last_yield" in spec.md §5's livelock definition.
func (c *Context) noteProgress() {
	c.stepsSinceProgress = 0
}

// checkLivelock increments the step counter and reports whether the
// execution depth limit has been exceeded without progress.
func (c *Context) checkLivelock() bool {
	c.stepsSinceProgress++
	return c.depthLimit > 0 && c.stepsSinceProgress > c.depthLimit
}

// runnableThreads returns the sorted ids of every live thread not blocked
// or finished.
func (c *Context) runnableThreads() []int {
	var out []int
	for i := 0; i < c.threads; i++ {
		if c.status[i] == stateRunnable {
			out = append(out, i)
		}
	}
	return out
}

func (c *Context) countBlocked() int {
	n := 0
	for i := 0; i < c.threads; i++ {
		if c.status[i] == stateBlocked {
			n++
		}
	}
	return n
}

// suspend is the shared "ask the scheduler, maybe switch fibers" tail
// every operation ends with (spec.md §4.H step 4). If the scheduler keeps
// the caller running, no fiber switch happens at all — the scheduler
// "decides whether to yield before returning" (spec.md §5).
func (c *Context) suspend(reason scheduler.Reason) {
	if c.failure != nil {
		return
	}
	if c.checkLivelock() {
		c.fail(history.Livelock, "thread exceeded execution depth limit without progress", c.current)
		return
	}
	if c.invariantFn != nil {
		c.invariantFn()
		if c.failure != nil {
			return
		}
	}
	caller := c.current
	next := c.sched.Schedule(c.runnableThreads(), caller, reason)
	c.current = next
	c.log.Append(history.Event{Thread: caller, Kind: history.KindSchedule, Reason: reason})
	if next != caller {
		if yield, ok := c.yielder[caller]; ok {
			yield()
		}
	}
}

// fail records a failure outcome. Only the first failure in an iteration
// is kept (spec.md §4.I: the driver cares about the first violated
// invariant).
func (c *Context) fail(outcome history.Outcome, msg string, thread int) {
	if c.failure != nil {
		return
	}
	c.failure = &history.Failure{
		Outcome: outcome,
		Message: msg,
		Thread:  thread,
		Log:     append([]history.Event(nil), c.log.Events()...),
	}
}

// Assert reports a user-assertion failure if cond is false.
func (c *Context) Assert(cond bool, msg string) {
	if !cond {
		c.fail(history.UserAssertionFailed, msg, c.current)
	}
}

// InvariantFail reports a user-invariant failure.
func (c *Context) InvariantFail(msg string) {
	c.fail(history.UserInvariantFailed, msg, c.current)
}

// Until unconditionally ends the iteration with UntilConditionHit, for test
// code that wants to stop exploring once some condition of interest is
// reached rather than treating it as a failure. Grounded on relacy's
// rl_until (original_source/relacy/context.hpp), which sets
// test_result_until_condition_hit and switches back to the main fiber the
// moment it's called.
func (c *Context) Until(msg string) {
	c.fail(history.UntilConditionHit, msg, c.current)
}

// BeginSpecial marks entry into before/after/invariant, guarding against
// reentrant calls (spec.md §4.H step 1).
func (c *Context) BeginSpecial() error {
	if c.inSpecial {
		return fmt.Errorf("racesim: before/after/invariant called reentrantly")
	}
	c.inSpecial = true
	return nil
}

// EndSpecial clears the reentrancy guard and joins every thread's clock,
// so whatever Before did happens-before every thread body that follows.
func (c *Context) EndSpecial() {
	c.inSpecial = false
	c.joinAllClocks()
}

// OnThreadFinished records that thread's body returned; afterwards Done
// reports whether the whole iteration is over (successfully or via
// deadlock).
func (c *Context) OnThreadFinished(thread int) {
	if c.failure != nil {
		return
	}
	c.status[thread] = stateFinished
	runnable := len(c.runnableThreads())
	blocked := c.countBlocked()
	kind := c.sched.ThreadFinished(runnable, blocked)
	switch kind {
	case scheduler.FinishDeadlock:
		c.fail(history.Deadlock, "every remaining thread is blocked", thread)
		return
	case scheduler.FinishLast:
		c.joinAllClocks()
		c.done = true
		return
	}
	next := c.sched.Schedule(c.runnableThreads(), thread, scheduler.ReasonSched)
	c.current = next
}

// joinAllClocks folds every thread's clock into the pointwise max of all
// of them and broadcasts the result back to every entry. The last thread
// finishing is itself an implicit join over the whole iteration — nothing
// runs concurrently with it ever again — so After and CheckLeaks must see
// every thread's writes as happened-before, or an unsynchronized read in
// After of a variable another thread wrote would be flagged as a false
// data race even though no thread is still running.
func (c *Context) joinAllClocks() {
	merged := vclock.New(c.capacity)
	for i := 0; i < c.threads; i++ {
		merged.Join(c.clocks[i])
	}
	for i := 0; i < c.threads; i++ {
		c.clocks[i].CopyFrom(merged)
	}
}

// CheckLeaks runs the end-of-iteration leak scan (spec.md §4.E). Call
// after every thread has finished and before declaring success.
func (c *Context) CheckLeaks() {
	if c.failure != nil {
		return
	}
	if leaks := c.mem.Leaks(); len(leaks) > 0 {
		c.fail(history.MemoryLeak, fmt.Sprintf("%d allocation(s) never freed", len(leaks)), -1)
	}
}
