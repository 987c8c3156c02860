package context_test

import (
	"testing"

	"github.com/kolkov/racesim/internal/engine/context"
	"github.com/kolkov/racesim/internal/engine/fiber"
	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// scriptScheduler follows a fixed, cyclic sequence of preferred thread ids,
// falling back to the lowest runnable id whenever the preferred one isn't
// currently runnable. It exists purely to drive the tests in this file
// through a specific, known interleaving — real strategies live in package
// scheduler.
type scriptScheduler struct {
	script []int
	idx    int
}

func (s *scriptScheduler) want() int {
	v := s.script[s.idx%len(s.script)]
	s.idx++
	return v
}

func (s *scriptScheduler) IterationBegin(int) int {
	s.idx = 0
	return s.want()
}

func (s *scriptScheduler) Schedule(runnable []int, yieldHint int, _ scheduler.Reason) int {
	want := s.want()
	for _, r := range runnable {
		if r == want {
			return want
		}
	}
	if len(runnable) > 0 {
		return runnable[0]
	}
	return yieldHint
}

func (s *scriptScheduler) Rand(int, string) int { return 0 }

func (s *scriptScheduler) ParkCurrent(_, _ bool, otherRunnable int) bool { return otherRunnable > 0 }

func (s *scriptScheduler) Unpark(int, bool) {}

func (s *scriptScheduler) ThreadFinished(remainingRunnable, remainingBlocked int) scheduler.FinishKind {
	switch {
	case remainingRunnable > 0:
		return scheduler.FinishNormal
	case remainingBlocked > 0:
		return scheduler.FinishDeadlock
	default:
		return scheduler.FinishLast
	}
}

func (s *scriptScheduler) IterationEnd() bool { return true }

func (s *scriptScheduler) GetState() scheduler.State { return scheduler.State{} }

func (s *scriptScheduler) SetState(scheduler.State) {}

// runIteration spawns one fiber per body, binds each to ctx, and drives
// them via Resume until the iteration is done (every thread finished, or a
// failure was recorded).
func runIteration(ctx *context.Context, bodies []func(yield func())) {
	group := fiber.NewGroup()
	ctx.IterationBegin(0)

	fibers := make([]*fiber.Fiber, len(bodies))
	for i, body := range bodies {
		i, body := i, body
		fibers[i] = group.Spawn(i, func(yield func()) {
			ctx.BindYielder(i, yield)
			body(yield)
		})
	}
	for !ctx.Done() {
		cur := ctx.Current()
		fibers[cur].Resume()
	}
}

func newTestContext(staticThreads, depthLimit int, sched scheduler.Scheduler) *context.Context {
	return context.New(context.Params{
		StaticThreads:       staticThreads,
		ExecutionDepthLimit: depthLimit,
		DeferDenominator:    2,
	}, sched)
}

func TestMutexProtectedWritesDoNotRace(t *testing.T) {
	sched := &scriptScheduler{script: []int{0, 1, 0, 1, 0, 1, 0, 1}}
	ctx := newTestContext(2, 1000, sched)
	mu := ctx.MutexAt(ctx.AllocMutex())
	v := ctx.VarState(ctx.AllocVarState())

	body := func(id int) func(yield func()) {
		return func(yield func()) {
			ctx.MutexLock("mu", mu)
			ctx.NonAtomicWrite("counter", v)
			ctx.MutexUnlock("mu", mu)
			ctx.OnThreadFinished(id)
		}
	}
	runIteration(ctx, []func(yield func()){body(0), body(1)})

	if f := ctx.Failure(); f != nil {
		t.Fatalf("expected no failure, got %s: %s", f.Outcome, f.Message)
	}
}

func TestUnsynchronizedWritesRace(t *testing.T) {
	sched := &scriptScheduler{script: []int{0, 1, 0, 1}}
	ctx := newTestContext(2, 1000, sched)
	v := ctx.VarState(ctx.AllocVarState())

	body := func(id int) func(yield func()) {
		return func(yield func()) {
			ctx.NonAtomicWrite("x", v)
			ctx.OnThreadFinished(id)
		}
	}
	runIteration(ctx, []func(yield func()){body(0), body(1)})

	f := ctx.Failure()
	if f == nil {
		t.Fatal("expected a data race to be detected")
	}
	if f.Outcome != history.DataRace {
		t.Fatalf("expected DataRace, got %s", f.Outcome)
	}
}

func TestLockOrderDeadlockDetected(t *testing.T) {
	sched := &scriptScheduler{script: []int{0, 1, 0, 1}}
	ctx := newTestContext(2, 1000, sched)
	a := ctx.MutexAt(ctx.AllocMutex())
	b := ctx.MutexAt(ctx.AllocMutex())

	thread0 := func(yield func()) {
		ctx.MutexLock("A", a)
		ctx.MutexLock("B", b)
		ctx.MutexUnlock("B", b)
		ctx.MutexUnlock("A", a)
		ctx.OnThreadFinished(0)
	}
	thread1 := func(yield func()) {
		ctx.MutexLock("B", b)
		ctx.MutexLock("A", a)
		ctx.MutexUnlock("A", a)
		ctx.MutexUnlock("B", b)
		ctx.OnThreadFinished(1)
	}
	runIteration(ctx, []func(yield func()){thread0, thread1})

	f := ctx.Failure()
	if f == nil {
		t.Fatal("expected a deadlock to be detected")
	}
	if f.Outcome != history.Deadlock {
		t.Fatalf("expected Deadlock, got %s", f.Outcome)
	}
}

func TestCondVarSignalWakesWaiterWithHappensBefore(t *testing.T) {
	sched := &scriptScheduler{script: []int{0, 1, 0, 1, 0, 1, 0, 1}}
	ctx := newTestContext(2, 1000, sched)
	mu := ctx.MutexAt(ctx.AllocMutex())
	cv := ctx.CondVarAt(ctx.AllocCondVar())
	v := ctx.VarState(ctx.AllocVarState())
	ready := false

	waiter := func(yield func()) {
		ctx.MutexLock("mu", mu)
		for !ready {
			ctx.CondVarWait("cv", cv, mu)
		}
		ctx.NonAtomicRead("x", v)
		ctx.MutexUnlock("mu", mu)
		ctx.OnThreadFinished(0)
	}
	signaler := func(yield func()) {
		ctx.MutexLock("mu", mu)
		ctx.NonAtomicWrite("x", v)
		ready = true
		ctx.CondVarSignal("cv", cv)
		ctx.MutexUnlock("mu", mu)
		ctx.OnThreadFinished(1)
	}
	runIteration(ctx, []func(yield func()){waiter, signaler})

	if f := ctx.Failure(); f != nil {
		t.Fatalf("expected no failure, got %s: %s", f.Outcome, f.Message)
	}
}

func TestMemoryLeakDetected(t *testing.T) {
	sched := &scriptScheduler{script: []int{0}}
	ctx := newTestContext(1, 1000, sched)

	body := func(yield func()) {
		ctx.Alloc(8)
		ctx.OnThreadFinished(0)
	}
	runIteration(ctx, []func(yield func()){body})
	ctx.CheckLeaks()

	f := ctx.Failure()
	if f == nil {
		t.Fatal("expected a memory leak to be detected")
	}
	if f.Outcome != history.MemoryLeak {
		t.Fatalf("expected MemoryLeak, got %s", f.Outcome)
	}
}

func TestDoubleFreeDetected(t *testing.T) {
	sched := &scriptScheduler{script: []int{0}}
	ctx := newTestContext(1, 1000, sched)

	body := func(yield func()) {
		h := ctx.Alloc(8)
		ctx.Free(h)
		ctx.Free(h)
		ctx.OnThreadFinished(0)
	}
	runIteration(ctx, []func(yield func()){body})

	f := ctx.Failure()
	if f == nil {
		t.Fatal("expected a double free to be detected")
	}
	if f.Outcome != history.DoubleFree {
		t.Fatalf("expected DoubleFree, got %s", f.Outcome)
	}
}

func TestLivelockDetectedOnUnboundedYielding(t *testing.T) {
	sched := &scriptScheduler{script: []int{0}}
	ctx := newTestContext(1, 3, sched)

	body := func(yield func()) {
		for i := 0; i < 10; i++ {
			ctx.Yield()
			if ctx.Failure() != nil {
				break
			}
		}
		ctx.OnThreadFinished(0)
	}
	runIteration(ctx, []func(yield func()){body})

	f := ctx.Failure()
	if f == nil {
		t.Fatal("expected a livelock to be detected")
	}
	if f.Outcome != history.Livelock {
		t.Fatalf("expected Livelock, got %s", f.Outcome)
	}
}

func TestAssertFailureRecorded(t *testing.T) {
	sched := &scriptScheduler{script: []int{0}}
	ctx := newTestContext(1, 1000, sched)

	body := func(yield func()) {
		ctx.Assert(1 == 2, "impossible")
		ctx.OnThreadFinished(0)
	}
	runIteration(ctx, []func(yield func()){body})

	f := ctx.Failure()
	if f == nil || f.Outcome != history.UserAssertionFailed {
		t.Fatalf("expected UserAssertionFailed, got %v", f)
	}
}
