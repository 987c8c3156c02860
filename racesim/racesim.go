package racesim

import (
	"io"

	"github.com/google/uuid"

	"github.com/kolkov/racesim/internal/engine/context"
	"github.com/kolkov/racesim/internal/engine/driver"
	"github.com/kolkov/racesim/internal/engine/fiber"
	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// Suite is a concurrent test. Thread is mandatory — it is run once per
// static thread index, 0..threads-1, every iteration. Before, After and
// Invariant are optional: implement whichever hooks a given test needs and
// Simulate detects them via type assertion.
type Suite interface {
	// Thread runs the body of logical thread idx. It must eventually call
	// no more racesim operations and simply return; Simulate treats a
	// returning Thread as that thread finishing.
	Thread(t *T, idx int)
}

// BeforeHook, if implemented, runs once at the start of every iteration,
// before any thread starts, in a non-reentrant special context.
type BeforeHook interface {
	Before(t *T)
}

// AfterHook, if implemented, runs once at the end of every iteration that
// did not already fail, after every thread has finished and before the
// leak scan.
type AfterHook interface {
	After(t *T)
}

// InvariantHook, if implemented, is called at every scheduling point across
// every thread (spec.md §6): it must be side-effect-free and may call
// t.Assert.
type InvariantHook interface {
	Invariant(t *T)
}

// SearchType selects which scheduler strategy Simulate explores with.
type SearchType = driver.SearchType

const (
	// SearchRandom samples independent random interleavings — the only
	// strategy that can batch iterations across a worker pool.
	SearchRandom = driver.SearchRandom
	// SearchFairFull exhaustively enumerates every interleaving via a
	// backtracking DFS, picking the same thread at most FairnessCap times
	// in a row while another thread is runnable.
	SearchFairFull = driver.SearchFairFull
	// SearchContextBound exhaustively enumerates interleavings with at most
	// ContextBound voluntary preemptions per iteration.
	SearchContextBound = driver.SearchContextBound
)

// Params configures one Simulate run (spec.md §6).
type Params struct {
	// Iterations bounds how many iterations to run; 0 or negative means
	// unbounded, which is only sound for SearchFairFull/SearchContextBound
	// (they report exhaustion themselves) or for a random search you intend
	// to stop by some external signal.
	Iterations int
	// ExecutionDepthLimit bounds scheduling steps without any thread's
	// clock advancing before the iteration is reported as a livelock.
	ExecutionDepthLimit int
	// DeferDenominator is k in "a freed block has a 1/k chance of being
	// deferred instead of reused immediately", widening the window in
	// which a use-after-free can be caught.
	DeferDenominator int

	// Search selects the scheduler strategy. The zero value is
	// SearchRandom.
	Search SearchType
	// ContextBound is the per-iteration voluntary-preemption budget for
	// SearchContextBound.
	ContextBound int
	// FairnessCap bounds consecutive picks of the same thread, while
	// another is runnable, for SearchFairFull.
	FairnessCap int

	// Seed seeds SearchRandom; 0 derives a seed from the wall clock.
	Seed int64
	// Workers bounds how many iteration batches run concurrently under
	// SearchRandom; 0 means runtime.NumCPU().
	Workers int

	// CollectHistory, if true, skips the post-failure determinism-check
	// replay and trusts the failing iteration's own captured log —
	// cheaper, at the cost of not verifying the failure reproduces.
	CollectHistory bool

	// InitialState resumes exploration from a previously saved State
	// (e.g. from a prior Result.FinalState), letting a long exhaustive
	// search be continued across process runs.
	InitialState *State

	// Output, if set, receives driver diagnostics (e.g. a determinism-check
	// warning on non-reproducing replay).
	Output io.Writer
	// Progress, if set, receives periodic "pct% (done/total)" progress
	// lines every driver.ProgressPeriod iterations.
	Progress io.Writer
}

// State is an opaque snapshot of a scheduler's exploration cursor, usable
// as Params.InitialState or inspected from Result.FinalState to resume or
// persist a search across process runs.
type State = scheduler.State

// Result is the outcome of one Simulate run.
type Result struct {
	// RunID uniquely identifies this Simulate invocation, for correlating
	// progress output, a saved State and a replay log back to the run that
	// produced them.
	RunID uuid.UUID
	// Iterations is how many iterations actually ran.
	Iterations int
	// Outcome is Success, or the specific failure taxonomy entry from
	// spec.md §7.
	Outcome history.Outcome
	// Failure holds the failing iteration's details, or nil on Success.
	Failure *history.Failure
	// History is the step-by-step event log for the failing iteration
	// (from the determinism-check replay, or from the original run when
	// Params.CollectHistory skipped the replay). Empty on Success, and
	// empty when the replay did not fail.
	History []history.Event
	// FinalState is the scheduler's exploration cursor at the end of the
	// run — the failing iteration's state on failure, otherwise the state
	// after the last iteration run. Feed it back via Params.InitialState to
	// resume.
	FinalState State
	// Exhausted reports whether the scheduler itself reported the search
	// space fully explored (only SearchFairFull/SearchContextBound ever do
	// this).
	Exhausted bool
	// Deterministic reports whether the failure reproduced identically on
	// replay (always true when Params.CollectHistory skipped the replay).
	Deterministic bool
}

func toDriverParams(threads, dynamic int, p Params) driver.Params {
	return driver.Params{
		Threads:             threads,
		DynamicCapacity:     dynamic,
		IterationCount:      p.Iterations,
		ExecutionDepthLimit: p.ExecutionDepthLimit,
		DeferDenominator:    p.DeferDenominator,
		SearchType:          p.Search,
		ContextBound:        p.ContextBound,
		FairnessCap:         p.FairnessCap,
		Seed:                p.Seed,
		Workers:             p.Workers,
		CollectHistory:      p.CollectHistory,
		InitialState:        p.InitialState,
		Output:              p.Output,
		Progress:            p.Progress,
	}
}

// Simulate runs suite through many interleavings of its threads threads
// static threads plus up to dynamic dynamically-Spawned ones, per params,
// and reports the first failure found (if any).
//
// newSuite is called once per iteration, so a fresh S — with fresh
// zero-valued Atomic[V]/Var[V] fields — backs every attempt; any shared
// setup that must survive the whole Simulate call (not just one iteration)
// belongs outside newSuite, in the caller's own scope.
func Simulate[S Suite](threads, dynamic int, params Params, newSuite func() S) Result {
	dres := driver.Run(toDriverParams(threads, dynamic, params), func(ctx *context.Context) {
		runIteration[S](ctx, threads, newSuite)
	})

	return Result{
		RunID:         dres.RunID,
		Iterations:    dres.Iterations,
		Outcome:       dres.Outcome,
		Failure:       dres.Failure,
		History:       dres.History,
		FinalState:    dres.FinalState,
		Exhausted:     dres.Exhausted,
		Deterministic: dres.Deterministic,
	}
}

// runIteration implements one driver.IterationFunc: construct a fresh
// suite, install Invariant (if any) for every scheduling point, run Before
// (if any), run every static thread's body to completion, run After (if
// any), and check for leaked allocations.
func runIteration[S Suite](ctx *context.Context, threads int, newSuite func() S) {
	suite := newSuite()
	t := &T{ctx: ctx}
	r := &runner{ctx: ctx, group: fiber.NewGroup(), t: t}
	t.r = r

	if ih, ok := any(suite).(InvariantHook); ok {
		ctx.SetInvariant(func() { ih.Invariant(t) })
	} else {
		ctx.SetInvariant(nil)
	}

	if bh, ok := any(suite).(BeforeHook); ok {
		if err := ctx.BeginSpecial(); err == nil {
			bh.Before(t)
			ctx.EndSpecial()
		}
	}
	if ctx.Failure() != nil {
		return
	}

	for i := 0; i < threads; i++ {
		idx := i
		r.spawnFiber(idx, func() { suite.Thread(t, idx) })
	}
	for !ctx.Done() {
		r.fibers[ctx.Current()].Resume()
	}
	if ctx.Failure() != nil {
		return
	}

	if ah, ok := any(suite).(AfterHook); ok {
		if err := ctx.BeginSpecial(); err == nil {
			ah.After(t)
			ctx.EndSpecial()
		}
	}
	if ctx.Failure() != nil {
		return
	}
	ctx.CheckLeaks()
}

// runner owns the fibers backing one iteration's threads, including any
// brought online dynamically via T.Spawn mid-iteration.
type runner struct {
	ctx    *context.Context
	group  *fiber.Group
	t      *T
	fibers []*fiber.Fiber
}

// spawnFiber starts id's fiber, immediately parked; it is expected to be
// called with id == len(r.fibers) (the id the caller is about to bring
// online), so fibers stays indexed by thread id.
func (r *runner) spawnFiber(id int, body func()) {
	f := r.group.Spawn(id, func(yield func()) {
		r.ctx.BindYielder(id, yield)
		body()
		r.ctx.OnThreadFinished(id)
	})
	r.fibers = append(r.fibers, f)
}
