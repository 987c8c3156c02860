// Package driver implements the iteration driver and replay machinery from
// spec.md §4.I: run iterations until the scheduler reports exhaustion, a
// failure occurs, or iteration_count is reached; on failure, serialize the
// scheduler's state at the start of the offending iteration and re-run to
// confirm the same failure reproduces.
//
// Grounded on cmd/racedetector/run.go's run-and-report flow (parse
// config, execute, report outcome) generalized from "spawn one OS process
// and forward its exit code" to "drive one Context through many
// iterations and forward its Failure" — and on spec.md §4.I/§6 for the
// replay and progress-reporting contract.
package driver

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kolkov/racesim/internal/engine/context"
	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// ProgressPeriod is how often, in completed iterations, the driver prints
// a progress line (spec.md §6: "every 4096 iterations").
const ProgressPeriod = 4096

// SearchType selects which scheduler strategy drives exploration
// (spec.md §6's search_type).
type SearchType int

const (
	SearchRandom SearchType = iota
	SearchFairFull
	SearchContextBound
)

func (s SearchType) String() string {
	switch s {
	case SearchRandom:
		return "random"
	case SearchFairFull:
		return "fair_full"
	case SearchContextBound:
		return "context_bound"
	default:
		return fmt.Sprintf("driver.SearchType(%d)", int(s))
	}
}

// IterationFunc runs exactly one iteration against ctx: it binds a yielder
// for every thread, resumes fibers in whatever order ctx.Current() names
// until ctx.Done(), and performs any end-of-iteration checks (e.g.
// ctx.CheckLeaks). It must treat ctx as valid only for the duration of the
// call.
type IterationFunc func(ctx *context.Context)

// Params configures one driver run (spec.md §6's CLI/driver parameter
// struct; the subset not consumed here — OutputHistory's actual rendering,
// InitialState/FinalState's on-disk encoding — belongs to the racesim
// public package and cmd/racesim, which sit above this one).
type Params struct {
	// Threads is S, the static thread count.
	Threads int
	// DynamicCapacity is D, the dynamic thread headroom.
	DynamicCapacity int
	// IterationCount caps how many iterations run; 0 or negative means
	// "until the scheduler reports exhaustion or a failure occurs" (only
	// sound for an exhaustive SearchType — an unbounded Random run never
	// exhausts and simply runs forever barring a failure).
	IterationCount int
	// ExecutionDepthLimit bounds scheduling steps without clock progress
	// before a livelock is reported.
	ExecutionDepthLimit int
	// DeferDenominator is k in memmgr's "1/k chance of a deferred free".
	DeferDenominator int

	SearchType SearchType
	// ContextBound is K, the voluntary-preemption budget for
	// SearchContextBound.
	ContextBound int
	// FairnessCap limits consecutive steps by the same thread under
	// SearchFairFull; 0 disables the cap (see scheduler.FullSearch).
	FairnessCap int

	// Seed is the base seed for SearchRandom. 0 picks a fresh seed from
	// the wall clock (the seed itself need not be reproducible — only the
	// per-iteration sequence it produces, given iter+seed, has to be).
	Seed int64

	// Workers bounds concurrent iteration batches for SearchRandom, whose
	// iterations are independent of each other (each reseeds purely from
	// its own iteration number). 0 defaults to runtime.NumCPU(). Ignored
	// for exhaustive strategies: their backtracking cursor is inherently
	// sequential across iterations (spec.md §5's no-real-parallelism rule
	// binds the logical threads inside one iteration, not the driver's
	// batching of disjoint iterations — but exhaustive search has no
	// disjoint iterations to batch).
	Workers int

	// CollectHistory, when true, trusts the failing iteration's own
	// recorded history instead of replaying to collect it — matching
	// spec.md §4.I literally ("on failure *without* history-collection
	// enabled, ... re-run in history-collection mode"): collection was
	// already on, so there is nothing the replay would add.
	CollectHistory bool

	// InitialState replays from a previously saved scheduler cursor
	// (spec.md §6's "<iteration_number> <scheduler-specific blob>")
	// instead of starting a fresh exploration.
	InitialState *scheduler.State

	// Output receives the driver's own diagnostics (currently: a
	// determinism-check failure warning). Reports and full transcripts
	// are racesim/report's job, not this package's.
	Output io.Writer
	// Progress receives periodic "pct% (done/total)" lines. Nil disables
	// progress reporting.
	Progress io.Writer
}

// Result is the outcome of one driver run.
type Result struct {
	RunID      uuid.UUID
	Iterations int
	Outcome    history.Outcome
	Failure    *history.Failure
	// History is the failing iteration's event log: the original run's log
	// under CollectHistory, otherwise the replay's log. It stays empty when
	// the replay did not fail.
	History []history.Event
	// FinalState is the scheduler cursor at the start of the failing
	// iteration (spec.md §6), or the cursor at normal completion.
	FinalState scheduler.State
	// Exhausted reports whether the scheduler's search space was fully
	// explored (always false for SearchRandom, which never exhausts).
	Exhausted bool
	// Deterministic is false only when a replay of a failing iteration
	// produced a different outcome than the first observation — itself a
	// bug report about the engine or the test, not about the system under
	// test. True both when replay confirmed the same failure and when
	// replay was skipped because CollectHistory was already enabled.
	Deterministic bool
}

func newScheduler(p Params, seed int64) scheduler.Scheduler {
	switch p.SearchType {
	case SearchFairFull:
		return scheduler.NewFullSearch(p.Threads, p.FairnessCap)
	case SearchContextBound:
		return scheduler.NewContextBound(p.Threads, p.ContextBound)
	default:
		return scheduler.NewRandom(seed)
	}
}

func contextParams(p Params) context.Params {
	return context.Params{
		StaticThreads:       p.Threads,
		DynamicCapacity:     p.DynamicCapacity,
		ExecutionDepthLimit: p.ExecutionDepthLimit,
		DeferDenominator:    p.DeferDenominator,
	}
}

// Run drives run across iterations per p, then on failure verifies
// determinism by replaying the offending iteration from its saved
// scheduler state.
func Run(p Params, run IterationFunc) Result {
	runID := uuid.New()
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	progress := newProgressReporter(p)

	var (
		iterations int
		exhausted  bool
		failedIter int = -1
		failure    *history.Failure
		failedSched scheduler.Scheduler
	)

	if p.SearchType == SearchRandom && workers > 1 && p.IterationCount > 0 {
		iterations, failedIter, failure, failedSched = runParallel(p, seed, workers, run, progress)
	} else {
		sched := newScheduler(p, seed)
		if p.InitialState != nil {
			sched.SetState(*p.InitialState)
		}
		iterations, failedIter, failure, exhausted = runSequential(p, sched, run, 0, p.IterationCount, progress)
		failedSched = sched
	}

	res := Result{RunID: runID, Iterations: iterations, Exhausted: exhausted}
	if failure == nil {
		res.Outcome = history.Success
		if failedSched != nil {
			res.FinalState = failedSched.GetState()
		}
		return res
	}

	res.Outcome = failure.Outcome
	res.Failure = failure

	state := failedSched.GetState()
	state.Iteration = failedIter
	res.FinalState = state

	if p.CollectHistory {
		res.History = failure.Log
		res.Deterministic = true
		return res
	}

	replaySched := newScheduler(p, seed)
	replaySched.SetState(state)
	replayCtx := context.New(contextParams(p), replaySched)
	replayCtx.IterationBegin(failedIter)
	run(replayCtx)

	replayed := replayCtx.Failure()
	res.Deterministic = sameFailure(failure, replayed)
	if replayed != nil {
		res.History = replayed.Log
	}
	if !res.Deterministic && p.Output != nil {
		fmt.Fprintf(p.Output, "racesim: iteration %d did not reproduce on replay (determinism check failed)\n", failedIter)
	}
	return res
}

func sameFailure(a, b *history.Failure) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Outcome == b.Outcome && a.Message == b.Message && a.Thread == b.Thread
}

// runSequential drives sched+run through count iterations starting at
// start (count<=0 means unbounded: run until exhaustion or failure),
// reusing one Context across iterations via IterationBegin.
func runSequential(p Params, sched scheduler.Scheduler, run IterationFunc, start, count int, progress func()) (ran int, failedIter int, failure *history.Failure, exhausted bool) {
	ctx := context.New(contextParams(p), sched)
	failedIter = -1
	for i := 0; count <= 0 || i < count; i++ {
		iter := start + i
		ctx.IterationBegin(iter)
		run(ctx)
		ran++
		if progress != nil {
			progress()
		}
		if f := ctx.Failure(); f != nil {
			return ran, iter, f, false
		}
		if sched.IterationEnd() {
			return ran, -1, nil, true
		}
	}
	return ran, -1, nil, false
}

// newProgressReporter returns a callback invoked once per completed
// iteration (from possibly many goroutines under runParallel); every
// ProgressPeriod'th call prints "pct% (done/total)" (or a bare count when
// the total is open-ended) to p.Progress.
func newProgressReporter(p Params) func() {
	if p.Progress == nil {
		return nil
	}
	var n int64
	var mu sync.Mutex
	total := p.IterationCount
	return func() {
		v := atomic.AddInt64(&n, 1)
		if v%ProgressPeriod != 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if total > 0 {
			fmt.Fprintf(p.Progress, "%d%% (%d/%d)\n", int(v*100/int64(total)), v, total)
		} else {
			fmt.Fprintf(p.Progress, "%d iterations\n", v)
		}
	}
}
