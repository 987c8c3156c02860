// Package scheduler implements the scheduling strategies of spec.md §4.G:
// a shared interface plus random, exhaustive full-search (fair), and
// context-bound implementations. Every non-deterministic decision in the
// engine — which runnable thread goes next, every user or internal rand()
// call, the deferred-free coin flip — flows through one of these.
package scheduler

import "fmt"

// Reason tags *why* a scheduling point occurred, restoring the sched_type
// distinctions the original engine tracks (relacy's defs.hpp) so history
// entries and replay diffs can show why a switch happened, not just that
// one happened.
type Reason int

const (
	// ReasonSched is a plain voluntary yield/scheduling point.
	ReasonSched Reason = iota
	// ReasonAtomicLoad is a load-visibility choice (which store in history
	// to observe).
	ReasonAtomicLoad
	// ReasonCASFail tags the scheduling point after a compare-and-swap
	// whose expected value did not match.
	ReasonCASFail
	// ReasonMemRealloc is the deferred-free coin flip in memmgr.
	ReasonMemRealloc
	// ReasonUser is an explicit user yield() or rand() call.
	ReasonUser
)

func (r Reason) String() string {
	switch r {
	case ReasonSched:
		return "sched"
	case ReasonAtomicLoad:
		return "atomic_load"
	case ReasonCASFail:
		return "cas_fail"
	case ReasonMemRealloc:
		return "mem_realloc"
	case ReasonUser:
		return "user"
	default:
		return fmt.Sprintf("scheduler.Reason(%d)", int(r))
	}
}

// UnparkReason is why a parked thread was resumed.
type UnparkReason int

const (
	// UnparkNormal means another thread explicitly woke this one.
	UnparkNormal UnparkReason = iota
	// UnparkTimeout means a timed wait's scheduler-chosen timeout fired.
	UnparkTimeout
	// UnparkSpurious means the scheduler injected a spurious wakeup.
	UnparkSpurious
)

// FinishKind classifies what happens when a thread completes.
type FinishKind int

const (
	// FinishNormal means other threads remain runnable or blocked.
	FinishNormal FinishKind = iota
	// FinishLast means this was the last thread in the iteration.
	FinishLast
	// FinishDeadlock means every remaining thread is blocked forever.
	FinishDeadlock
)

// State is the opaque, round-trippable scheduler cursor from spec.md §6:
// "<iteration_number> <scheduler-specific blob>". The driver persists this
// on failure and restores it before replay.
type State struct {
	Iteration int
	Blob      []byte
}

// Scheduler is the shared capability set consumed by the execution context
// (spec.md §4.G): nine operations, one interface, so the context stays
// generic over whichever strategy is active.
type Scheduler interface {
	// IterationBegin resets per-iteration state and returns the first
	// thread to run.
	IterationBegin(iter int) (initialThread int)

	// Schedule chooses the next thread to run from runnable (sorted
	// ascending by thread id), given a hint of which thread just yielded
	// (or -1 at the very start) and why this decision point exists.
	Schedule(runnable []int, yieldHint int, reason Reason) (next int)

	// Rand returns a value in [0, limit) for the given purpose. Every
	// source of non-determinism in the engine (load-visibility choice,
	// deferred-free choice, user rl.Rand) routes through this single
	// entry point so replay can reproduce it exactly.
	Rand(limit int, purpose string) int

	// ParkCurrent records that the current thread wants to block.
	// otherRunnable is the number of other threads still runnable (the
	// context, which owns the full thread table, computes this); if it is
	// zero, granting the park would deadlock every thread and ParkCurrent
	// returns false instead.
	ParkCurrent(timed, allowSpurious bool, otherRunnable int) bool

	// Unpark marks thread runnable again. doSwitch hints that control
	// should move to it now rather than merely becoming eligible later.
	Unpark(thread int, doSwitch bool)

	// ThreadFinished reports that the calling thread's body returned, and
	// classifies the state of the rest of the iteration.
	ThreadFinished(remainingRunnable, remainingBlocked int) FinishKind

	// IterationEnd advances the exploration cursor for the next
	// iteration. It returns true once the search space is exhausted (a
	// no-op for the random scheduler, which is never exhausted).
	IterationEnd() (exhausted bool)

	// GetState snapshots the exploration cursor for replay.
	GetState() State

	// SetState restores a previously snapshotted cursor.
	SetState(State)
}

// sortedCopy returns a new slice with ids sorted ascending, the tie-break
// order spec.md §4.G requires ("lexicographic on thread id, then on rand
// value") for every exhaustive scheduler.
func sortedCopy(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
