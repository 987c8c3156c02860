// Package history implements the append-only event log and failure
// taxonomy from spec.md §6/§7: every scheduling decision and memory
// operation is appended as a typed Event so that, on failure, the driver
// can print a step-by-step account of the offending interleaving.
//
// Grounded on the teacher's detector/report.go typed-event shape
// (AccessInfo/RaceReport), adapted from "dedupe races across a whole run"
// to "record the literal first-failure sequence" — spec.md §4.I wants the
// exact order of events in the one iteration that failed, not a deduped
// summary across many.
package history

import "github.com/kolkov/racesim/internal/engine/scheduler"

// Kind tags what an Event records.
type Kind int

const (
	KindSchedule Kind = iota
	KindAtomicLoad
	KindAtomicStore
	KindAtomicRMW
	KindFence
	KindNonAtomicRead
	KindNonAtomicWrite
	KindMutexLock
	KindMutexUnlock
	KindCondVarWait
	KindCondVarSignal
	KindCondVarBroadcast
	KindSemaphoreAcquire
	KindSemaphoreRelease
	KindEventWait
	KindEventSet
	KindYield
	KindAlloc
	KindFree
	KindSpawn
	KindThreadFinished
)

func (k Kind) String() string {
	names := [...]string{
		"schedule", "atomic_load", "atomic_store", "atomic_rmw", "fence",
		"read", "write", "mutex_lock", "mutex_unlock", "condvar_wait",
		"condvar_signal", "condvar_broadcast", "semaphore_acquire",
		"semaphore_release", "event_wait", "event_set", "yield", "alloc",
		"free", "spawn", "thread_finished",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}

// Event is one entry in the log: which thread did what, why the scheduler
// was consulted (if it was), and which variable or object was touched.
type Event struct {
	Step   int
	Thread int
	Kind   Kind
	Reason scheduler.Reason
	// Object names the variable/mutex/condvar/etc. involved, when the test
	// supplied one (spec.md's user-facing wrappers pass a label).
	Object string
	// Detail is a short, already-formatted extra (e.g. "value=3",
	// "handle=7"); left empty when not meaningful for the Kind.
	Detail string
}

// Log is the append-only sequence of Events for one iteration.
type Log struct {
	events []Event
	step   int
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append records ev, stamping it with the next step number.
func (l *Log) Append(ev Event) {
	ev.Step = l.step
	l.step++
	l.events = append(l.events, ev)
}

// Events returns every recorded event, in order.
func (l *Log) Events() []Event {
	return l.events
}

// Len reports how many events have been recorded.
func (l *Log) Len() int {
	return len(l.events)
}

// Reset clears the log for reuse across iterations.
func (l *Log) Reset() {
	l.events = l.events[:0]
	l.step = 0
}

// Outcome is the user-visible result of one iteration (spec.md §7's
// failure taxonomy plus success).
type Outcome int

const (
	Success Outcome = iota
	UserAssertionFailed
	UserInvariantFailed
	DataRace
	UninitializedAccess
	DoubleFree
	MemoryLeak
	ResourceLeak
	Deadlock
	Livelock
	UntilConditionHit
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case UserAssertionFailed:
		return "user-assertion-failed"
	case UserInvariantFailed:
		return "user-invariant-failed"
	case DataRace:
		return "data-race"
	case UninitializedAccess:
		return "uninitialized-access"
	case DoubleFree:
		return "double-free"
	case MemoryLeak:
		return "memory-leak"
	case ResourceLeak:
		return "resource-leak"
	case Deadlock:
		return "deadlock"
	case Livelock:
		return "livelock"
	case UntilConditionHit:
		return "until-condition-hit"
	default:
		return "unknown"
	}
}

// Failure describes a non-success outcome: what happened, where, and the
// log leading up to it.
type Failure struct {
	Outcome Outcome
	Message string
	// Thread is the logical thread that triggered the failure, or -1 if
	// the failure is not attributable to a single thread (e.g. deadlock).
	Thread int
	Log    []Event
}
