// Package fiber implements the cooperative thread runtime from spec.md
// §4.F. Go has no user-space fiber/ucontext primitive, so each logical
// thread is backed by one goroutine; control is handed off with unbuffered
// channels so that, as with a real fiber scheduler, exactly one logical
// thread ever runs at a time and every context switch is an explicit,
// scheduler-ordered event rather than the Go runtime's own preemption.
//
// The single-runnable-goroutine discipline and the resume/park naming are
// grounded on the scheduler loop in the gosim runtime (scheduler.Run /
// goroutine.step / goroutine.park), adapted from a real-coroutine backend to
// a goroutine+channel backend since no user-space coroutine package is
// available here.
package fiber

import (
	"fmt"

	"github.com/petermattis/goid"
)

// Status is a fiber's lifecycle state.
type Status int

const (
	// Runnable means the fiber is not currently parked and can be resumed.
	Runnable Status = iota
	// Parked means the fiber has yielded and is waiting to be resumed.
	Parked
	// Finished means the fiber's body function returned (or panicked).
	Finished
)

func (s Status) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Parked:
		return "parked"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("fiber.Status(%d)", int(s))
	}
}

// Fiber is one cooperatively-scheduled logical thread. Exactly one Fiber in
// a Group runs at any instant; Yield hands control back to the driver and
// blocks until Resume is called again.
type Fiber struct {
	id     int
	resume chan struct{}
	park   chan struct{}
	status Status
	panic  any

	// hostGoroutineID is the real Go runtime goroutine id backing this
	// fiber, captured for diagnostics (log lines, panic reports) only.
	// It must never influence scheduling: the Go runtime is free to reuse
	// goroutine ids, and replay determinism depends on nothing here
	// varying between the original run and the replay run.
	hostGoroutineID int64
}

// Group owns a set of Fibers started together and torn down together.
type Group struct {
	fibers []*Fiber
}

// NewGroup returns an empty fiber group.
func NewGroup() *Group {
	return &Group{}
}

// Spawn starts body in a new goroutine, immediately parked before its first
// instruction runs; the caller must Resume it to let it begin. yield is
// handed to body so it can cooperatively hand control back to the driver at
// its own suspension points.
func (g *Group) Spawn(id int, body func(yield func())) *Fiber {
	f := &Fiber{
		id:     id,
		resume: make(chan struct{}),
		park:   make(chan struct{}),
		status: Parked,
	}
	g.fibers = append(g.fibers, f)

	go func() {
		<-f.resume // wait for the first Resume before running any user code
		f.hostGoroutineID = goid.Get()
		defer func() {
			if r := recover(); r != nil {
				f.panic = r
			}
			f.status = Finished
			f.park <- struct{}{}
		}()
		body(f.yield)
		f.status = Finished
	}()

	return f
}

// yield is the function a fiber's body calls at its own suspension points.
// It hands control back to whoever called Resume and blocks until Resume is
// called again.
func (f *Fiber) yield() {
	f.status = Parked
	f.park <- struct{}{}
	<-f.resume
	f.status = Runnable
}

// Resume lets the fiber run until its next Yield call (or until it
// finishes), blocking the caller until that happens. Resuming a Finished
// fiber is a no-op.
func (f *Fiber) Resume() {
	if f.status == Finished {
		return
	}
	f.status = Runnable
	f.resume <- struct{}{}
	<-f.park
}

// ID returns the fiber's logical thread index.
func (f *Fiber) ID() int {
	return f.id
}

// Status reports the fiber's current lifecycle state.
func (f *Fiber) Status() Status {
	return f.status
}

// Panic returns the recovered panic value if the fiber's body panicked, or
// nil otherwise.
func (f *Fiber) Panic() any {
	return f.panic
}

// HostGoroutineID returns the real Go runtime goroutine id backing this
// fiber, for log lines and panic reports only — never for scheduling.
func (f *Fiber) HostGoroutineID() int64 {
	return f.hostGoroutineID
}

// Fibers returns every fiber in the group, in spawn order.
func (g *Group) Fibers() []*Fiber {
	return g.fibers
}

// AllFinished reports whether every fiber in the group has finished.
func (g *Group) AllFinished() bool {
	for _, f := range g.fibers {
		if f.status != Finished {
			return false
		}
	}
	return true
}
