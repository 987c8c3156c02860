package context

import (
	"github.com/kolkov/racesim/internal/engine/atomichist"
	"github.com/kolkov/racesim/internal/engine/syncobj"
	"github.com/kolkov/racesim/internal/engine/varstate"
)

// pools holds every context-owned resource this iteration has handed a
// handle to, per spec.md §9's cyclic-ownership resolution: the context is
// the sole owner of atomic cells, non-atomic variable state and sync
// objects, and every handle racesim.Atomic/racesim.Var/racesim/sync expose
// to user code carries only a slot index back into one of these pools,
// never a raw engine pointer.
//
// Go has no destructors, so unlike the original allocator (which returns a
// slot the moment a handle's destructor runs) this pool never recycles a
// slot mid-iteration — it only grows, as each field allocates on first
// access, and is discarded wholesale at the next IterationBegin, when a
// freshly constructed Suite is about to hand out a fresh set of handles
// anyway. See DESIGN.md for why this makes spec.md's resource-leak outcome
// unreachable under this adaptation.
type pools struct {
	atomics    []*atomichist.Cell
	vars       []*varstate.State
	mutexes    []*syncobj.Mutex
	condvars   []*syncobj.CondVar
	semaphores []*syncobj.Semaphore
	events     []*syncobj.Event
}

func (p *pools) reset() {
	p.atomics = p.atomics[:0]
	p.vars = p.vars[:0]
	p.mutexes = p.mutexes[:0]
	p.condvars = p.condvars[:0]
	p.semaphores = p.semaphores[:0]
	p.events = p.events[:0]
}

// AllocAtomicCell takes a fresh slot in the atomic-cell pool, a cell with
// the default history depth, and returns its index.
func (c *Context) AllocAtomicCell() int {
	c.res.atomics = append(c.res.atomics, atomichist.New(atomichist.DefaultDepth))
	return len(c.res.atomics) - 1
}

// AtomicCell returns the cell a prior AllocAtomicCell call allocated at idx.
func (c *Context) AtomicCell(idx int) *atomichist.Cell {
	return c.res.atomics[idx]
}

// AllocVarState takes a fresh slot in the non-atomic variable pool.
func (c *Context) AllocVarState() int {
	c.res.vars = append(c.res.vars, varstate.New(c.capacity))
	return len(c.res.vars) - 1
}

// VarState returns the state a prior AllocVarState call allocated at idx.
func (c *Context) VarState(idx int) *varstate.State {
	return c.res.vars[idx]
}

// AllocMutex takes a fresh slot in the mutex pool.
func (c *Context) AllocMutex() int {
	c.res.mutexes = append(c.res.mutexes, syncobj.NewMutex(c.capacity))
	return len(c.res.mutexes) - 1
}

// MutexAt returns the mutex a prior AllocMutex call allocated at idx.
func (c *Context) MutexAt(idx int) *syncobj.Mutex {
	return c.res.mutexes[idx]
}

// AllocCondVar takes a fresh slot in the condition-variable pool.
func (c *Context) AllocCondVar() int {
	c.res.condvars = append(c.res.condvars, syncobj.NewCondVar())
	return len(c.res.condvars) - 1
}

// CondVarAt returns the condition variable a prior AllocCondVar call
// allocated at idx.
func (c *Context) CondVarAt(idx int) *syncobj.CondVar {
	return c.res.condvars[idx]
}

// AllocSemaphore takes a fresh slot in the semaphore pool, starting with
// initial permits available.
func (c *Context) AllocSemaphore(initial int) int {
	c.res.semaphores = append(c.res.semaphores, syncobj.NewSemaphore(c.capacity, initial))
	return len(c.res.semaphores) - 1
}

// SemaphoreAt returns the semaphore a prior AllocSemaphore call allocated
// at idx.
func (c *Context) SemaphoreAt(idx int) *syncobj.Semaphore {
	return c.res.semaphores[idx]
}

// AllocEvent takes a fresh slot in the event pool.
func (c *Context) AllocEvent() int {
	c.res.events = append(c.res.events, syncobj.NewEvent(c.capacity))
	return len(c.res.events) - 1
}

// EventAt returns the event a prior AllocEvent call allocated at idx.
func (c *Context) EventAt(idx int) *syncobj.Event {
	return c.res.events[idx]
}
