package sync

import (
	"github.com/kolkov/racesim/internal/engine/syncobj"
	"github.com/kolkov/racesim/racesim"
)

// Semaphore is a counting semaphore: Acquire blocks while no permit is
// available, Release returns one, handing it directly to a parked thread
// if one is waiting.
//
// Like Mutex, a Semaphore holds only a slot index into its allocating
// Context's semaphore pool (spec.md §9's cyclic-ownership resolution).
type Semaphore struct {
	idx int
}

// NewSemaphore allocates a semaphore from t's Context-owned pool, sized
// for that Context's full thread capacity and starting with initial
// permits available.
func NewSemaphore(t *racesim.T, initial int) *Semaphore {
	return &Semaphore{idx: t.EngineContext().AllocSemaphore(initial)}
}

func (s *Semaphore) handle(t *racesim.T) *syncobj.Semaphore {
	return t.EngineContext().SemaphoreAt(s.idx)
}

// Acquire takes one permit, blocking cooperatively if none are available.
func (s *Semaphore) Acquire(t *racesim.T, label string) {
	t.EngineContext().SemaphoreAcquire(label, s.handle(t))
}

// Release returns one permit.
func (s *Semaphore) Release(t *racesim.T, label string) {
	t.EngineContext().SemaphoreRelease(label, s.handle(t))
}
