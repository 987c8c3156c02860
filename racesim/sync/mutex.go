package sync

import (
	"github.com/kolkov/racesim/internal/engine/syncobj"
	"github.com/kolkov/racesim/racesim"
)

// Mutex is a recursive mutual-exclusion lock, modeled cooperatively: the
// owning thread may Lock it again, and any other thread that calls Lock
// while it is held parks until Unlock hands it over.
//
// Per spec.md §9's cyclic-ownership resolution, a Mutex never holds the
// engine's *syncobj.Mutex directly — it holds a slot index into the
// allocating Context's mutex pool (internal/engine/context's pool.go),
// which is what NewMutex allocates.
type Mutex struct {
	idx int
}

// NewMutex allocates an unlocked Mutex from t's Context-owned pool, sized
// for up to that Context's full thread capacity (racesim.Simulate's
// threads+dynamic).
func NewMutex(t *racesim.T) *Mutex {
	return &Mutex{idx: t.EngineContext().AllocMutex()}
}

func (mu *Mutex) handle(t *racesim.T) *syncobj.Mutex {
	return t.EngineContext().MutexAt(mu.idx)
}

// Lock acquires the mutex for the calling thread, blocking cooperatively
// if another thread already holds it. A lock that can never be granted —
// every other thread is itself blocked — fails the iteration with
// Deadlock instead of actually hanging.
func (mu *Mutex) Lock(t *racesim.T, label string) {
	t.EngineContext().MutexLock(label, mu.handle(t))
}

// Unlock releases the mutex, handing it directly to the longest-waiting
// parked thread if any.
func (mu *Mutex) Unlock(t *racesim.T, label string) {
	t.EngineContext().MutexUnlock(label, mu.handle(t))
}
