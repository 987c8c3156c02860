package sync

import "github.com/kolkov/racesim/racesim"

// ThreadLocal gives each logical thread its own independent V, indexed by
// the engine's current thread id. Unlike Mutex/CondVar/Semaphore/Event, a
// ThreadLocal is never itself a race: by construction no two threads ever
// observe the same slot.
type ThreadLocal[V any] struct {
	values []V
}

// Get returns the calling thread's slot, zero-valued until first Set.
func (tl *ThreadLocal[V]) Get(t *racesim.T) V {
	return tl.slot(t.EngineContext().Current())
}

// Set stores val in the calling thread's slot.
func (tl *ThreadLocal[V]) Set(t *racesim.T, val V) {
	idx := t.EngineContext().Current()
	tl.grow(idx)
	tl.values[idx] = val
}

func (tl *ThreadLocal[V]) slot(idx int) V {
	if idx >= len(tl.values) {
		var zero V
		return zero
	}
	return tl.values[idx]
}

func (tl *ThreadLocal[V]) grow(idx int) {
	if idx < len(tl.values) {
		return
	}
	grown := make([]V, idx+1)
	copy(grown, tl.values)
	tl.values = grown
}
