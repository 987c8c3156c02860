package sync

import (
	"github.com/kolkov/racesim/internal/engine/syncobj"
	"github.com/kolkov/racesim/racesim"
)

// CondVar is a condition variable used together with a Mutex, mirroring
// sync.Cond: Wait atomically (from the model's perspective) releases the
// mutex and parks, then reacquires it once woken by Signal or Broadcast.
//
// Like Mutex, a CondVar holds only a slot index into its allocating
// Context's condition-variable pool (spec.md §9's cyclic-ownership
// resolution), not the engine's *syncobj.CondVar directly.
type CondVar struct {
	idx int
}

// NewCondVar allocates an unparked condition variable from t's
// Context-owned pool.
func NewCondVar(t *racesim.T) *CondVar {
	return &CondVar{idx: t.EngineContext().AllocCondVar()}
}

func (cv *CondVar) handle(t *racesim.T) *syncobj.CondVar {
	return t.EngineContext().CondVarAt(cv.idx)
}

// Wait releases mu, parks until woken, and reacquires mu before returning.
func (cv *CondVar) Wait(t *racesim.T, label string, mu *Mutex) {
	t.EngineContext().CondVarWait(label, cv.handle(t), mu.handle(t))
}

// Signal wakes the single longest-waiting parked thread, if any.
func (cv *CondVar) Signal(t *racesim.T, label string) {
	t.EngineContext().CondVarSignal(label, cv.handle(t))
}

// Broadcast wakes every thread parked on cv.
func (cv *CondVar) Broadcast(t *racesim.T, label string) {
	t.EngineContext().CondVarBroadcast(label, cv.handle(t))
}
