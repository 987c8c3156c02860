package sync

import (
	"github.com/kolkov/racesim/internal/engine/syncobj"
	"github.com/kolkov/racesim/racesim"
)

// Event is a manual-reset event: once Set, every past and future Wait
// returns immediately — it never automatically un-signals.
//
// Like Mutex, an Event holds only a slot index into its allocating
// Context's event pool (spec.md §9's cyclic-ownership resolution).
type Event struct {
	idx int
}

// NewEvent allocates an unset event from t's Context-owned pool, sized for
// that Context's full thread capacity.
func NewEvent(t *racesim.T) *Event {
	return &Event{idx: t.EngineContext().AllocEvent()}
}

func (e *Event) handle(t *racesim.T) *syncobj.Event {
	return t.EngineContext().EventAt(e.idx)
}

// Wait blocks until the event is set.
func (e *Event) Wait(t *racesim.T, label string) {
	t.EngineContext().EventWait(label, e.handle(t))
}

// Set latches the event and wakes every thread currently parked on it.
func (e *Event) Set(t *racesim.T, label string) {
	t.EngineContext().EventSet(label, e.handle(t))
}
