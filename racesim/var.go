package racesim

import "github.com/kolkov/racesim/internal/engine/varstate"

// Var is an ordinary (non-atomic) shared variable, instrumented per
// spec.md §4.C: concurrent accesses with no happens-before edge between
// them fail the iteration with DataRace. Unlike Atomic, the value itself
// is plain Go state — there is never any real concurrent access to race on
// at the Go-memory-model level, since exactly one logical thread's code
// ever runs at a time; what Load/Store check is whether the *simulated*
// interleaving would have raced on real hardware.
//
// The zero value is usable directly; its access history is allocated
// lazily on first use, and a fresh Var (and fresh Context-owned pool slot)
// backs the field again every iteration along with the rest of a
// freshly-constructed Suite. Per spec.md §9's cyclic-ownership resolution,
// a Var never holds its varstate.State directly — it holds a slot index
// into the owning Context's variable-state pool.
type Var[V any] struct {
	slot  int // 1 + the pool index; 0 means not yet allocated.
	value V
}

func (v *Var[V]) stateOf(t *T) *varstate.State {
	if v.slot == 0 {
		v.slot = t.ctx.AllocVarState() + 1
	}
	return t.ctx.VarState(v.slot - 1)
}

// Load reads the variable's current value.
func (v *Var[V]) Load(t *T, label string) V {
	t.ctx.NonAtomicRead(label, v.stateOf(t))
	return v.value
}

// Store writes val to the variable.
func (v *Var[V]) Store(t *T, label string, val V) {
	v.value = val
	t.ctx.NonAtomicWrite(label, v.stateOf(t))
}
