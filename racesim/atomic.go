package racesim

import (
	"github.com/kolkov/racesim/internal/engine/atomichist"
	"github.com/kolkov/racesim/internal/engine/memorder"
)

// MemoryOrder is one of the five C++11 orderings spec.md §1 requires.
type MemoryOrder = memorder.Order

const (
	Relaxed = memorder.Relaxed
	Acquire = memorder.Acquire
	Release = memorder.Release
	AcqRel  = memorder.AcqRel
	SeqCst  = memorder.SeqCst
)

// Value is the set of types Atomic[V] can hold: anything that fits the
// engine's uint64 store-history payload.
type Value interface {
	bool | int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 | uintptr
}

func toU64[V Value](v V) uint64 {
	switch x := any(v).(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return uint64(x)
	case int8:
		return uint64(x)
	case int16:
		return uint64(x)
	case int32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case uintptr:
		return uint64(x)
	default:
		panic("racesim: unreachable Value type")
	}
}

func fromU64[V Value](raw uint64) V {
	var zero V
	switch any(zero).(type) {
	case bool:
		return any(raw != 0).(V)
	case int:
		return any(int(raw)).(V)
	case int8:
		return any(int8(raw)).(V)
	case int16:
		return any(int16(raw)).(V)
	case int32:
		return any(int32(raw)).(V)
	case int64:
		return any(int64(raw)).(V)
	case uint:
		return any(uint(raw)).(V)
	case uint8:
		return any(uint8(raw)).(V)
	case uint16:
		return any(uint16(raw)).(V)
	case uint32:
		return any(uint32(raw)).(V)
	case uint64:
		return any(raw).(V)
	case uintptr:
		return any(uintptr(raw)).(V)
	default:
		panic("racesim: unreachable Value type")
	}
}

// Atomic is a C++11-style atomic variable (spec.md §4.B): every Load,
// Store, RMW and CAS is a scheduling point, and a Load may observe any of
// the bounded history of recent stores still visible under the engine's
// weak-memory model, not just "the" current value.
//
// The zero value is usable directly but carries no stored value until the
// first Store, so a Suite should seed it (typically from Before) before
// any thread Loads it. Per spec.md §9's cyclic-ownership resolution, an
// Atomic never holds its history cell directly — it holds a slot index
// into the owning Context's atomic-cell pool (see internal/engine/context's
// pool.go), allocated lazily on first access.
type Atomic[V Value] struct {
	slot int // 1 + the pool index; 0 means not yet allocated.
}

func (a *Atomic[V]) cellOf(t *T) *atomichist.Cell {
	if a.slot == 0 {
		a.slot = t.ctx.AllocAtomicCell() + 1
	}
	return t.ctx.AtomicCell(a.slot - 1)
}

// Load reads the atomic under mo, labeling the access label for history
// output.
func (a *Atomic[V]) Load(t *T, label string, mo MemoryOrder) V {
	return fromU64[V](t.ctx.AtomicLoad(label, a.cellOf(t), mo))
}

// Store writes v to the atomic under mo.
func (a *Atomic[V]) Store(t *T, label string, v V, mo MemoryOrder) {
	t.ctx.AtomicStore(label, a.cellOf(t), toU64(v), mo)
}

// RMW atomically replaces the current value with f(old) and returns old.
// An RMW always participates in the release sequence regardless of mo, per
// C++11; aba is always false, since this engine's RMW (unlike CAS) never
// fails — it is carried in the signature for symmetry with CAS and in case
// a future ABA-hazard model needs it.
func (a *Atomic[V]) RMW(t *T, label string, mo MemoryOrder, f func(V) V) (old V, aba bool) {
	prev := t.ctx.AtomicRMW(label, a.cellOf(t), mo, func(raw uint64) uint64 {
		return toU64(f(fromU64[V](raw)))
	})
	return fromU64[V](prev), false
}

// CAS stores desired if the current value equals expected, and reports
// whether it did.
func (a *Atomic[V]) CAS(t *T, label string, expected, desired V, mo MemoryOrder) bool {
	return t.ctx.CompareAndSwap(label, a.cellOf(t), toU64(expected), toU64(desired), mo)
}
