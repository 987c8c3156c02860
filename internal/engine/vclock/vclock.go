// Package vclock implements vector clocks for the happens-before relation
// over a fixed, small set of cooperatively scheduled logical threads.
//
// Unlike a race detector instrumenting real goroutines (which must support
// tens of thousands of concurrent IDs), a simulated test declares its thread
// count once, up front, so a VectorClock here is a plain slice sized to that
// count and never resized for the lifetime of an iteration.
package vclock

import "strings"

// VectorClock is an N-tuple of per-thread logical timestamps.
//
// VC1 <= VC2 iff VC1[i] <= VC2[i] for every thread i. A thread only ever
// writes its own entry (which only ever increases) and only ever reads the
// entries of other threads.
type VectorClock struct {
	ticks []uint32
}

// New returns a zero-initialized vector clock for n logical threads.
func New(n int) *VectorClock {
	return &VectorClock{ticks: make([]uint32, n)}
}

// Len returns the number of threads this clock tracks.
func (vc *VectorClock) Len() int {
	return len(vc.ticks)
}

// Get returns the logical time recorded for thread i.
func (vc *VectorClock) Get(i int) uint32 {
	return vc.ticks[i]
}

// Set overwrites the logical time recorded for thread i.
func (vc *VectorClock) Set(i int, t uint32) {
	vc.ticks[i] = t
}

// Advance increments the clock's own entry for thread self and returns the
// new value. Called when the owning thread stores, performs an RMW, writes
// a non-atomic variable or spawns a thread.
func (vc *VectorClock) Advance(self int) uint32 {
	vc.ticks[self]++
	return vc.ticks[self]
}

// Clone returns a deep, independent copy.
func (vc *VectorClock) Clone() *VectorClock {
	out := &VectorClock{ticks: make([]uint32, len(vc.ticks))}
	copy(out.ticks, vc.ticks)
	return out
}

// CopyFrom overwrites vc in place with other's values. Used on the hot path
// (release-clock handoff, non-atomic store clocks) to avoid an allocation
// per call.
func (vc *VectorClock) CopyFrom(other *VectorClock) {
	copy(vc.ticks, other.ticks)
}

// Join performs the synchronizing point-wise maximum: vc = vc (join) other.
// This is the only operation that establishes happens-before across threads.
func (vc *VectorClock) Join(other *VectorClock) {
	for i, t := range other.ticks {
		if t > vc.ticks[i] {
			vc.ticks[i] = t
		}
	}
}

// Dominates reports whether vc happens-after-or-equal other: vc[i] >=
// other[i] for every thread i. Equivalently, other.HappensBefore(vc).
func (vc *VectorClock) Dominates(other *VectorClock) bool {
	for i, t := range other.ticks {
		if vc.ticks[i] < t {
			return false
		}
	}
	return true
}

// HappensBefore reports whether vc <= other (vc happened-before-or-with
// other). This is the canonical happens-before check used throughout the
// engine: a store happens-before a load iff store.HappensBefore(load).
func (vc *VectorClock) HappensBefore(other *VectorClock) bool {
	return other.Dominates(vc)
}

// Reset zeroes every entry, reused at the start of each iteration instead of
// reallocating.
func (vc *VectorClock) Reset() {
	for i := range vc.ticks {
		vc.ticks[i] = 0
	}
}

// String renders the non-zero entries, e.g. "{0:3, 2:1}".
func (vc *VectorClock) String() string {
	var parts []string
	for i, t := range vc.ticks {
		if t != 0 {
			parts = append(parts, itoa(i)+":"+itoa(int(t)))
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
