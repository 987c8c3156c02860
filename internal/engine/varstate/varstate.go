// Package varstate implements data-race detection on ordinary (non-atomic)
// shared variables, per spec.md §3/§4.C.
//
// Unlike atomichist's bounded store history, a plain variable keeps only the
// clock of its last store and its last load: an access is legal exactly
// when it is ordered after every conflicting prior access by some
// happens-before edge, and illegal (a race) otherwise.
package varstate

import "github.com/kolkov/racesim/internal/engine/vclock"

// State is the access-history record for one plain shared variable.
type State struct {
	lastStore *vclock.VectorClock
	lastLoad  *vclock.VectorClock
}

// New returns a variable that has never been accessed.
func New(threads int) *State {
	return &State{
		lastStore: vclock.New(threads),
		lastLoad:  vclock.New(threads),
	}
}

// Reset clears the access history, for reuse when a variable's backing
// memory is freed and reallocated.
func (s *State) Reset() {
	s.lastStore.Reset()
	s.lastLoad.Reset()
}

// Store records a store by a thread with the given current clock. It
// returns false if the store races with a prior conflicting access (the
// storing thread's clock does not dominate both the last store and the join
// of every load since), per spec.md §3: "A store succeeds iff the storing
// thread's clock dominates both; a load succeeds iff it dominates
// last_store_clock."
//
// A legal store happens-after every load recorded since the previous store,
// so lastLoad is cleared afterward: those reads are now subsumed by this
// store and must not force unrelated future accesses to re-synchronize with
// them.
func (s *State) Store(threadClock *vclock.VectorClock) bool {
	ok := threadClock.Dominates(s.lastStore) && threadClock.Dominates(s.lastLoad)
	s.lastStore.CopyFrom(threadClock)
	s.lastLoad.Reset()
	return ok
}

// Load records a load by a thread with the given current clock. It returns
// false if the load races with a prior store not covered by a
// happens-before edge. Concurrent, non-conflicting reads accumulate into
// lastLoad (their join) rather than overwrite one another, so a later store
// must happen-after every reader, not just the most recent one.
func (s *State) Load(threadClock *vclock.VectorClock) bool {
	ok := threadClock.Dominates(s.lastStore)
	s.lastLoad.Join(threadClock)
	return ok
}
