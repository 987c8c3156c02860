package scheduler

import "math/rand"

// goldenRatio64 is the golden-ratio fractal constant used to mix the
// iteration counter before reseeding. Held as uint64 and cast at use
// sites because its bit pattern overflows int64 as a typed constant.
var goldenRatio64 uint64 = 0x9E3779B97F4A7C15

// Random is the stochastic stress scheduler: uniform choice among runnable
// threads, uniform rand() values, never exhausted. Grounded on spec.md
// §4.G's "reseed from iter" determinism requirement: the RNG is reset from
// the iteration counter and the base seed only, so two runs of the same
// iteration number with the same seed produce byte-identical decisions
// regardless of history.
type Random struct {
	rng       *rand.Rand
	seed      int64
	iteration int
	blocked   map[int]bool
	deadlock  bool
}

// NewRandom returns a random scheduler. seed salts the per-iteration
// reseed so independent Simulate calls with different base seeds explore
// different sequences of iterations.
func NewRandom(seed int64) *Random {
	return &Random{
		rng:     rand.New(rand.NewSource(seed)),
		seed:    seed,
		blocked: make(map[int]bool),
	}
}

func (s *Random) IterationBegin(iter int) int {
	s.iteration = iter
	s.rng = rand.New(rand.NewSource(int64(iter)*int64(goldenRatio64) + s.seedSalt()))
	s.blocked = make(map[int]bool)
	s.deadlock = false
	return 0
}

// seedSalt lets a Random constructed with a non-zero base seed still vary
// iteration-to-iteration in a way distinct from a differently-seeded
// Random exploring the same iteration numbers.
func (s *Random) seedSalt() int64 {
	return s.seed
}

func (s *Random) Schedule(runnable []int, yieldHint int, reason Reason) int {
	if len(runnable) == 0 {
		return -1
	}
	if len(runnable) == 1 {
		return runnable[0]
	}
	return runnable[s.rng.Intn(len(runnable))]
}

func (s *Random) Rand(limit int, purpose string) int {
	if limit <= 0 {
		return 0
	}
	return s.rng.Intn(limit)
}

func (s *Random) ParkCurrent(timed, allowSpurious bool, otherRunnable int) bool {
	return otherRunnable > 0
}

func (s *Random) Unpark(thread int, doSwitch bool) {
	delete(s.blocked, thread)
}

func (s *Random) ThreadFinished(remainingRunnable, remainingBlocked int) FinishKind {
	switch {
	case remainingRunnable == 0 && remainingBlocked == 0:
		return FinishLast
	case remainingRunnable == 0 && remainingBlocked > 0:
		return FinishDeadlock
	default:
		return FinishNormal
	}
}

// IterationEnd always reports false: a random scheduler samples forever and
// is never exhausted by construction.
func (s *Random) IterationEnd() bool {
	return false
}

func (s *Random) GetState() State {
	return State{Iteration: s.iteration}
}

func (s *Random) SetState(st State) {
	s.IterationBegin(st.Iteration)
}
