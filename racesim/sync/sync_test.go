package sync_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/racesim"
	rlsync "github.com/kolkov/racesim/racesim/sync"
)

// producerConsumer hands one item from thread 0 to thread 1 through a
// condition variable guarded by a mutex, the textbook use of CondVar.
type producerConsumer struct {
	mu    *rlsync.Mutex
	cv    *rlsync.CondVar
	ready racesim.Var[bool]
	item  racesim.Var[int]
}

func (s *producerConsumer) Before(t *racesim.T) {
	s.mu = rlsync.NewMutex(t)
	s.cv = rlsync.NewCondVar(t)
	s.ready.Store(t, "ready", false)
}

func (s *producerConsumer) Thread(t *racesim.T, idx int) {
	if idx == 0 {
		s.mu.Lock(t, "mu")
		s.item.Store(t, "item", 7)
		s.ready.Store(t, "ready", true)
		s.cv.Signal(t, "cv")
		s.mu.Unlock(t, "mu")
		return
	}

	s.mu.Lock(t, "mu")
	for !s.ready.Load(t, "ready") {
		s.cv.Wait(t, "cv", s.mu)
	}
	v := s.item.Load(t, "item")
	s.mu.Unlock(t, "mu")
	t.Assert(v == 7, "consumer observed %d, want 7", v)
}

func TestCondVarHandoffNeverFails(t *testing.T) {
	res := racesim.Simulate(2, 0, racesim.Params{
		ExecutionDepthLimit: 5000,
		DeferDenominator:    2,
		Search:              racesim.SearchFairFull,
		FairnessCap:         16,
	}, func() *producerConsumer { return &producerConsumer{} })

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
	require.True(t, res.Exhausted, "expected fair-full search to exhaust the interleaving space")
}

// boundedPool caps concurrent access to a single-slot resource with a
// Semaphore of one permit, the same shape as a Mutex but exercising the
// counting-semaphore path through syncobj.
type boundedPool struct {
	sem   *rlsync.Semaphore
	inUse racesim.Var[int]
}

func (s *boundedPool) Before(t *racesim.T) {
	s.sem = rlsync.NewSemaphore(t, 1)
	s.inUse.Store(t, "inUse", 0)
}

func (s *boundedPool) Thread(t *racesim.T, idx int) {
	s.sem.Acquire(t, "sem")
	n := s.inUse.Load(t, "inUse")
	t.Assert(n == 0, "semaphore let %d threads in at once", n+1)
	s.inUse.Store(t, "inUse", n+1)
	s.inUse.Store(t, "inUse", n)
	s.sem.Release(t, "sem")
}

func TestSemaphoreOfOneIsMutualExclusion(t *testing.T) {
	res := racesim.Simulate(2, 0, racesim.Params{
		ExecutionDepthLimit: 5000,
		DeferDenominator:    2,
		Search:              racesim.SearchFairFull,
		FairnessCap:         16,
	}, func() *boundedPool { return &boundedPool{} })

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
}

// gatedStart has two worker threads wait on an Event a third thread sets,
// so neither worker can observe the gated variable before it is published.
type gatedStart struct {
	gate    *rlsync.Event
	payload racesim.Var[int]
}

func (s *gatedStart) Before(t *racesim.T) {
	s.gate = rlsync.NewEvent(t)
}

func (s *gatedStart) Thread(t *racesim.T, idx int) {
	if idx == 0 {
		s.payload.Store(t, "payload", 99)
		s.gate.Set(t, "gate")
		return
	}
	s.gate.Wait(t, "gate")
	v := s.payload.Load(t, "payload")
	t.Assert(v == 99, "worker %d observed %d before the gate opened", idx, v)
}

func TestEventGateOrdersWorkers(t *testing.T) {
	res := racesim.Simulate(3, 0, racesim.Params{
		ExecutionDepthLimit: 5000,
		DeferDenominator:    2,
		Search:              racesim.SearchFairFull,
		FairnessCap:         16,
	}, func() *gatedStart { return &gatedStart{} })

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
}

// threadLocalIsolation writes a distinct value per thread into a
// ThreadLocal and checks it back, which can never race by construction.
type threadLocalIsolation struct {
	tl rlsync.ThreadLocal[int]
}

func (s *threadLocalIsolation) Thread(t *racesim.T, idx int) {
	s.tl.Set(t, idx*10)
	t.Yield()
	got := s.tl.Get(t)
	t.Assert(got == idx*10, "thread %d observed %d in its own slot", idx, got)
}

func TestThreadLocalIsolationNeverFails(t *testing.T) {
	res := racesim.Simulate(4, 0, racesim.Params{
		Iterations:          200,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		Search:              racesim.SearchRandom,
		Seed:                1,
	}, func() *threadLocalIsolation { return &threadLocalIsolation{} })

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
}
