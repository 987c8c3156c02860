// Package racesim drives a user-supplied concurrent test through many
// cooperatively-scheduled interleavings, looking for data races, deadlocks,
// livelocks, leaks and failed assertions, and can replay any failure it
// finds from a saved scheduler state.
//
// A test implements Suite (Thread is mandatory; Before/After/Invariant are
// detected via type assertion) and hands it to Simulate:
//
//	type counter struct {
//		x  racesim.Var[int]
//		mu *racesimsync.Mutex
//	}
//
//	func (c *counter) Before(t *racesim.T) {
//		c.mu = racesimsync.NewMutex(t)
//	}
//
//	func (c *counter) Thread(t *racesim.T, idx int) {
//		c.mu.Lock(t, "mu")
//		c.x.Store(t, "x", c.x.Load(t, "x")+1)
//		c.mu.Unlock(t, "mu")
//	}
//
//	res := racesim.Simulate(2, 0, racesim.Params{Iterations: 10000}, func() *counter {
//		return &counter{}
//	})
//
// The underlying C++11-style memory model, scheduler strategies and replay
// machinery live in internal/engine and are not exported directly; this
// package and racesim/sync are the whole user-facing surface.
package racesim
