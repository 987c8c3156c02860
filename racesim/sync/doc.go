// Package sync provides racesim's user-facing synchronization primitives:
// thin wrappers over internal/engine/syncobj's handles with the ergonomics
// of sync.Mutex, sync.Cond, a counting semaphore and a manual-reset event,
// plus a generic ThreadLocal. These add no engine semantics of their own —
// they are the explicit load/store-style shims spec.md §9 calls for,
// applied to sync types rather than atomics — and are the only way a
// racesim.Suite reaches component D (syncobj) from outside the engine.
//
// Every operation takes the calling thread's *racesim.T explicitly, the
// same convention racesim.Atomic and racesim.Var use, rather than an
// implicit per-goroutine handle: exactly one logical thread's body ever
// runs at a time, but Simulate can run several independent iterations
// concurrently across a worker pool, so there is no single "current"
// engine instance a package-level global could safely name.
package sync
