package memmgr

import "testing"

func alwaysDefer(limit int, purpose string) int { return 0 }
func neverDefer(limit int, purpose string) int  { return 1 }

func TestAllocTouchFreeHappyPath(t *testing.T) {
	m := New(neverDefer, 4)
	h := m.Alloc(8)
	if got := m.Touch(h); got != TouchOK {
		t.Fatalf("fresh allocation should be touchable, got %v", got)
	}
	if got := m.Free(h); got != FreeOK {
		t.Fatalf("non-deferred free should report FreeOK, got %v", got)
	}
	if got := m.Touch(h); got != TouchUnknownHandle {
		t.Fatalf("touching a reclaimed handle should report TouchUnknownHandle, got %v", got)
	}
}

func TestDoubleFreeDetected(t *testing.T) {
	m := New(alwaysDefer, 4)
	h := m.Alloc(8)
	if got := m.Free(h); got != FreeDeferred {
		t.Fatalf("deferred free should report FreeDeferred, got %v", got)
	}
	if got := m.Free(h); got != FreeDoubleFree {
		t.Fatalf("second free of the same handle should report FreeDoubleFree, got %v", got)
	}
}

func TestUseAfterFreeDetectedWhenDeferred(t *testing.T) {
	m := New(alwaysDefer, 4)
	h := m.Alloc(8)
	m.Free(h)
	if got := m.Touch(h); got != TouchUseAfterFree {
		t.Fatalf("touching a deferred-freed handle should report TouchUseAfterFree, got %v", got)
	}
}

func TestFreeUnknownHandle(t *testing.T) {
	m := New(neverDefer, 4)
	if got := m.Free(999); got != FreeUnknownHandle {
		t.Fatalf("freeing a never-allocated handle should report FreeUnknownHandle, got %v", got)
	}
}

func TestLeaksReportsOnlyNeverFreed(t *testing.T) {
	m := New(neverDefer, 4)
	leaked := m.Alloc(8)
	freed := m.Alloc(8)
	m.Free(freed)

	leaks := m.Leaks()
	if len(leaks) != 1 || leaks[0] != leaked {
		t.Fatalf("expected exactly the unfreed handle to leak, got %v", leaks)
	}
}

func TestDeferredFreeDoesNotCountAsLeak(t *testing.T) {
	m := New(alwaysDefer, 4)
	h := m.Alloc(8)
	m.Free(h)
	if leaks := m.Leaks(); len(leaks) != 0 {
		t.Fatalf("a deferred-but-freed block must not be reported as a leak, got %v", leaks)
	}
}

func TestResetClearsAllBookkeeping(t *testing.T) {
	m := New(neverDefer, 4)
	m.Alloc(8)
	m.Reset()
	if leaks := m.Leaks(); len(leaks) != 0 {
		t.Fatalf("Reset should clear prior allocations, got leaks %v", leaks)
	}
	h := m.Alloc(8)
	if h != 1 {
		t.Fatalf("handles should restart from 1 after Reset, got %d", h)
	}
}
