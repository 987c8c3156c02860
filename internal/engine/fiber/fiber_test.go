package fiber

import "testing"

func TestResumeRunsUntilYield(t *testing.T) {
	g := NewGroup()
	var trace []string

	f := g.Spawn(0, func(yield func()) {
		trace = append(trace, "a")
		yield()
		trace = append(trace, "b")
		yield()
		trace = append(trace, "c")
	})

	if f.Status() != Parked {
		t.Fatalf("freshly spawned fiber should be parked until first Resume, got %v", f.Status())
	}

	f.Resume()
	if got := []string{"a"}; !equal(trace, got) {
		t.Fatalf("after first Resume, trace = %v, want %v", trace, got)
	}
	if f.Status() != Parked {
		t.Fatalf("fiber should be parked after yielding, got %v", f.Status())
	}

	f.Resume()
	if got := []string{"a", "b"}; !equal(trace, got) {
		t.Fatalf("after second Resume, trace = %v, want %v", trace, got)
	}

	f.Resume()
	if got := []string{"a", "b", "c"}; !equal(trace, got) {
		t.Fatalf("after third Resume, trace = %v, want %v", trace, got)
	}
	if f.Status() != Finished {
		t.Fatalf("fiber should be finished once its body returns, got %v", f.Status())
	}
}

func TestResumeOnFinishedFiberIsNoop(t *testing.T) {
	g := NewGroup()
	f := g.Spawn(0, func(yield func()) {})
	f.Resume()
	if f.Status() != Finished {
		t.Fatalf("expected Finished, got %v", f.Status())
	}
	f.Resume() // must not deadlock or panic
}

func TestOnlyOneFiberRunsAtATime(t *testing.T) {
	g := NewGroup()
	var order []int

	a := g.Spawn(0, func(yield func()) {
		order = append(order, 0)
		yield()
		order = append(order, 2)
	})
	b := g.Spawn(1, func(yield func()) {
		order = append(order, 1)
		yield()
		order = append(order, 3)
	})

	a.Resume()
	b.Resume()
	a.Resume()
	b.Resume()

	want := []int{0, 1, 2, 3}
	if !equalInts(order, want) {
		t.Fatalf("interleaving order = %v, want %v (driver controls exactly when each fiber runs)", order, want)
	}
}

func TestAllFinished(t *testing.T) {
	g := NewGroup()
	a := g.Spawn(0, func(yield func()) {})
	b := g.Spawn(1, func(yield func()) { yield() })

	a.Resume()
	if g.AllFinished() {
		t.Fatal("group should not be all-finished while b hasn't run yet")
	}
	b.Resume()
	if g.AllFinished() {
		t.Fatal("b yielded once, should not be finished yet")
	}
	b.Resume()
	if !g.AllFinished() {
		t.Fatal("both fibers finished, AllFinished should be true")
	}
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	g := NewGroup()
	f := g.Spawn(0, func(yield func()) {
		panic("boom")
	})
	f.Resume()
	if f.Status() != Finished {
		t.Fatalf("a panicking fiber should still be marked Finished, got %v", f.Status())
	}
	if f.Panic() != "boom" {
		t.Fatalf("Panic() = %v, want %q", f.Panic(), "boom")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
