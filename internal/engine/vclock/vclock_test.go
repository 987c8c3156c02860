package vclock

import "testing"

func TestNewIsZero(t *testing.T) {
	vc := New(4)
	for i := 0; i < 4; i++ {
		if vc.Get(i) != 0 {
			t.Errorf("New(4).Get(%d) = %d, want 0", i, vc.Get(i))
		}
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	vc := New(2)
	prev := vc.Get(0)
	for i := 0; i < 5; i++ {
		next := vc.Advance(0)
		if next <= prev {
			t.Fatalf("Advance produced non-increasing value: %d after %d", next, prev)
		}
		prev = next
	}
	if vc.Get(1) != 0 {
		t.Errorf("Advance(0) must not touch other threads, got Get(1) = %d", vc.Get(1))
	}
}

func TestJoinIsPointwiseMax(t *testing.T) {
	a := New(3)
	a.Set(0, 5)
	a.Set(1, 1)
	a.Set(2, 9)

	b := New(3)
	b.Set(0, 2)
	b.Set(1, 7)
	b.Set(2, 9)

	a.Join(b)
	want := []uint32{5, 7, 9}
	for i, w := range want {
		if a.Get(i) != w {
			t.Errorf("Join: Get(%d) = %d, want %d", i, a.Get(i), w)
		}
	}
}

func TestHappensBeforeAndDominates(t *testing.T) {
	a := New(2)
	a.Set(0, 1)
	a.Set(1, 1)

	b := New(2)
	b.Set(0, 2)
	b.Set(1, 1)

	if !a.HappensBefore(b) {
		t.Error("a should happen-before b")
	}
	if !b.Dominates(a) {
		t.Error("b should dominate a")
	}

	b.Set(1, 0)
	if a.HappensBefore(b) {
		t.Error("a should no longer happen-before b once b[1] regresses")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(2)
	a.Set(0, 3)
	b := a.Clone()
	b.Set(0, 99)
	if a.Get(0) != 3 {
		t.Error("mutating the clone must not affect the original")
	}
}

func TestResetZeroesEverything(t *testing.T) {
	vc := New(3)
	vc.Set(0, 1)
	vc.Set(1, 2)
	vc.Set(2, 3)
	vc.Reset()
	for i := 0; i < 3; i++ {
		if vc.Get(i) != 0 {
			t.Errorf("Reset: Get(%d) = %d, want 0", i, vc.Get(i))
		}
	}
}

func TestStringRendersNonZeroOnly(t *testing.T) {
	vc := New(3)
	if got := vc.String(); got != "{}" {
		t.Errorf("empty clock String() = %q, want {}", got)
	}
	vc.Set(1, 4)
	if got := vc.String(); got != "{1:4}" {
		t.Errorf("String() = %q, want {1:4}", got)
	}
}
