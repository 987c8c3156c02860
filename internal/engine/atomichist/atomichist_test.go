package atomichist

import (
	"testing"

	"github.com/kolkov/racesim/internal/engine/vclock"
)

func clockAt(n, self int, t uint32) *vclock.VectorClock {
	vc := vclock.New(n)
	vc.Set(self, t)
	return vc
}

func TestAppendAndNewest(t *testing.T) {
	c := New(3)
	if _, ok := c.Newest(); ok {
		t.Fatal("empty cell should report no newest entry")
	}
	c.Append(Entry{Value: 1, Writer: 0, StoreClock: clockAt(2, 0, 1)})
	c.Append(Entry{Value: 2, Writer: 1, StoreClock: clockAt(2, 1, 1)})
	newest, ok := c.Newest()
	if !ok || newest.Value != 2 {
		t.Fatalf("Newest() = %+v, ok=%v, want Value=2", newest, ok)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	c := New(2)
	c.Append(Entry{Value: 1, StoreClock: clockAt(1, 0, 1)})
	c.Append(Entry{Value: 2, StoreClock: clockAt(1, 0, 2)})
	c.Append(Entry{Value: 3, StoreClock: clockAt(1, 0, 3)})

	ordered := c.orderedEntries()
	if len(ordered) != 2 {
		t.Fatalf("ring depth 2 should retain exactly 2 entries, got %d", len(ordered))
	}
	if ordered[0].Value != 2 || ordered[1].Value != 3 {
		t.Fatalf("expected oldest-to-newest [2,3], got [%d,%d]", ordered[0].Value, ordered[1].Value)
	}
}

func TestNewestAlwaysVisible(t *testing.T) {
	c := New(3)
	c.Append(Entry{Value: 1, StoreClock: clockAt(2, 0, 1)})
	c.Append(Entry{Value: 2, StoreClock: clockAt(2, 0, 2)})

	// A reader with a totally stale clock still must see the newest store.
	reader := vclock.New(2)
	visible := c.Visible(reader)
	if len(visible) == 0 || visible[len(visible)-1].Value != 2 {
		t.Fatalf("newest entry must always be visible, got %+v", visible)
	}
}

func TestStaleEntryHiddenOnceSuperseded(t *testing.T) {
	c := New(3)
	e1clock := clockAt(2, 0, 1)
	c.Append(Entry{Value: 1, StoreClock: e1clock})
	e2clock := clockAt(2, 0, 2)
	c.Append(Entry{Value: 2, StoreClock: e2clock})

	// A reader that already happens-after the second store must not be able
	// to "go back" and observe the first.
	reader := vclock.New(2)
	reader.Join(e2clock)
	visible := c.Visible(reader)
	for _, e := range visible {
		if e.Value == 1 {
			t.Fatalf("reader that dominates the second store should not see the first, got %+v", visible)
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	c := New(2)
	c.Append(Entry{Value: 1, StoreClock: clockAt(1, 0, 1)})
	c.Reset()
	if _, ok := c.Newest(); ok {
		t.Fatal("Reset should clear all history")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", c.Len())
	}
}
