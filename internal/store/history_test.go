package store

import (
	"testing"
)

func TestHistoryBelowCapacity(t *testing.T) {
	h := NewHistory[int](5)
	for i := 1; i <= 3; i++ {
		h.Append(i)
	}

	got := h.Items()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory[int](ScoreHistoryCap)
	const n = 250
	for i := 0; i < n; i++ {
		h.Append(i)
	}

	if h.Len() != ScoreHistoryCap {
		t.Fatalf("len = %d, want %d", h.Len(), ScoreHistoryCap)
	}
	items := h.Items()
	for i, v := range items {
		if want := n - ScoreHistoryCap + i; v != want {
			t.Fatalf("items[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestHistoryNewest(t *testing.T) {
	h := NewHistory[string](3)
	for _, s := range []string{"a", "b", "c", "d"} {
		h.Append(s)
	}

	got := h.Newest()
	want := []string{"d", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("newest = %v, want %v", got, want)
			break
		}
	}
}

func TestHistoryItemsIsACopy(t *testing.T) {
	h := NewHistory[int](2)
	h.Append(1)
	items := h.Items()
	items[0] = 99

	if h.Items()[0] != 1 {
		t.Error("mutating Items result changed the history")
	}
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory[int](2)
	h.Append(1)
	h.Append(2)
	h.Append(3)
	h.Reset()

	if h.Len() != 0 {
		t.Errorf("len after reset = %d", h.Len())
	}
	h.Append(4)
	if got := h.Items(); len(got) != 1 || got[0] != 4 {
		t.Errorf("items after reset = %v", got)
	}
}

func TestHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory[int](0)
	h.Append(1)
	h.Append(2)
	if h.Cap() != 1 || h.Items()[0] != 2 {
		t.Errorf("cap=%d items=%v", h.Cap(), h.Items())
	}
}
