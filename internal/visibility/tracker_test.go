package visibility

import (
	"reflect"
	"testing"
)

func TestTracker_MarkVisibleIsIdempotent(t *testing.T) {
	tr := NewTracker()

	if !tr.MarkVisible(3) {
		t.Fatal("first MarkVisible should report a change")
	}
	if tr.MarkVisible(3) {
		t.Fatal("second MarkVisible should be a no-op")
	}
	if !tr.IsVisible(3) || tr.Len() != 1 {
		t.Fatalf("visible set = %v", tr.Indices())
	}
}

func TestTracker_MarkHiddenAbsentIsNoop(t *testing.T) {
	tr := NewTracker()
	if tr.MarkHidden(5) {
		t.Fatal("hiding an absent index should be a no-op")
	}

	tr.MarkVisible(5)
	if !tr.MarkHidden(5) {
		t.Fatal("hiding a visible index should report a change")
	}
	if tr.MarkHidden(5) {
		t.Fatal("second MarkHidden should be a no-op")
	}
	if tr.IsVisible(5) {
		t.Fatal("index 5 still visible")
	}
}

func TestTracker_RejectsNegativeIndex(t *testing.T) {
	tr := NewTracker()
	if tr.MarkVisible(-1) {
		t.Fatal("negative index accepted")
	}
	if tr.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tr.Len())
	}
}

func TestTracker_IndicesSortedAndTruncate(t *testing.T) {
	tr := NewTracker()
	for _, i := range []int{9, 2, 7, 4} {
		tr.MarkVisible(i)
	}
	if got := tr.Indices(); !reflect.DeepEqual(got, []int{2, 4, 7, 9}) {
		t.Fatalf("Indices = %v", got)
	}

	tr.Truncate(7)
	if got := tr.Indices(); !reflect.DeepEqual(got, []int{2, 4}) {
		t.Fatalf("after Truncate(7) Indices = %v", got)
	}

	tr.Clear()
	if tr.Len() != 0 {
		t.Fatalf("after Clear Len = %d", tr.Len())
	}
}

func TestTracker_EventOrderDeterminesState(t *testing.T) {
	tr := NewTracker()
	events := []struct {
		visible bool
		index   int
	}{
		{true, 0}, {true, 1}, {false, 0}, {true, 2}, {false, 1}, {true, 0},
	}
	for _, e := range events {
		if e.visible {
			tr.MarkVisible(e.index)
		} else {
			tr.MarkHidden(e.index)
		}
	}
	if got := tr.Indices(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("Indices = %v, want [0 2]", got)
	}
}
