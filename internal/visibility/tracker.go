package visibility

import "sort"

// Tracker maintains the set of on-screen feed indices. It is plain state:
// callers serialize access (the feed owner loop).
type Tracker struct {
	visible map[int]struct{}
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{visible: make(map[int]struct{})}
}

// MarkVisible adds index to the visible set. Idempotent.
func (t *Tracker) MarkVisible(index int) bool {
	if index < 0 {
		return false
	}
	if _, ok := t.visible[index]; ok {
		return false
	}
	t.visible[index] = struct{}{}
	return true
}

// MarkHidden removes index. Idempotent; no-op if absent.
func (t *Tracker) MarkHidden(index int) bool {
	if _, ok := t.visible[index]; !ok {
		return false
	}
	delete(t.visible, index)
	return true
}

func (t *Tracker) IsVisible(index int) bool {
	_, ok := t.visible[index]
	return ok
}

func (t *Tracker) Len() int { return len(t.visible) }

// Indices returns the visible indices in ascending order
func (t *Tracker) Indices() []int {
	out := make([]int, 0, len(t.visible))
	for i := range t.visible {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Truncate drops indices >= n so the set stays within [0, n)
func (t *Tracker) Truncate(n int) {
	for i := range t.visible {
		if i >= n {
			delete(t.visible, i)
		}
	}
}

func (t *Tracker) Clear() {
	t.visible = make(map[int]struct{})
}
