package tui

import "sort"

// diffIndices compares two sets of on-screen record indices and returns the
// indices that appeared and the ones that went away, both ascending.
func diffIndices(prev, next []int) (shown, hidden []int) {
	before := make(map[int]struct{}, len(prev))
	for _, i := range prev {
		before[i] = struct{}{}
	}
	after := make(map[int]struct{}, len(next))
	for _, i := range next {
		after[i] = struct{}{}
		if _, ok := before[i]; !ok {
			shown = append(shown, i)
		}
	}
	for _, i := range prev {
		if _, ok := after[i]; !ok {
			hidden = append(hidden, i)
		}
	}
	sort.Ints(shown)
	sort.Ints(hidden)
	return shown, hidden
}

// scrollTop keeps cursor inside a viewport of height rows starting at top.
func scrollTop(top, cursor, height, total int) int {
	if height <= 0 || total <= 0 {
		return 0
	}
	if cursor < top {
		top = cursor
	}
	if cursor >= top+height {
		top = cursor - height + 1
	}
	if maxTop := total - height; top > maxTop {
		top = max(0, maxTop)
	}
	return max(0, top)
}
