package feed

// Policy holds the windows that drive loading and release decisions.
type Policy struct {
	PrefetchWindow  int // K items after a visible index get their assets loaded
	PagingThreshold int // Load more once an index is this close to the end
	RetentionRadius int // Players survive this far from the active index
}

// DefaultPolicy returns the stock windows
func DefaultPolicy() Policy {
	return Policy{PrefetchWindow: 2, PagingThreshold: 3, RetentionRadius: 3}
}

// PrefetchRange returns the half-open index range [lo, hi) to prefetch after
// visible index i in a feed of n records.
func (p Policy) PrefetchRange(i, n int) (lo, hi int) {
	lo = i + 1
	hi = min(i+p.PrefetchWindow+1, n)
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// ShouldPage reports whether index i is close enough to the end of n records
// to request the next page.
func (p Policy) ShouldPage(i, n int) bool {
	return n > 0 && i >= n-p.PagingThreshold
}

// AssetWindow returns the indices whose assets stay resident while the given
// indices are visible: each visible index plus and minus PrefetchWindow.
func (p Policy) AssetWindow(visible []int, n int) map[int]struct{} {
	window := make(map[int]struct{}, len(visible)*(2*p.PrefetchWindow+1))
	for _, v := range visible {
		for j := max(0, v-p.PrefetchWindow); j <= v+p.PrefetchWindow && j < n; j++ {
			window[j] = struct{}{}
		}
	}
	return window
}

// NearActive reports whether index i is within PrefetchWindow of active,
// capped at RetentionRadius so no prepared player sits outside the pool's
// retention window.
func (p Policy) NearActive(i, active int) bool {
	if active < 0 {
		return false
	}
	d := i - active
	if d < 0 {
		d = -d
	}
	return d <= min(p.PrefetchWindow, p.RetentionRadius)
}
