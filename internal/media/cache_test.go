package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mmcdole/reel/internal/domain"
)

// fakeDecoder returns square assets whose side comes from sizes (default 10).
type fakeDecoder struct {
	sizes map[string]int
	fail  map[string]error
	gate  chan struct{} // when non-nil, Decode blocks until closed
	calls atomic.Int32
}

func (d *fakeDecoder) Decode(ctx context.Context, uri string) (*domain.Asset, error) {
	d.calls.Add(1)
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := d.fail[uri]; err != nil {
		return nil, err
	}
	side := 10
	if s, ok := d.sizes[uri]; ok {
		side = s
	}
	return &domain.Asset{URI: uri, Width: side, Height: side}, nil
}

const tenByTenCost = 10 * 10 * 4

func TestCache_GetDoesNotFetch(t *testing.T) {
	dec := &fakeDecoder{}
	c := NewCache(dec, 10, 1<<20, nil)

	if a := c.Get("http://img/a"); a != nil {
		t.Fatalf("Get on empty cache = %v", a)
	}
	if dec.calls.Load() != 0 {
		t.Fatalf("Get triggered %d decodes", dec.calls.Load())
	}
}

func TestCache_CountLimitEvictsOldest(t *testing.T) {
	c := NewCache(&fakeDecoder{}, 3, 1<<20, nil)
	ctx := context.Background()

	for i := range 5 {
		if _, err := c.FetchAndStore(ctx, fmt.Sprintf("u%d", i)); err != nil {
			t.Fatalf("fetch u%d: %v", i, err)
		}
		if c.Len() > 3 {
			t.Fatalf("Len = %d exceeds count limit after insert %d", c.Len(), i)
		}
	}
	for _, uri := range []string{"u0", "u1"} {
		if c.Contains(uri) {
			t.Errorf("%s should have been evicted", uri)
		}
	}
	for _, uri := range []string{"u2", "u3", "u4"} {
		if !c.Contains(uri) {
			t.Errorf("%s should still be cached", uri)
		}
	}
}

func TestCache_CostLimitEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(&fakeDecoder{}, 100, 3*tenByTenCost, nil)
	ctx := context.Background()

	for _, uri := range []string{"a", "b", "c"} {
		if _, err := c.FetchAndStore(ctx, uri); err != nil {
			t.Fatal(err)
		}
	}
	// Touch a so b becomes the LRU entry
	if c.Get("a") == nil {
		t.Fatal("a missing")
	}
	if _, err := c.FetchAndStore(ctx, "d"); err != nil {
		t.Fatal(err)
	}

	if c.Contains("b") {
		t.Error("b should have been evicted as least recently used")
	}
	for _, uri := range []string{"a", "c", "d"} {
		if !c.Contains(uri) {
			t.Errorf("%s should still be cached", uri)
		}
	}
	if c.Cost() != 3*tenByTenCost {
		t.Errorf("Cost = %d, want %d", c.Cost(), 3*tenByTenCost)
	}
}

func TestCache_LargeEntryEvictsSeveral(t *testing.T) {
	dec := &fakeDecoder{sizes: map[string]int{"big": 20}} // cost = 4 * tenByTenCost
	c := NewCache(dec, 100, 5*tenByTenCost, nil)
	ctx := context.Background()

	for _, uri := range []string{"a", "b", "c", "d"} {
		c.FetchAndStore(ctx, uri)
	}
	if _, err := c.FetchAndStore(ctx, "big"); err != nil {
		t.Fatal(err)
	}
	// 4 + 1 fits only after a, b, c are gone
	if c.Len() != 2 || !c.Contains("d") || !c.Contains("big") {
		t.Fatalf("unexpected contents: len=%d d=%v big=%v", c.Len(), c.Contains("d"), c.Contains("big"))
	}
	if c.Cost() > 5*tenByTenCost {
		t.Fatalf("Cost %d exceeds limit", c.Cost())
	}
}

func TestCache_OversizedAssetReturnedButNotCached(t *testing.T) {
	dec := &fakeDecoder{sizes: map[string]int{"huge": 100}}
	c := NewCache(dec, 10, tenByTenCost, nil)
	ctx := context.Background()

	c.FetchAndStore(ctx, "small")
	a, err := c.FetchAndStore(ctx, "huge")
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.Width != 100 {
		t.Fatalf("asset = %+v", a)
	}
	if c.Contains("huge") {
		t.Error("oversized asset was cached")
	}
	if !c.Contains("small") {
		t.Error("oversized insert evicted an existing entry")
	}
}

func TestCache_ConcurrentFetchesCoalesce(t *testing.T) {
	dec := &fakeDecoder{gate: make(chan struct{})}
	c := NewCache(dec, 10, 1<<20, nil)

	const callers = 16
	results := make([]*domain.Asset, callers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			a, err := c.FetchAndStore(context.Background(), "same")
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = a
		}()
	}
	started.Wait()
	close(dec.gate)
	wg.Wait()

	if n := dec.calls.Load(); n < 1 || n > callers {
		t.Fatalf("decode calls = %d", n)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d received a different asset", i)
		}
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCache_InFlightFetchIsShared(t *testing.T) {
	dec := &fakeDecoder{gate: make(chan struct{})}
	c := NewCache(dec, 10, 1<<20, nil)

	first := make(chan *domain.Asset)
	go func() {
		a, _ := c.FetchAndStore(context.Background(), "x")
		first <- a
	}()
	// Wait until the first decode is in flight
	for dec.calls.Load() == 0 {
	}
	second := make(chan *domain.Asset)
	go func() {
		a, _ := c.FetchAndStore(context.Background(), "x")
		second <- a
	}()
	close(dec.gate)

	a1, a2 := <-first, <-second
	if a1 != a2 {
		t.Fatal("second caller did not share the in-flight result")
	}
}

func TestCache_FailedDecodeNotCached(t *testing.T) {
	dec := &fakeDecoder{fail: map[string]error{"bad": domain.ErrDecode}}
	c := NewCache(dec, 10, 1<<20, nil)
	ctx := context.Background()

	_, err := c.FetchAndStore(ctx, "bad")
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if c.Contains("bad") || c.Len() != 0 {
		t.Fatal("failed asset was cached")
	}

	// A later call retries
	c.FetchAndStore(ctx, "bad")
	if dec.calls.Load() != 2 {
		t.Fatalf("decode calls = %d, want 2", dec.calls.Load())
	}
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := NewCache(&fakeDecoder{}, 10, 1<<20, nil)
	ctx := context.Background()
	for _, uri := range []string{"a", "b", "c"} {
		c.FetchAndStore(ctx, uri)
	}

	if !c.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if c.Remove("b") {
		t.Fatal("second Remove(b) = true")
	}
	if c.Len() != 2 || c.Cost() != 2*tenByTenCost {
		t.Fatalf("len=%d cost=%d after remove", c.Len(), c.Cost())
	}

	c.Clear()
	if c.Len() != 0 || c.Cost() != 0 {
		t.Fatalf("len=%d cost=%d after clear", c.Len(), c.Cost())
	}
}

func TestCache_ClearDropsInFlightResult(t *testing.T) {
	dec := &fakeDecoder{gate: make(chan struct{})}
	c := NewCache(dec, 10, 1<<20, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.FetchAndStore(context.Background(), "late")
	}()
	for dec.calls.Load() == 0 {
	}
	c.Clear()
	close(dec.gate)
	<-done

	if c.Contains("late") {
		t.Fatal("fetch started before Clear was stored afterwards")
	}
}

func TestCache_RemoveDropsInFlightResult(t *testing.T) {
	dec := &fakeDecoder{gate: make(chan struct{})}
	c := NewCache(dec, 10, 1<<20, nil)

	var wg sync.WaitGroup
	for _, uri := range []string{"released", "kept"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.FetchAndStore(context.Background(), uri)
		}()
	}
	for dec.calls.Load() < 2 {
	}
	if c.Remove("released") {
		t.Fatal("Remove reported an entry that was never stored")
	}
	close(dec.gate)
	wg.Wait()

	if c.Contains("released") {
		t.Fatal("fetch started before Remove was stored afterwards")
	}
	if !c.Contains("kept") {
		t.Fatal("Remove of one uri dropped another uri's fetch")
	}

	// Nothing in flight: the next fetch stores normally
	c.FetchAndStore(context.Background(), "released")
	if !c.Contains("released") {
		t.Fatal("fetch after Remove was not stored")
	}
}
