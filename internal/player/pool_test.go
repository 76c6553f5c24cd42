package player

import (
	"context"
	"errors"
	"testing"

	"github.com/mmcdole/reel/internal/dispatch"
	"github.com/mmcdole/reel/internal/domain"
)

type fakeHandle struct {
	uri                    string
	plays, pauses, dispose int
}

func (h *fakeHandle) Play() error    { h.plays++; return nil }
func (h *fakeHandle) Pause() error   { h.pauses++; return nil }
func (h *fakeHandle) Dispose() error { h.dispose++; return nil }

type fakeEngine struct {
	handles map[string]*fakeHandle
	fail    error
	ctxs    []context.Context
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{handles: make(map[string]*fakeHandle)}
}

func (e *fakeEngine) Create(ctx context.Context, uri string) (domain.PlayerHandle, error) {
	e.ctxs = append(e.ctxs, ctx)
	if e.fail != nil {
		return nil, e.fail
	}
	h := &fakeHandle{uri: uri}
	e.handles[uri] = h
	return h, nil
}

// manualExec holds work until run is called, simulating slow creation.
type manualExec struct {
	pending []func()
}

func (m *manualExec) Go(ctx context.Context, work func(ctx context.Context) func()) {
	m.pending = append(m.pending, func() {
		if complete := work(ctx); complete != nil {
			complete()
		}
	})
}

func (m *manualExec) run() {
	pending := m.pending
	m.pending = nil
	for _, fn := range pending {
		fn()
	}
}

func uriFor(i int) string {
	return "http://cdn/video/" + string(rune('a'+i)) + ".m3u8"
}

func countActive(p *Pool) int {
	n := 0
	for i := range 64 {
		if p.State(i) == Active {
			n++
		}
	}
	return n
}

func TestPool_PrepareIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	p := NewPool(eng, dispatch.Inline{}, 3, nil)

	p.Prepare(2, uriFor(2))
	p.Prepare(2, uriFor(2))

	if got := p.State(2); got != Prepared {
		t.Fatalf("State(2) = %v, want prepared", got)
	}
	if len(eng.ctxs) != 1 {
		t.Fatalf("engine.Create called %d times, want 1", len(eng.ctxs))
	}
}

func TestPool_ActivatePausesPrevious(t *testing.T) {
	eng := newFakeEngine()
	p := NewPool(eng, dispatch.Inline{}, 3, nil)

	p.Activate(0, uriFor(0))
	if p.State(0) != Active || p.ActiveIndex() != 0 {
		t.Fatalf("after Activate(0): state=%v active=%d", p.State(0), p.ActiveIndex())
	}

	p.Activate(1, uriFor(1))
	if got := p.State(0); got != Paused {
		t.Fatalf("State(0) = %v, want paused", got)
	}
	if got := p.State(1); got != Active {
		t.Fatalf("State(1) = %v, want active", got)
	}
	if eng.handles[uriFor(0)].dispose != 0 {
		t.Fatal("previously active handle was disposed")
	}
	if n := countActive(p); n != 1 {
		t.Fatalf("%d active entries, want 1", n)
	}

	// Going back resumes the paused handle
	p.Activate(0, uriFor(0))
	if p.State(0) != Active || p.State(1) != Paused {
		t.Fatalf("after reverse: 0=%v 1=%v", p.State(0), p.State(1))
	}
	if eng.handles[uriFor(0)].plays != 2 {
		t.Fatalf("plays = %d, want 2", eng.handles[uriFor(0)].plays)
	}
}

func TestPool_AtMostOneActiveAcrossScroll(t *testing.T) {
	p := NewPool(newFakeEngine(), dispatch.Inline{}, 3, nil)
	for _, i := range []int{0, 1, 2, 5, 4, 9, 3, 3, 10} {
		p.Activate(i, uriFor(i))
		if n := countActive(p); n > 1 {
			t.Fatalf("after Activate(%d): %d active entries", i, n)
		}
	}
}

func TestPool_RetentionRadiusDisposes(t *testing.T) {
	eng := newFakeEngine()
	p := NewPool(eng, dispatch.Inline{}, 3, nil)

	for i := range 5 {
		p.Prepare(i, uriFor(i))
	}
	p.Activate(6, uriFor(6))

	for i := range 3 {
		if got := p.State(i); got != Uncreated {
			t.Errorf("State(%d) = %v, want released", i, got)
		}
		if eng.handles[uriFor(i)].dispose != 1 {
			t.Errorf("handle %d disposed %d times", i, eng.handles[uriFor(i)].dispose)
		}
	}
	for _, i := range []int{3, 4} {
		if got := p.State(i); got != Prepared {
			t.Errorf("State(%d) = %v, want prepared", i, got)
		}
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
}

func TestPool_DisposeCancelsPendingPrepare(t *testing.T) {
	eng := newFakeEngine()
	ex := &manualExec{}
	p := NewPool(eng, ex, 3, nil)

	p.Prepare(1, uriFor(1))
	if got := p.State(1); got != Preparing {
		t.Fatalf("State(1) = %v, want preparing", got)
	}
	p.Dispose(1)
	ex.run()

	if len(eng.ctxs) != 1 || !errors.Is(eng.ctxs[0].Err(), context.Canceled) {
		t.Fatal("prepare context was not cancelled")
	}
	if got := p.State(1); got != Uncreated {
		t.Fatalf("State(1) = %v after dispose", got)
	}
	h := eng.handles[uriFor(1)]
	if h == nil || h.dispose != 1 {
		t.Fatal("handle created after dispose was not released")
	}
}

func TestPool_ActivateWhilePreparing(t *testing.T) {
	eng := newFakeEngine()
	ex := &manualExec{}
	p := NewPool(eng, ex, 3, nil)

	p.Activate(0, uriFor(0))
	if p.State(0) != Preparing {
		t.Fatalf("State(0) = %v", p.State(0))
	}
	ex.run()
	if p.State(0) != Active {
		t.Fatalf("State(0) = %v after prepare completed, want active", p.State(0))
	}

	// Focus moves on before the next prepare lands
	p.Activate(1, uriFor(1))
	p.Activate(2, uriFor(2))
	ex.run()
	if p.State(1) != Prepared {
		t.Fatalf("State(1) = %v, want prepared", p.State(1))
	}
	if p.State(2) != Active {
		t.Fatalf("State(2) = %v, want active", p.State(2))
	}
	if n := countActive(p); n != 1 {
		t.Fatalf("%d active entries", n)
	}
}

func TestPool_FailedPrepareLeavesNoEntry(t *testing.T) {
	eng := newFakeEngine()
	eng.fail = domain.ErrNetwork
	p := NewPool(eng, dispatch.Inline{}, 3, nil)

	p.Activate(0, uriFor(0))
	if p.State(0) != Uncreated || p.Len() != 0 {
		t.Fatalf("state=%v len=%d after failed prepare", p.State(0), p.Len())
	}
	if _, ok := p.GetOrPlaceholder(0).(Placeholder); !ok {
		t.Fatal("expected placeholder for failed entry")
	}

	// Retry on next call succeeds
	eng.fail = nil
	p.Activate(0, uriFor(0))
	if p.State(0) != Active {
		t.Fatalf("State(0) = %v after retry", p.State(0))
	}
}

func TestPool_GetOrPlaceholder(t *testing.T) {
	eng := newFakeEngine()
	ex := &manualExec{}
	p := NewPool(eng, ex, 3, nil)

	if _, ok := p.GetOrPlaceholder(4).(Placeholder); !ok {
		t.Fatal("uncreated index should yield a placeholder")
	}
	p.Prepare(4, uriFor(4))
	if _, ok := p.GetOrPlaceholder(4).(Placeholder); !ok {
		t.Fatal("preparing index should yield a placeholder")
	}
	ex.run()
	if h, ok := p.GetOrPlaceholder(4).(*fakeHandle); !ok || h.uri != uriFor(4) {
		t.Fatalf("GetOrPlaceholder(4) = %#v", p.GetOrPlaceholder(4))
	}

	ph := Placeholder{}
	if ph.Play() != nil || ph.Pause() != nil || ph.Dispose() != nil {
		t.Fatal("placeholder operations must not fail")
	}
}

func TestPool_DisposeAll(t *testing.T) {
	eng := newFakeEngine()
	p := NewPool(eng, dispatch.Inline{}, 3, nil)

	var transitions []State
	p.OnStateChange(func(_ int, s State) { transitions = append(transitions, s) })

	p.Activate(0, uriFor(0))
	p.Prepare(1, uriFor(1))
	p.DisposeAll()

	if p.Len() != 0 || p.ActiveIndex() != -1 {
		t.Fatalf("len=%d active=%d after DisposeAll", p.Len(), p.ActiveIndex())
	}
	for uri, h := range eng.handles {
		if h.dispose != 1 {
			t.Errorf("%s disposed %d times", uri, h.dispose)
		}
	}
	if transitions[len(transitions)-1] != Disposed {
		t.Fatalf("last transition = %v", transitions[len(transitions)-1])
	}
}
