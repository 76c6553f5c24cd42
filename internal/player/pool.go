// Package player owns playback handles keyed by feed position.
package player

import (
	"context"
	"log/slog"

	"github.com/mmcdole/reel/internal/dispatch"
	"github.com/mmcdole/reel/internal/domain"
)

// DefaultRetentionRadius is how far from the active index a handle survives.
const DefaultRetentionRadius = 3

// State is the lifecycle position of one pool entry.
type State int

const (
	Uncreated State = iota
	Preparing
	Prepared
	Active
	Paused
	Disposed
)

func (s State) String() string {
	switch s {
	case Uncreated:
		return "uncreated"
	case Preparing:
		return "preparing"
	case Prepared:
		return "prepared"
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

type entry struct {
	index      int
	uri        string
	state      State
	handle     domain.PlayerHandle
	cancel     context.CancelFunc
	wantActive bool // activated while still preparing
}

// Pool lazily creates and disposes player handles around the focused index.
// It is not safe for concurrent use; all calls, and the completions it hands
// to its executor, must run on one owner goroutine.
type Pool struct {
	engine   domain.PlaybackEngine
	exec     dispatch.Executor
	radius   int
	logger   *slog.Logger
	entries  map[int]*entry
	active   int
	onChange func(index int, s State)
}

// NewPool creates a pool. A non-positive radius uses DefaultRetentionRadius.
func NewPool(engine domain.PlaybackEngine, exec dispatch.Executor, radius int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if radius <= 0 {
		radius = DefaultRetentionRadius
	}
	return &Pool{
		engine:  engine,
		exec:    exec,
		radius:  radius,
		logger:  logger,
		entries: make(map[int]*entry),
		active:  -1,
	}
}

// OnStateChange registers fn to be called after every entry transition.
func (p *Pool) OnStateChange(fn func(index int, s State)) {
	p.onChange = fn
}

func (p *Pool) setState(e *entry, s State) {
	e.state = s
	if p.onChange != nil {
		p.onChange(e.index, s)
	}
}

// Prepare starts creating a handle for index i. No-op if one exists or is
// being created.
func (p *Pool) Prepare(i int, uri string) {
	if i < 0 {
		return
	}
	if _, ok := p.entries[i]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{index: i, uri: uri, cancel: cancel}
	p.entries[i] = e
	p.setState(e, Preparing)

	p.exec.Go(ctx, func(ctx context.Context) func() {
		h, err := p.engine.Create(ctx, uri)
		return func() { p.finishPrepare(e, h, err) }
	})
}

func (p *Pool) finishPrepare(e *entry, h domain.PlayerHandle, err error) {
	if p.entries[e.index] != e || e.state != Preparing {
		// Disposed while creating
		if h != nil {
			if derr := h.Dispose(); derr != nil {
				p.logger.Debug("failed to release late handle", "index", e.index, "error", derr)
			}
		}
		return
	}
	e.cancel()
	e.cancel = nil

	if err != nil {
		p.logger.Warn("player prepare failed", "index", e.index, "uri", e.uri, "error", err)
		delete(p.entries, e.index)
		p.setState(e, Uncreated)
		return
	}

	e.handle = h
	p.setState(e, Prepared)
	if e.wantActive && p.active == e.index {
		e.wantActive = false
		p.play(e)
	}
}

func (p *Pool) play(e *entry) {
	if err := e.handle.Play(); err != nil {
		p.logger.Warn("player play failed", "index", e.index, "error", err)
		return
	}
	p.setState(e, Active)
}

// Activate focuses index i, pausing whichever entry was active before and
// disposing entries outside the retention radius.
func (p *Pool) Activate(i int, uri string) {
	if i < 0 {
		return
	}
	if p.active >= 0 && p.active != i {
		p.Pause(p.active)
	}
	changed := p.active != i
	p.active = i

	if _, ok := p.entries[i]; !ok {
		p.Prepare(i, uri)
	}
	if e, ok := p.entries[i]; ok {
		switch e.state {
		case Preparing:
			e.wantActive = true
		case Prepared, Paused:
			p.play(e)
		}
	}

	if changed {
		p.retain()
	}
}

func (p *Pool) retain() {
	for idx := range p.entries {
		if abs(idx-p.active) > p.radius {
			p.logger.Debug("disposing player outside retention radius", "index", idx, "active", p.active)
			p.Dispose(idx)
		}
	}
}

// Pause suspends playback at index i. A pending activation is dropped.
func (p *Pool) Pause(i int) {
	e, ok := p.entries[i]
	if !ok {
		return
	}
	switch e.state {
	case Preparing:
		e.wantActive = false
	case Active:
		if err := e.handle.Pause(); err != nil {
			p.logger.Warn("player pause failed", "index", i, "error", err)
		}
		p.setState(e, Paused)
	}
}

// Dispose releases the handle at index i, cancelling a pending prepare.
func (p *Pool) Dispose(i int) {
	e, ok := p.entries[i]
	if !ok {
		return
	}
	delete(p.entries, i)
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.handle != nil {
		if err := e.handle.Dispose(); err != nil {
			p.logger.Warn("player dispose failed", "index", i, "error", err)
		}
		e.handle = nil
	}
	if p.active == i {
		p.active = -1
	}
	p.setState(e, Disposed)
}

// DisposeAll releases every handle and clears the active index.
func (p *Pool) DisposeAll() {
	for idx := range p.entries {
		p.Dispose(idx)
	}
	p.active = -1
}

// State returns the lifecycle state at index i. Indices with no entry,
// including disposed ones, report Uncreated.
func (p *Pool) State(i int) State {
	if e, ok := p.entries[i]; ok {
		return e.state
	}
	return Uncreated
}

// ActiveIndex returns the focused index, or -1.
func (p *Pool) ActiveIndex() int {
	return p.active
}

// Len returns the number of live entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// GetOrPlaceholder returns the real handle at i, or a Placeholder when none
// has been created yet. A placeholder says nothing about playback state.
func (p *Pool) GetOrPlaceholder(i int) domain.PlayerHandle {
	if e, ok := p.entries[i]; ok && e.handle != nil {
		return e.handle
	}
	return Placeholder{}
}

// Placeholder is a handle that performs no playback.
type Placeholder struct{}

func (Placeholder) Play() error    { return nil }
func (Placeholder) Pause() error   { return nil }
func (Placeholder) Dispose() error { return nil }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
