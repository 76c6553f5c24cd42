// Package dispatch provides the single logical owner that serializes all feed
// state mutation. Blocking I/O runs on worker goroutines and posts its
// completion back onto the owner loop.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Executor runs blocking work off the owner context. The function returned by
// work, if non-nil, runs on the owner context.
type Executor interface {
	Go(ctx context.Context, work func(ctx context.Context) func())
}

// Loop is a serial executor backed by one goroutine.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	busy    bool // a task is running on the loop goroutine
	running int  // Go work in flight
	closed  bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewLoop creates and starts a loop.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		done:   make(chan struct{}),
		logger: logger,
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.busy = true
		l.mu.Unlock()

		l.exec(fn)

		l.mu.Lock()
		l.busy = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch task panicked", "panic", r)
		}
	}()
	fn()
}

// Post enqueues fn. Returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
	return true
}

// Go runs work on a new goroutine and posts its completion back onto the
// loop. Completions arriving after Close are dropped.
func (l *Loop) Go(ctx context.Context, work func(ctx context.Context) func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.running++
	l.mu.Unlock()

	go func() {
		var complete func()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("dispatch work panicked", "panic", r)
				complete = nil
			}
			// Decrement and enqueue under one lock so Idle never observes a gap.
			l.mu.Lock()
			l.running--
			if complete != nil && !l.closed {
				l.queue = append(l.queue, complete)
			}
			l.cond.Broadcast()
			l.mu.Unlock()
		}()
		complete = work(ctx)
	}()
}

// Idle blocks until the queue is empty and no work is in flight.
// Must not be called from the loop.
func (l *Loop) Idle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for (len(l.queue) > 0 || l.busy || l.running > 0) && !(l.closed && len(l.queue) == 0 && !l.busy) {
		l.cond.Wait()
	}
}

// Close drains queued tasks and stops the loop. Safe to call twice.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
	<-l.done
}

// Inline runs work and its completion synchronously on the caller.
type Inline struct{}

// Go implements Executor.
func (Inline) Go(ctx context.Context, work func(ctx context.Context) func()) {
	if complete := work(ctx); complete != nil {
		complete()
	}
}
