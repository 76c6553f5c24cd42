package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/feed"
)

// ChannelObserver adapts controller events to a channel for Bubble Tea.
type ChannelObserver struct {
	ch   chan feed.Event
	done chan struct{}
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(size int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan feed.Event, size), done: make(chan struct{})}
}

// OnEvent sends ev to the channel (non-blocking if full).
func (o *ChannelObserver) OnEvent(ev feed.Event) {
	select {
	case <-o.done:
	case o.ch <- ev:
	default: // Dropped; the next event or tick re-reads the snapshot
	}
}

// Wait returns a command that delivers the next event as a FeedEventMsg.
func (o *ChannelObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-o.ch:
			return FeedEventMsg{Event: ev}
		case <-o.done:
			return nil
		}
	}
}

// Close stops delivery and releases a pending Wait. Call once.
func (o *ChannelObserver) Close() {
	close(o.done)
}
