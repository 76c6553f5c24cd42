package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/feed"
)

// Message types for the TUI

// FeedEventMsg wraps an event published by the feed controller
type FeedEventMsg struct {
	Event feed.Event
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message if it is still the one
// identified by Seq
type ClearStatusMsg struct {
	Seq int
}

const statusTimeout = 3 * time.Second

func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
