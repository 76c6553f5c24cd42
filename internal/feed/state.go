package feed

import (
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/player"
)

// State is a read-only projection of the feed for rendering.
type State struct {
	Videos        []domain.VideoRecord
	IsLoading     bool
	IsLoadingMore bool
	HasMoreVideos bool
	ErrorMessage  string // Empty when the last load succeeded
	Offset        int
	Session       string // Changes on every reset or initial load
}

// EventKind identifies what changed
type EventKind int

const (
	// StateChanged carries a new State
	StateChanged EventKind = iota
	// AssetReady reports a decoded image for Index
	AssetReady
	// PlayerChanged reports a player transition at Index
	PlayerChanged
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state"
	case AssetReady:
		return "asset"
	case PlayerChanged:
		return "player"
	default:
		return "unknown"
	}
}

// Event is delivered to observers in mutation order.
type Event struct {
	Kind   EventKind
	State  State        // StateChanged
	Index  int          // AssetReady, PlayerChanged
	URI    string       // AssetReady
	Player player.State // PlayerChanged
}
