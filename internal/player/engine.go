package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// ErrHandleDisposed is returned by Play on a disposed handle
var ErrHandleDisposed = errors.New("player handle disposed")

const maxPlaylistBytes = 1 << 20

// Engine creates handles that play HLS streams in an external player.
type Engine struct {
	client   *http.Client
	launcher *Launcher
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil client uses a 15 second timeout.
func NewEngine(client *http.Client, launcher *Launcher, logger *slog.Logger) *Engine {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, launcher: launcher, logger: logger}
}

// Create checks that uri serves an HLS playlist and returns an idle handle.
func (e *Engine) Create(ctx context.Context, uri string) (domain.PlayerHandle, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: playback uri %q", domain.ErrInvalidConfiguration, uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch playlist: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: playlist status %d", domain.ErrNetwork, resp.StatusCode)
	}

	sc := bufio.NewScanner(io.LimitReader(resp.Body, maxPlaylistBytes))
	if !sc.Scan() || strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff")) != "#EXTM3U" {
		return nil, fmt.Errorf("%w: %s is not an HLS playlist", domain.ErrDecode, uri)
	}

	e.logger.Debug("playlist validated", "uri", uri)
	return &Handle{uri: uri, launcher: e.launcher, logger: e.logger}, nil
}

// Handle is one external player process. The process starts on the first
// Play and is suspended by Pause where the platform allows it.
type Handle struct {
	uri      string
	launcher *Launcher
	logger   *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	exited    chan struct{}
	suspended bool
	disposed  bool
	played    time.Duration // accumulated before startedAt
	startedAt time.Time
}

func (h *Handle) running() bool {
	if h.cmd == nil {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Play starts or resumes the player.
func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return ErrHandleDisposed
	}
	if h.running() {
		if !h.suspended {
			return nil
		}
		if err := resume(h.cmd.Process); err != nil {
			return fmt.Errorf("resume player: %w", err)
		}
		h.suspended = false
		h.startedAt = time.Now()
		return nil
	}

	// Not started yet, or the user closed the window
	cmd, err := h.launcher.Start(h.uri, h.played)
	if err != nil {
		return err
	}
	exited := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			h.logger.Debug("player exited", "uri", h.uri, "error", err)
		}
		close(exited)
	}()
	h.cmd = cmd
	h.exited = exited
	h.suspended = false
	h.startedAt = time.Now()
	return nil
}

// Pause suspends the player, or stops it where suspension is unsupported.
// The playback position is remembered so a later Play can seek to it.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed || !h.running() || h.suspended {
		return nil
	}
	h.played += time.Since(h.startedAt)

	if !canSuspend {
		return h.kill()
	}
	if err := suspend(h.cmd.Process); err != nil {
		return fmt.Errorf("suspend player: %w", err)
	}
	h.suspended = true
	return nil
}

// Dispose stops the player. Safe to call more than once.
func (h *Handle) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return nil
	}
	h.disposed = true
	if !h.running() {
		return nil
	}
	return h.kill()
}

// kill terminates the process and waits for it. Caller holds mu.
func (h *Handle) kill() error {
	if h.suspended {
		// A stopped process must be continued to observe the kill on some platforms
		_ = resume(h.cmd.Process)
		h.suspended = false
	}
	if err := h.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill player: %w", err)
	}
	<-h.exited
	return nil
}
