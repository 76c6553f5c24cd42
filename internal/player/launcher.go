package player

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrNoPlayer is returned when no media player command can be found
var ErrNoPlayer = errors.New("no media player found, set player.command")

// Launcher starts an external player process for a stream URL
type Launcher struct {
	command   string   // configured player command, empty to auto-detect
	args      []string // additional arguments for the player
	startFlag string   // offset flag prefix, e.g., "--start=" or "-ss "
	logger    *slog.Logger
}

// playerConfig describes how to drive one known player
type playerConfig struct {
	offsetFlag string              // Resume offset flag (e.g., "--start=")
	feedArgs   []string            // Arguments suited to short looping clips
	platforms  map[string][]string // Platform -> executables to try in order
}

// players registry - single source of truth for all player configuration.
// Only players that run as a direct child process are listed, so the handle
// can suspend and kill them.
var players = map[string]playerConfig{
	"mpv": {
		offsetFlag: "--start=",
		feedArgs:   []string{"--loop-file=inf", "--really-quiet"},
		platforms: map[string][]string{
			"darwin":  {"mpv"},
			"linux":   {"mpv"},
			"windows": {"mpv"},
		},
	},
	"vlc": {
		offsetFlag: "--start-time=",
		feedArgs:   []string{"--loop", "--quiet"},
		platforms: map[string][]string{
			"darwin":  {"vlc"},
			"linux":   {"vlc", "cvlc"},
			"windows": {"vlc"},
		},
	},
	"celluloid": {
		offsetFlag: "--mpv-start=",
		platforms: map[string][]string{
			"linux": {"celluloid"},
		},
	},
	"haruna": {
		offsetFlag: "--mpv-start=",
		platforms: map[string][]string{
			"linux": {"haruna"},
		},
	},
	"ffplay": {
		offsetFlag: "-ss ",
		feedArgs:   []string{"-loop", "0", "-loglevel", "quiet"},
		platforms: map[string][]string{
			"darwin":  {"ffplay"},
			"linux":   {"ffplay"},
			"windows": {"ffplay"},
		},
	},
}

// candidatePlayers defines the preferred player order for each platform
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "vlc", "ffplay"},
	"linux":   {"mpv", "celluloid", "haruna", "vlc", "ffplay"},
	"windows": {"mpv", "vlc", "ffplay"},
}

// NewLauncher creates a Launcher, auto-detecting the offset flag for known
// players when command is set.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}

	var startFlag string
	if command != "" {
		if cfg, ok := players[playerName(command)]; ok {
			startFlag = cfg.offsetFlag
			logger.Debug("auto-detected player offset flag", "player", playerName(command), "flag", startFlag)
		}
	}

	return &Launcher{
		command:   command,
		args:      args,
		startFlag: startFlag,
		logger:    logger,
	}
}

// playerName strips directory, extension and case from a command
func playerName(command string) string {
	base := filepath.Base(command)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

// offsetArgs renders flag and offset as one or two arguments. Flags ending in
// a space ("-ss ") take the value as a separate argument.
func offsetArgs(flag string, offset time.Duration) []string {
	if offset <= 0 || flag == "" {
		return nil
	}
	secs := fmt.Sprintf("%.0f", offset.Seconds())
	if strings.HasSuffix(flag, " ") {
		return []string{strings.TrimSuffix(flag, " "), secs}
	}
	return []string{flag + secs}
}

// Start launches url, seeking to offset when the player supports it.
// The returned command has already been started.
func (l *Launcher) Start(url string, offset time.Duration) (*exec.Cmd, error) {
	if l.command != "" {
		return l.startConfigured(url, offset)
	}
	return l.detectAndStart(url, offset)
}

func (l *Launcher) startConfigured(url string, offset time.Duration) (*exec.Cmd, error) {
	args := append([]string{}, l.args...)
	if offset > 0 && l.startFlag == "" {
		l.logger.Warn("cannot set start offset for unknown player", "command", l.command, "offset", offset)
	}
	args = append(args, offsetArgs(l.startFlag, offset)...)
	args = append(args, url)

	l.logger.Info("launching player", "command", l.command, "args", args)
	cmd := exec.Command(l.command, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.command, err)
	}
	return cmd, nil
}

// detectAndStart tries candidate players in platform order
func (l *Launcher) detectAndStart(url string, offset time.Duration) (*exec.Cmd, error) {
	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}

	for _, name := range candidates {
		cfg := players[name]
		for _, path := range cfg.platforms[runtime.GOOS] {
			if _, err := exec.LookPath(path); err != nil {
				l.logger.Debug("player not in PATH", "player", name, "path", path)
				continue
			}
			args := append([]string{}, cfg.feedArgs...)
			args = append(args, l.args...)
			args = append(args, offsetArgs(cfg.offsetFlag, offset)...)
			args = append(args, url)

			cmd := exec.Command(path, args...)
			if err := cmd.Start(); err != nil {
				l.logger.Debug("player failed to start", "player", name, "error", err)
				continue
			}
			l.logger.Info("launched with detected player", "player", name, "path", path)
			return cmd, nil
		}
	}
	return nil, ErrNoPlayer
}
