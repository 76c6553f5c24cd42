package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/config"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/feed"
	"github.com/mmcdole/reel/internal/log"
	"github.com/mmcdole/reel/internal/media"
	"github.com/mmcdole/reel/internal/player"
	"github.com/mmcdole/reel/internal/store"
	"github.com/mmcdole/reel/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var (
		showVersion bool
		configPath  string
		dump        int
		initConfig  bool
		clearCache  bool
		offline     bool
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.IntVar(&dump, "dump", 0, "print the first N feed records and exit")
	flag.BoolVar(&initConfig, "init", false, "write the default config file and exit")
	flag.BoolVar(&clearCache, "clear-cache", false, "remove the on-disk catalog cache and exit")
	flag.BoolVar(&offline, "offline", false, "with -dump, print records stored by earlier sessions without fetching")
	flag.Parse()

	if showVersion {
		fmt.Printf("reel %s\n", Version)
		return
	}

	if err := run(configPath, dump, initConfig, clearCache, offline); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dump int, initConfig, clearCache, offline bool) error {
	if initConfig {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Println("✓ Default configuration written")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if clearCache {
		if err := config.ClearCache(cfg); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	}

	interactive := dump <= 0 && term.IsTerminal(int(os.Stdout.Fd()))
	logger, closeLog, err := log.SetupLogger(&cfg.Logging, interactive)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closeLog = log.NullLogger(), func() error { return nil }
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting reel", "version", Version, "catalog", cfg.Catalog.BaseURL)

	if offline {
		return runOffline(cfg, dump, logger)
	}

	ctrl, closeAll, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	if !interactive {
		if dump <= 0 {
			dump = cfg.Catalog.PageSize
		}
		return runDump(ctrl, dump)
	}

	logger.Info("starting TUI")
	if err := tui.Run(ctrl); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfigFrom(path)
	}
	return config.LoadConfig()
}

// wire builds the controller and its collaborators. The returned func closes
// them in reverse order.
func wire(cfg *config.Config, logger *slog.Logger) (*feed.Controller, func(), error) {
	client, err := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, logger)
	if err != nil {
		return nil, nil, err
	}

	catalogStore, err := store.NewCatalogStore(cfg.Store.Path, cfg.Catalog.BaseURL)
	if err != nil {
		// The feed works without persistence
		logger.Warn("catalog cache unavailable, using memory only", "error", err)
		catalogStore, err = store.NewCatalogStore("", cfg.Catalog.BaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	httpClient := &http.Client{Timeout: cfg.Catalog.Timeout}
	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)

	ctrl := feed.NewController(
		catalog.NewCachedClient(client, catalogStore, cfg.Store.TagTTL, logger),
		media.NewHTTPDecoder(httpClient, cfg.Cache.CostLimit, logger),
		player.NewEngine(httpClient, launcher, logger),
		feed.Options{
			PageSize: cfg.Catalog.PageSize,
			Policy: feed.Policy{
				PrefetchWindow:  cfg.Feed.PrefetchWindow,
				PagingThreshold: cfg.Feed.PagingThreshold,
				RetentionRadius: cfg.Feed.RetentionRadius,
			},
			CacheCount: cfg.Cache.CountLimit,
			CacheCost:  cfg.Cache.CostLimit,
			Logger:     logger,
		},
	)

	closeAll := func() {
		ctrl.Close()
		if err := catalogStore.Close(); err != nil {
			logger.Warn("failed to close catalog cache", "error", err)
		}
	}
	return ctrl, closeAll, nil
}

// runDump loads pages until n records are available or the feed is exhausted
// and prints one line per record.
func runDump(ctrl *feed.Controller, n int) error {
	ctrl.LoadInitial()
	ctrl.WaitIdle()

	st := ctrl.Snapshot()
	for len(st.Videos) < n && st.HasMoreVideos && st.ErrorMessage == "" {
		ctrl.LoadMoreIfNeeded()
		ctrl.WaitIdle()
		next := ctrl.Snapshot()
		if len(next.Videos) == len(st.Videos) && next.Offset == st.Offset {
			break
		}
		st = next
	}

	if st.ErrorMessage != "" && len(st.Videos) == 0 {
		return errors.New(st.ErrorMessage)
	}

	for i, v := range st.Videos {
		if i >= n {
			break
		}
		fmt.Println(formatRecord(v))
	}
	if st.ErrorMessage != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", st.ErrorMessage)
	}
	return nil
}

// runOffline prints up to n records from pages stored by earlier sessions
func runOffline(cfg *config.Config, n int, logger *slog.Logger) error {
	if n <= 0 {
		n = cfg.Catalog.PageSize
	}
	catalogStore, err := store.NewCatalogStore(cfg.Store.Path, cfg.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to open catalog cache: %w", err)
	}
	defer catalogStore.Close()

	cached := catalog.NewCachedClient(nil, catalogStore, cfg.Store.TagTTL, logger)
	records := cached.Stored(cfg.Catalog.PageSize, n)
	if len(records) == 0 {
		return errors.New("no stored records; run once online first")
	}
	for _, v := range records {
		fmt.Println(formatRecord(v))
	}
	return nil
}

func formatRecord(v domain.VideoRecord) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s views\t%s\t%s",
		v.ID,
		v.FormattedDuration(),
		v.AuthorName,
		domain.FormatCount(v.ViewCount),
		strings.Join(v.Tags, ","),
		v.Title,
	)
}
