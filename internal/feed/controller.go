// Package feed drives pagination and the visibility-driven lifecycle of feed
// resources: decoded images in the media cache and players in the pool.
//
// All state lives on one dispatch loop. Public methods post onto the loop and
// return immediately; network and decode work runs on worker goroutines and
// posts its completion back. Every reset starts a new generation, and
// completions from an older generation are discarded.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/dispatch"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/media"
	"github.com/mmcdole/reel/internal/player"
	"github.com/mmcdole/reel/internal/visibility"
	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the number of records requested per page
const DefaultPageSize = 10

// Options configures a Controller. Zero values take defaults.
type Options struct {
	PageSize   int
	Policy     Policy
	CacheCount int
	CacheCost  int64
	Enricher   *Enricher
	Logger     *slog.Logger
}

func (o *Options) setDefaults() {
	def := DefaultPolicy()
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Policy.PrefetchWindow <= 0 {
		o.Policy.PrefetchWindow = def.PrefetchWindow
	}
	if o.Policy.PagingThreshold <= 0 {
		o.Policy.PagingThreshold = def.PagingThreshold
	}
	if o.Policy.RetentionRadius <= 0 {
		o.Policy.RetentionRadius = def.RetentionRadius
	}
	if o.Enricher == nil {
		o.Enricher = NewEnricher(nil)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Controller owns the feed state, the visibility tracker, the media cache and
// the player pool.
type Controller struct {
	client   domain.CatalogClient
	loop     *dispatch.Loop
	cache    *media.Cache
	pool     *player.Pool
	vis      *visibility.Tracker
	enricher *Enricher
	policy   Policy
	pageSize int
	logger   *slog.Logger

	// Loop-owned
	records        []domain.VideoRecord
	ids            map[int]struct{}
	offset         int
	hasMore        bool
	loadingInitial bool
	loadingMore    bool
	lastError      string
	vocabulary     []string
	inflight       map[string]struct{} // asset URIs being fetched this generation
	gen            uint64
	ctx            context.Context
	cancel         context.CancelFunc
	session        string
	log            *slog.Logger

	// Published for readers on any goroutine
	mu        sync.Mutex
	snapshot  State
	players   map[int]player.State
	observers map[int]func(Event)
	nextObs   int

	closeOnce sync.Once
}

// NewController wires a controller around its collaborators.
func NewController(client domain.CatalogClient, decoder domain.AssetDecoder, engine domain.PlaybackEngine, opts Options) *Controller {
	opts.setDefaults()

	loop := dispatch.NewLoop(opts.Logger)
	c := &Controller{
		client:    client,
		loop:      loop,
		cache:     media.NewCache(decoder, opts.CacheCount, opts.CacheCost, opts.Logger),
		pool:      player.NewPool(engine, loop, opts.Policy.RetentionRadius, opts.Logger),
		vis:       visibility.NewTracker(),
		enricher:  opts.Enricher,
		policy:    opts.Policy,
		pageSize:  opts.PageSize,
		logger:    opts.Logger,
		ids:       make(map[int]struct{}),
		inflight:  make(map[string]struct{}),
		players:   make(map[int]player.State),
		observers: make(map[int]func(Event)),
	}
	c.pool.OnStateChange(c.playerChanged)

	// Constructed off the loop; nothing else can touch it yet
	c.newGeneration()
	c.publish()
	return c
}

// === Public API: posts onto the loop ===

// LoadInitial fetches the tag vocabulary and first page together. No-op while
// an initial load is already running.
func (c *Controller) LoadInitial() { c.loop.Post(c.loadInitial) }

// LoadMoreIfNeeded fetches the next page unless one is loading or the feed is
// exhausted. Safe to call redundantly.
func (c *Controller) LoadMoreIfNeeded() { c.loop.Post(c.loadMore) }

// OnItemVisible records that index came on screen and runs the loading policy.
func (c *Controller) OnItemVisible(index int) { c.loop.Post(func() { c.itemVisible(index) }) }

// OnItemHidden records that index left the screen and releases assets that
// fell out of every visible window.
func (c *Controller) OnItemHidden(index int) { c.loop.Post(func() { c.itemHidden(index) }) }

// Activate focuses index for playback.
func (c *Controller) Activate(index int) { c.loop.Post(func() { c.activate(index) }) }

// Pause pauses the focused player, keeping it prepared.
func (c *Controller) Pause() {
	c.loop.Post(func() {
		if a := c.pool.ActiveIndex(); a >= 0 {
			c.pool.Pause(a)
		}
	})
}

// Reset cancels outstanding work and empties the feed, the visible set, the
// media cache and the player pool.
func (c *Controller) Reset() { c.loop.Post(c.reset) }

// Refresh resets the feed and loads it again.
func (c *Controller) Refresh() {
	c.loop.Post(func() {
		c.reset()
		c.loadInitial()
	})
}

// Close resets the controller and stops its loop. Further calls are ignored.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.loop.Post(func() {
			c.reset()
			c.cancel()
		})
		c.loop.Close()
	})
}

// WaitIdle blocks until no work is queued or in flight. Must not be called
// from an observer.
func (c *Controller) WaitIdle() { c.loop.Idle() }

// === Public API: reads ===

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Subscribe registers fn for every event. fn runs on the controller loop and
// must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// IsReady reports whether the thumbnail for index is decoded and cached.
func (c *Controller) IsReady(index int) bool {
	videos := c.Snapshot().Videos
	if index < 0 || index >= len(videos) || videos[index].ThumbnailURI == "" {
		return false
	}
	return c.cache.Contains(videos[index].ThumbnailURI)
}

// Thumbnail returns the cached thumbnail for index, or nil.
func (c *Controller) Thumbnail(index int) *domain.Asset {
	videos := c.Snapshot().Videos
	if index < 0 || index >= len(videos) || videos[index].ThumbnailURI == "" {
		return nil
	}
	return c.cache.Get(videos[index].ThumbnailURI)
}

// PlayerState returns the last published player state for index.
func (c *Controller) PlayerState(index int) player.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.players[index]; ok {
		return s
	}
	return player.Uncreated
}

// === Loop-owned implementation ===

func (c *Controller) newGeneration() {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.session = uuid.NewString()
	c.log = c.logger.With("session", c.session)
	c.inflight = make(map[string]struct{})
}

func (c *Controller) clearFeed() {
	c.records = nil
	c.ids = make(map[int]struct{})
	c.offset = 0
	c.hasMore = false
	c.loadingInitial = false
	c.loadingMore = false
	c.lastError = ""
}

func (c *Controller) reset() {
	c.newGeneration()
	c.vis.Clear()
	c.cache.Clear()
	c.pool.DisposeAll()
	c.clearFeed()
	c.vocabulary = nil
	c.log.Info("feed reset")
	c.publish()
}

func (c *Controller) loadInitial() {
	if c.loadingInitial {
		return
	}
	c.newGeneration()
	c.clearFeed()
	c.vis.Clear()
	c.pool.DisposeAll()
	c.loadingInitial = true
	c.publish()

	gen, pageSize := c.gen, c.pageSize
	c.log.Info("loading feed", "pageSize", pageSize)

	c.loop.Go(c.ctx, func(ctx context.Context) func() {
		var (
			tags []string
			page domain.Page
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			tags, err = c.client.FetchTagVocabulary(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			page, err = c.client.FetchPage(gctx, 0, pageSize)
			return err
		})
		err := g.Wait()
		return func() { c.finishInitial(gen, tags, page, err) }
	})
}

func (c *Controller) finishInitial(gen uint64, tags []string, page domain.Page, err error) {
	if gen != c.gen {
		c.log.Debug("discarding stale initial load", "generation", gen)
		return
	}
	c.loadingInitial = false

	if err != nil {
		c.log.Warn("initial load failed", "error", err)
		c.lastError = err.Error()
		c.publish()
		return
	}

	c.vocabulary = tags
	c.appendPage(page)
	c.log.Info("feed loaded", "count", len(c.records), "total", page.Total, "hasMore", c.hasMore)
	c.publish()
	c.recheckPagination()
}

func (c *Controller) loadMore() {
	if c.loadingMore || c.loadingInitial || !c.hasMore {
		return
	}
	c.loadingMore = true
	c.publish()

	gen, offset, pageSize := c.gen, c.offset, c.pageSize
	c.log.Debug("loading more", "offset", offset)

	c.loop.Go(c.ctx, func(ctx context.Context) func() {
		page, err := c.client.FetchPage(ctx, offset, pageSize)
		return func() { c.finishMore(gen, page, err) }
	})
}

func (c *Controller) finishMore(gen uint64, page domain.Page, err error) {
	if gen != c.gen {
		c.log.Debug("discarding stale page", "generation", gen)
		return
	}
	c.loadingMore = false

	if err != nil {
		c.log.Warn("load more failed", "offset", c.offset, "error", err)
		c.lastError = err.Error()
		c.publish()
		return
	}

	c.appendPage(page)
	c.log.Debug("page appended", "count", len(c.records), "hasMore", c.hasMore)
	c.publish()
	c.recheckPagination()
}

// appendPage enriches and appends records, skipping IDs already in the feed.
// The offset advances by the count the server sent, including items the
// mapper dropped, so one bad item never ends the feed.
func (c *Controller) appendPage(page domain.Page) {
	received := page.Count()
	for _, r := range c.enricher.Enrich(page.Records, c.vocabulary) {
		if _, dup := c.ids[r.ID]; dup {
			c.log.Debug("skipping duplicate record", "id", r.ID)
			continue
		}
		c.ids[r.ID] = struct{}{}
		c.records = append(c.records, r)
	}
	c.vis.Truncate(len(c.records))
	c.offset += received
	c.hasMore = received == c.pageSize
	c.lastError = ""
}

// recheckPagination covers a visible index that was already near the end
// before the last page landed.
func (c *Controller) recheckPagination() {
	idx := c.vis.Indices()
	if len(idx) == 0 {
		return
	}
	c.checkPagination(idx[len(idx)-1])
}

func (c *Controller) checkPagination(index int) {
	if !c.policy.ShouldPage(index, len(c.records)) {
		return
	}
	if c.hasMore && !c.loadingMore && !c.loadingInitial {
		c.loadMore()
	}
}

func (c *Controller) itemVisible(index int) {
	n := len(c.records)
	if index < 0 || index >= n {
		return
	}
	c.vis.MarkVisible(index)

	c.loadAssets(index)
	lo, hi := c.policy.PrefetchRange(index, n)
	for j := lo; j < hi; j++ {
		c.loadAssets(j)
	}

	if c.policy.NearActive(index, c.pool.ActiveIndex()) {
		c.pool.Prepare(index, c.records[index].PlaybackURI)
	}

	c.checkPagination(index)
}

func (c *Controller) itemHidden(index int) {
	if !c.vis.MarkHidden(index) {
		return
	}
	c.releaseAround(index)
}

// retainedURIs returns asset URIs needed by the visible window and the
// focused item.
func (c *Controller) retainedURIs() map[string]struct{} {
	visible := c.vis.Indices()
	if a := c.pool.ActiveIndex(); a >= 0 {
		visible = append(visible, a)
	}
	uris := make(map[string]struct{})
	for j := range c.policy.AssetWindow(visible, len(c.records)) {
		for _, uri := range c.records[j].AssetURIs() {
			uris[uri] = struct{}{}
		}
	}
	return uris
}

// releaseAround evicts assets of records near index that no visible window
// still covers. A URI shared with a retained record stays.
func (c *Controller) releaseAround(index int) {
	retained := c.retainedURIs()
	k := c.policy.PrefetchWindow
	for j := max(0, index-k); j <= index+k && j < len(c.records); j++ {
		for _, uri := range c.records[j].AssetURIs() {
			if _, keep := retained[uri]; keep {
				continue
			}
			if c.cache.Remove(uri) {
				c.log.Debug("released asset", "index", j, "uri", uri)
			}
		}
	}
}

func (c *Controller) loadAssets(index int) {
	for _, uri := range c.records[index].AssetURIs() {
		if c.cache.Contains(uri) {
			continue
		}
		if _, busy := c.inflight[uri]; busy {
			continue
		}
		c.inflight[uri] = struct{}{}

		gen := c.gen
		c.loop.Go(c.ctx, func(ctx context.Context) func() {
			_, err := c.cache.FetchAndStore(ctx, uri)
			return func() { c.finishAsset(gen, index, uri, err) }
		})
	}
}

func (c *Controller) finishAsset(gen uint64, index int, uri string, err error) {
	if gen != c.gen {
		return
	}
	delete(c.inflight, uri)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Warn("asset load failed", "index", index, "uri", uri, "error", err)
		}
		return
	}

	// Scrolled away while decoding
	if _, keep := c.retainedURIs()[uri]; !keep {
		c.cache.Remove(uri)
		c.log.Debug("dropping asset outside window", "index", index, "uri", uri)
		return
	}
	c.emit(Event{Kind: AssetReady, Index: index, URI: uri})
}

func (c *Controller) activate(index int) {
	n := len(c.records)
	if index < 0 || index >= n {
		return
	}
	c.pool.Activate(index, c.records[index].PlaybackURI)

	lo, hi := c.policy.PrefetchRange(index, n)
	for j := lo; j < hi; j++ {
		c.pool.Prepare(j, c.records[j].PlaybackURI)
	}
	c.loadAssets(index)
	c.checkPagination(index)
}

func (c *Controller) playerChanged(index int, s player.State) {
	c.mu.Lock()
	if s == player.Disposed || s == player.Uncreated {
		delete(c.players, index)
	} else {
		c.players[index] = s
	}
	c.mu.Unlock()

	c.emit(Event{Kind: PlayerChanged, Index: index, Player: s})
}

// publish stores a new snapshot and notifies observers
func (c *Controller) publish() {
	st := State{
		Videos:        c.records[:len(c.records):len(c.records)],
		IsLoading:     c.loadingInitial,
		IsLoadingMore: c.loadingMore,
		HasMoreVideos: c.hasMore,
		ErrorMessage:  c.lastError,
		Offset:        c.offset,
		Session:       c.session,
	}

	c.mu.Lock()
	c.snapshot = st
	c.mu.Unlock()

	c.emit(Event{Kind: StateChanged, State: st})
}

// emit delivers ev to observers in subscription order
func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = c.observers[id]
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
