package media

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/reel/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCountLimit = 100
	DefaultCostLimit  = 50 * 1024 * 1024
)

type cacheEntry struct {
	uri   string
	asset *domain.Asset
	cost  int64
}

// Cache is a bounded LRU of decoded images keyed by source URI. It is bounded
// by both entry count and total cost; inserting evicts least-recently-used
// entries until the new entry fits. Concurrent fetches of one URI share a
// single decode.
type Cache struct {
	decoder    domain.AssetDecoder
	countLimit int
	costLimit  int64
	logger     *slog.Logger

	mu    sync.Mutex
	order *list.List // front = most recently used
	items map[string]*list.Element
	cost  int64
	epoch uint64 // bumped by Clear; stale fetches do not store

	// Per-uri removal counters, kept only while a decode of that uri is in
	// flight. A fetch whose uri was removed meanwhile does not store.
	pending map[string]int
	revs    map[string]uint64

	group singleflight.Group
}

// NewCache creates a cache. Non-positive limits fall back to the defaults.
func NewCache(decoder domain.AssetDecoder, countLimit int, costLimit int64, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if countLimit <= 0 {
		countLimit = DefaultCountLimit
	}
	if costLimit <= 0 {
		costLimit = DefaultCostLimit
	}
	return &Cache{
		decoder:    decoder,
		countLimit: countLimit,
		costLimit:  costLimit,
		logger:     logger,
		order:      list.New(),
		items:      make(map[string]*list.Element),
		pending:    make(map[string]int),
		revs:       make(map[string]uint64),
	}
}

// Get returns the cached asset or nil. Never fetches.
func (c *Cache) Get(uri string) *domain.Asset {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[uri]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).asset
}

// Contains reports presence without touching recency
func (c *Cache) Contains(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[uri]
	return ok
}

// FetchAndStore returns the cached asset, decoding and inserting it on a miss.
// Callers racing on the same uri share one decode and receive the same result.
// A failed decode leaves the cache untouched.
func (c *Cache) FetchAndStore(ctx context.Context, uri string) (*domain.Asset, error) {
	if a := c.Get(uri); a != nil {
		return a, nil
	}

	v, err, shared := c.group.Do(uri, func() (interface{}, error) {
		if a := c.Get(uri); a != nil {
			return a, nil
		}
		epoch, rev := c.begin(uri)
		defer c.end(uri)

		a, err := c.decoder.Decode(ctx, uri)
		if err != nil {
			return nil, err
		}
		c.store(uri, a, epoch, rev)
		return a, nil
	})
	if err != nil {
		c.logger.Debug("asset fetch failed", "uri", uri, "error", err, "shared", shared)
		return nil, err
	}
	return v.(*domain.Asset), nil
}

func (c *Cache) begin(uri string) (epoch, rev uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[uri]++
	return c.epoch, c.revs[uri]
}

func (c *Cache) end(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[uri]--; c.pending[uri] <= 0 {
		delete(c.pending, uri)
		delete(c.revs, uri)
	}
}

func (c *Cache) store(uri string, a *domain.Asset, epoch, rev uint64) {
	cost := a.Cost()

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || rev != c.revs[uri] {
		return
	}
	if cost > c.costLimit {
		c.logger.Debug("asset exceeds cost limit, not caching", "uri", uri, "cost", cost, "limit", c.costLimit)
		return
	}
	if el, ok := c.items[uri]; ok {
		c.removeElement(el)
	}
	for c.order.Len() > 0 && (c.order.Len()+1 > c.countLimit || c.cost+cost > c.costLimit) {
		oldest := c.order.Back()
		c.logger.Debug("evicting asset", "uri", oldest.Value.(*cacheEntry).uri)
		c.removeElement(oldest)
	}
	c.items[uri] = c.order.PushFront(&cacheEntry{uri: uri, asset: a, cost: cost})
	c.cost += cost
}

func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.items, e.uri)
	c.cost -= e.cost
}

// Remove evicts uri if present. A decode of uri already in flight will not
// store.
func (c *Cache) Remove(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending[uri] > 0 {
		c.revs[uri]++
	}
	el, ok := c.items[uri]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear evicts everything. Fetches already in flight will not store.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.cost = 0
	c.epoch++
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cost returns the summed cost of cached entries
func (c *Cache) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}
