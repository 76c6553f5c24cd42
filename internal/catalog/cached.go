package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// DefaultTagTTL is how long a stored vocabulary is served without refetching
const DefaultTagTTL = 24 * time.Hour

// CachedClient decorates a CatalogClient with the local store. The tag
// vocabulary is served from the store while fresh, and a stale copy is used
// when the network fails. Pages always come from the network; successful
// pages are recorded for offline inspection.
type CachedClient struct {
	inner  domain.CatalogClient
	store  domain.CatalogStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedClient wraps inner. A non-positive ttl uses DefaultTagTTL.
func NewCachedClient(inner domain.CatalogClient, store domain.CatalogStore, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTagTTL
	}
	return &CachedClient{inner: inner, store: store, ttl: ttl, logger: logger, now: time.Now}
}

// FetchPage fetches from the network and records the result
func (c *CachedClient) FetchPage(ctx context.Context, offset, limit int) (domain.Page, error) {
	page, err := c.inner.FetchPage(ctx, offset, limit)
	if err != nil {
		return page, err
	}
	if offset == 0 {
		// A fresh first page starts a new listing
		c.store.InvalidatePages()
	}
	if err := c.store.SavePage(offset, limit, page); err != nil {
		c.logger.Warn("failed to store page", "offset", offset, "error", err)
	}
	return page, nil
}

// FetchTagVocabulary serves a fresh stored vocabulary, otherwise fetches it.
// A stale stored vocabulary covers for network failures.
func (c *CachedClient) FetchTagVocabulary(ctx context.Context) ([]string, error) {
	cached, savedAt, ok := c.store.GetVocabulary()
	if ok && c.now().Sub(savedAt) < c.ttl {
		c.logger.Debug("tag vocabulary from store", "count", len(cached), "age", c.now().Sub(savedAt))
		return cached, nil
	}

	tags, err := c.inner.FetchTagVocabulary(ctx)
	if err != nil {
		if ok && ctx.Err() == nil {
			c.logger.Warn("tag fetch failed, using stale vocabulary", "error", err, "savedAt", savedAt)
			return cached, nil
		}
		return nil, err
	}

	if err := c.store.SaveVocabulary(tags); err != nil {
		c.logger.Warn("failed to store tag vocabulary", "error", err)
	}
	return tags, nil
}

// Stored returns up to n records from pages recorded by earlier sessions, in
// feed order. It reads pages of size limit from offset 0 until the first gap.
func (c *CachedClient) Stored(limit, n int) []domain.VideoRecord {
	var out []domain.VideoRecord
	for offset := 0; len(out) < n; offset += limit {
		page, ok := c.store.GetPage(offset, limit)
		if !ok || page.Count() == 0 {
			break
		}
		out = append(out, page.Records...)
		if page.Count() < limit {
			break
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

var _ domain.CatalogClient = (*CachedClient)(nil)
