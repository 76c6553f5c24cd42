package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mmcdole/reel/internal/domain"
)

const sharedAvatar = "http://img.test/avatar/shared"

func thumbURI(id int) string { return fmt.Sprintf("http://img.test/thumb/%d", id) }

// fakeCatalog serves ids 1..total in pages.
type fakeCatalog struct {
	mu        sync.Mutex
	total     int
	tags      []string
	pageErr   error
	tagErr    error
	gate      chan struct{} // when non-nil, FetchPage blocks until closed or cancelled
	started   chan int      // receives the offset of every FetchPage call
	pageCalls int
	overlap   int          // later pages repeat this many ids from the previous page
	dropped   map[int]bool // ids the server sends but the mapper rejects

	ignoreCancel bool // keep blocking on gate after ctx is cancelled
}

func (f *fakeCatalog) FetchPage(ctx context.Context, offset, limit int) (domain.Page, error) {
	f.mu.Lock()
	f.pageCalls++
	gate, started, err, total, overlap, dropped := f.gate, f.started, f.pageErr, f.total, f.overlap, f.dropped
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	if started != nil {
		started <- offset
	}
	if gate != nil && ignoreCancel {
		<-gate
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Page{}, fmt.Errorf("%w: %w", domain.ErrNetwork, ctx.Err())
		}
	}
	if err != nil {
		return domain.Page{}, err
	}

	first := offset + 1
	if offset > 0 {
		first -= overlap
	}
	var page domain.Page
	page.Total = total
	for id := first; id < first+limit && id <= total; id++ {
		page.Received++
		if dropped[id] {
			continue
		}
		page.Records = append(page.Records, domain.VideoRecord{
			ID:              id,
			Title:           fmt.Sprintf("clip %d", id),
			ThumbnailURI:    thumbURI(id),
			AuthorAvatarURI: sharedAvatar,
			PlaybackURI:     fmt.Sprintf("http://cdn.test/%d.m3u8", id),
		})
	}
	return page, nil
}

func (f *fakeCatalog) FetchTagVocabulary(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags, f.tagErr
}

func (f *fakeCatalog) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls
}

type fakeDecoder struct {
	calls atomic.Int32
}

func (d *fakeDecoder) Decode(ctx context.Context, uri string) (*domain.Asset, error) {
	d.calls.Add(1)
	return &domain.Asset{URI: uri, Width: 8, Height: 8}, nil
}

type fakeHandle struct{}

func (fakeHandle) Play() error    { return nil }
func (fakeHandle) Pause() error   { return nil }
func (fakeHandle) Dispose() error { return nil }

type fakeEngine struct{}

func (fakeEngine) Create(ctx context.Context, uri string) (domain.PlayerHandle, error) {
	return fakeHandle{}, nil
}

func newTestController(t *testing.T, cat *fakeCatalog) *Controller {
	t.Helper()
	c := NewController(cat, &fakeDecoder{}, fakeEngine{}, Options{PageSize: 10})
	t.Cleanup(c.Close)
	return c
}

func vocabulary(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = fmt.Sprintf("tag%d", i)
	}
	return tags
}
