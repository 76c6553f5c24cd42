package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// publicationLayouts are tried in order when parsing date_publication
var publicationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MapRecords converts catalog items to domain records, dropping items
// without a usable id.
func MapRecords(items []VideoItem, baseURL string) []domain.VideoRecord {
	records := make([]domain.VideoRecord, 0, len(items))
	for _, it := range items {
		if it.VideoID <= 0 {
			continue
		}
		records = append(records, mapRecord(it, baseURL))
	}
	return records
}

func mapRecord(it VideoItem, baseURL string) domain.VideoRecord {
	rec := domain.VideoRecord{
		ID:              it.VideoID,
		ChannelID:       deref(it.ChannelID),
		Title:           strings.TrimSpace(deref(it.Title)),
		Description:     strings.TrimSpace(deref(it.Description)),
		ThumbnailURI:    resolveURL(baseURL, deref(it.PreviewImage)),
		PlaybackURI:     PlaybackURI(baseURL, it.VideoID),
		AuthorName:      deref(it.ChannelName),
		AuthorAvatarURI: resolveURL(baseURL, deref(it.ChannelAvatar)),
		Location:        strings.TrimSpace(deref(it.LocationText)),
		Tags:            []string{},
		ViewCount:       clamp(deref(it.NumbersViews)),
		LikeCount:       clamp(deref(it.NumbersLikes)),
		CommentCount:    clamp(deref(it.NumbersComments)),
		DurationSeconds: clamp(deref(it.DurationSec)),
		IsVertical:      derefOr(it.Vertical, true),
		IsFree:          derefOr(it.Free, true),
		PublishedAt:     parsePublication(deref(it.DatePublication)),
	}

	// Fall back to the post image when there is no preview
	if rec.ThumbnailURI == "" {
		rec.ThumbnailURI = resolveURL(baseURL, deref(it.PostImage))
	}
	return rec
}

// PlaybackURI derives the HLS playlist location for a video id
func PlaybackURI(baseURL string, id int) string {
	return fmt.Sprintf("%s/videos/video/%d/hls/playlist.m3u8", strings.TrimRight(baseURL, "/"), id)
}

// resolveURL makes server-relative image paths absolute against the host of
// baseURL. Absolute URLs pass through unchanged.
func resolveURL(baseURL, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		return "https:" + path
	}
	origin := baseURL
	if i := strings.Index(origin, "://"); i >= 0 {
		if j := strings.Index(origin[i+3:], "/"); j >= 0 {
			origin = origin[:i+3+j]
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return origin + path
}

func parsePublication(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range publicationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MapTags extracts non-empty, distinct tags in server order
func MapTags(items []TagItem) []string {
	seen := make(map[string]struct{}, len(items))
	tags := make([]string, 0, len(items))
	for _, it := range items {
		tag := strings.TrimSpace(it.Tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
