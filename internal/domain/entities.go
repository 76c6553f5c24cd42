package domain

import (
	"fmt"
	"time"
)

// VideoRecord is one decoded catalog entry. Records are immutable once
// fetched; enrichment produces a copy via WithTags.
type VideoRecord struct {
	ID              int    // Catalog video_id, unique within a feed session
	ChannelID       int    // Owning channel
	Title           string // Display title
	Description     string // Empty when the catalog has none
	ThumbnailURI    string // Preview image
	PlaybackURI     string // HLS playlist, derived from ID
	AuthorName      string // Channel display name
	AuthorAvatarURI string // Empty when the channel has no avatar
	Location        string // Empty when not geotagged

	// Tags is ordered and possibly empty
	Tags []string

	ViewCount       int
	LikeCount       int
	CommentCount    int
	DurationSeconds int

	IsVertical bool
	IsFree     bool

	PublishedAt time.Time // Zero when the catalog omits it
}

// Page is a single catalog response.
type Page struct {
	Records  []VideoRecord
	Total    int // Server-reported total, 0 if unknown
	Received int // Items the server sent, including any the mapper dropped
}

// Count is the number of items the server sent for this page.
func (p Page) Count() int {
	if p.Received > 0 {
		return p.Received
	}
	return len(p.Records)
}

// WithTags returns a copy of the record carrying the given tags.
func (v VideoRecord) WithTags(tags []string) VideoRecord {
	out := v
	out.Tags = append([]string(nil), tags...)
	return out
}

// AssetURIs returns the image URIs the feed loads for this record.
func (v VideoRecord) AssetURIs() []string {
	uris := make([]string, 0, 2)
	if v.ThumbnailURI != "" {
		uris = append(uris, v.ThumbnailURI)
	}
	if v.AuthorAvatarURI != "" && v.AuthorAvatarURI != v.ThumbnailURI {
		uris = append(uris, v.AuthorAvatarURI)
	}
	return uris
}

// Duration returns the runtime as a time.Duration
func (v VideoRecord) Duration() time.Duration {
	return time.Duration(v.DurationSeconds) * time.Second
}

// FormattedDuration returns the runtime as m:ss or h:mm:ss
func (v VideoRecord) FormattedDuration() string {
	d := v.Duration()
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatCount renders a counter the way the feed overlay shows it (1.2K, 3.4M).
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
