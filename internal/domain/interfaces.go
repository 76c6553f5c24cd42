package domain

import (
	"context"
	"image"
)

// CatalogClient fetches pages of video records and the tag vocabulary.
// Implementations are pure I/O.
type CatalogClient interface {
	// FetchPage returns records [offset, offset+limit) in server order
	FetchPage(ctx context.Context, offset, limit int) (Page, error)

	// FetchTagVocabulary returns the global tag list used for enrichment
	FetchTagVocabulary(ctx context.Context) ([]string, error)
}

// Asset is a decoded image held by the media cache.
type Asset struct {
	URI    string
	Image  image.Image
	Width  int
	Height int
}

// Cost estimates the decoded footprint in bytes (RGBA, 4 bytes per pixel).
func (a *Asset) Cost() int64 {
	if a == nil {
		return 0
	}
	return int64(a.Width) * int64(a.Height) * 4
}

// AssetDecoder downloads and decodes an image.
// Fails with ErrNetwork or ErrDecode.
type AssetDecoder interface {
	Decode(ctx context.Context, uri string) (*Asset, error)
}

// PlayerHandle is an opaque playback resource.
type PlayerHandle interface {
	Play() error
	Pause() error
	Dispose() error
}

// PlaybackEngine creates player handles for playback URIs.
type PlaybackEngine interface {
	Create(ctx context.Context, uri string) (PlayerHandle, error)
}
