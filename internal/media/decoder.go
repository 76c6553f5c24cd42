package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	_ "golang.org/x/image/webp"
)

const (
	defaultTimeout = 15 * time.Second
	maxAssetBytes  = 8 * 1024 * 1024
	decoderAgent   = "Reel/1.0"
)

// HTTPDecoder downloads and decodes images over HTTP.
type HTTPDecoder struct {
	httpClient *http.Client
	maxCost    int64 // largest decoded size in bytes, checked against the header
	logger     *slog.Logger
}

// NewHTTPDecoder creates a decoder. A nil client gets a default with timeout;
// a non-positive maxCost falls back to DefaultCostLimit.
func NewHTTPDecoder(httpClient *http.Client, maxCost int64, logger *slog.Logger) *HTTPDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if maxCost <= 0 {
		maxCost = DefaultCostLimit
	}
	return &HTTPDecoder{httpClient: httpClient, maxCost: maxCost, logger: logger}
}

// Decode fetches uri and decodes it as jpeg, png, gif or webp.
func (d *HTTPDecoder) Decode(ctx context.Context, uri string) (*domain.Asset, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("asset uri %q: %w", uri, domain.ErrInvalidConfiguration)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", decoderAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", uri, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %w: status %d", uri, domain.ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", uri, domain.ErrNetwork, err)
	}

	// Decoders allocate the full pixel buffer from the header alone
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", uri, domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height)*4 > d.maxCost {
		return nil, fmt.Errorf("decode %s: %w: %dx%d exceeds %d bytes", uri, domain.ErrDecode, cfg.Width, cfg.Height, d.maxCost)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", uri, domain.ErrDecode, err)
	}

	b := img.Bounds()
	d.logger.Debug("decoded asset", "uri", uri, "format", format, "width", b.Dx(), "height", b.Dy())

	return &domain.Asset{
		URI:    uri,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
