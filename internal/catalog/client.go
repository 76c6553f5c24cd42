// Package catalog talks to the remote video catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Reel/1.0"
	maxBodyBytes   = 8 << 20
)

// Client implements domain.CatalogClient over the catalog's JSON API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a catalog client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: catalog base url %q", domain.ErrInvalidConfiguration, baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a GET and returns the body of a 200 response
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("catalog request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed", "url", reqURL, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("catalog request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrNetwork, resp.StatusCode)
	}
	return body, nil
}

// FetchPage returns records [offset, offset+limit) in server order
func (c *Client) FetchPage(ctx context.Context, offset, limit int) (domain.Page, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("category", "shorts")
	query.Set("date_filter_type", "created")
	query.Set("sort_by", "date_created")
	query.Set("sort_order", "desc")

	body, err := c.doRequest(ctx, "/videos/recommendations", query)
	if err != nil {
		return domain.Page{}, err
	}

	var resp RecommendationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return domain.Page{}, fmt.Errorf("%w: recommendations: %w", domain.ErrDecode, err)
	}

	return domain.Page{
		Records:  MapRecords(resp.Items, c.baseURL),
		Total:    resp.Total,
		Received: len(resp.Items),
	}, nil
}

// FetchTagVocabulary returns the global tag list
func (c *Client) FetchTagVocabulary(ctx context.Context) ([]string, error) {
	body, err := c.doRequest(ctx, "/videos/tags", nil)
	if err != nil {
		return nil, err
	}

	var resp TagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: tags: %w", domain.ErrDecode, err)
	}
	return MapTags(resp.Items), nil
}

var _ domain.CatalogClient = (*Client)(nil)
