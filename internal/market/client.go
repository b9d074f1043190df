// Package market fetches and parses the marketplace price feed.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"tradeup/internal/config"
)

// maxBody bounds how much of a remote document is read.
const maxBody = 256 << 20

// Client reads JSON documents from HTTP(S) URLs or local files.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient creates a Client with the timeout and User-Agent from cfg.
func NewClient(cfg config.MarketConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

// IsURL reports whether source should be fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the raw bytes of source, a URL or a file path.
func (c *Client) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !IsURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get %s: HTTP %d: %s", source, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// FetchListings reads and parses a price feed.
func (c *Client) FetchListings(ctx context.Context, source string) ([]Listing, error) {
	data, err := c.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return ParseListings(data)
}
