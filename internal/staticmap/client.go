package staticmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"satellite-desktop/internal/geo"
)

const (
	// DefaultBaseURL is the provider's static map rendering endpoint.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/staticmap"

	// Fixed rendering parameters. The preview is always a 512x512
	// satellite crop at maximum detail.
	Zoom    = 19
	Size    = "512x512"
	MapType = "satellite"

	// UserAgent sent with image requests
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Client fetches rendered satellite images from the static map endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a static map client with system proxy support.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// ImageURL builds the request URL for a coordinate. Zoom and size are
// fixed; only the center varies.
func (c *Client) ImageURL(coord geo.Coordinate) string {
	params := url.Values{}
	params.Set("center", coord.String())
	params.Set("zoom", fmt.Sprintf("%d", Zoom))
	params.Set("size", Size)
	params.Set("maptype", MapType)
	params.Set("key", c.apiKey)
	return c.baseURL + "?" + params.Encode()
}

// FetchImage downloads the rendered image bytes for a coordinate.
func (c *Client) FetchImage(ctx context.Context, coord geo.Coordinate) ([]byte, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ImageURL(coord), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch satellite image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("satellite image request failed with status: %d", resp.StatusCode)
	}

	// Providers return an error page instead of a 4xx when the key is
	// bad. Reject anything that is not an image.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("satellite image request returned %q instead of an image", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read satellite image: %w", err)
	}

	return data, nil
}
