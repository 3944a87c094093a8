package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"satellite-desktop/internal/geo"
)

const (
	// ImageFieldName and ImageFilename are the multipart contract the
	// backend expects for the uploaded still image.
	ImageFieldName = "image"
	ImageFilename  = "satellite_image.png"
)

// ErrNoVideoURL is returned when the backend response carries neither
// the canonical nor the deprecated video URL key.
var ErrNoVideoURL = errors.New("backend response contains no video URL")

// Request carries one upload attempt to the processing backend.
type Request struct {
	Image     []byte
	Coord     geo.Coordinate
	SessionID string
}

// Result is the parsed backend response.
type Result struct {
	VideoURL  string `json:"video_url"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Client uploads satellite images to the processing backend and parses
// the video response. There is no retry: any transport failure, non-2xx
// status or malformed body surfaces as a single error.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewClient creates a processing backend client.
func NewClient(endpoint, token string) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
		endpoint: endpoint,
		token:    token,
	}
}

// ProcessImage POSTs the image plus coordinates and session identifier
// as a multipart form and returns the video URL from the JSON response.
func (c *Client) ProcessImage(ctx context.Context, req Request) (*Result, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("no image data to upload")
	}
	if err := req.Coord.Validate(); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(ImageFieldName, ImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	fields := map[string]string{
		"latitude":   fmt.Sprintf("%.6f", req.Coord.Lat),
		"longitude":  fmt.Sprintf("%.6f", req.Coord.Lng),
		"session_id": req.SessionID,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	return parseResponse(data)
}

// parseResponse extracts the video URL. The canonical key is
// "video_url"; "videoUrl" is an older backend schema still accepted
// but logged as deprecated.
func parseResponse(data []byte) (*Result, error) {
	var raw struct {
		VideoURL       string `json:"video_url"`
		LegacyVideoURL string `json:"videoUrl"`
		SessionID      string `json:"session_id"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed backend response: %w", err)
	}

	videoURL := raw.VideoURL
	if videoURL == "" && raw.LegacyVideoURL != "" {
		log.Printf("[Upload] backend responded with deprecated videoUrl key; expected video_url")
		videoURL = raw.LegacyVideoURL
	}
	if videoURL == "" {
		return nil, ErrNoVideoURL
	}

	return &Result{
		VideoURL:  videoURL,
		SessionID: raw.SessionID,
		Message:   raw.Message,
	}, nil
}

func truncate(data []byte, limit int) string {
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
