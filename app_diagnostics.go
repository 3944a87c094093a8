package main

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"satellite-desktop/internal/media"
)

// Diagnostics and Result-Sharing Functions (Wails-exported)

// ReportPlaybackEvent records one playback observer event coming from
// the frontend's video element (loadstart, canplay, error, stalled...).
func (a *App) ReportPlaybackEvent(name, detail string) {
	a.mu.Lock()
	url := a.lastVideoURL
	a.mu.Unlock()

	a.recorder.Record(name, detail, url)
}

// TestVideoConnectivity re-fetches the video URL to report
// reachability and status to the user. Empty url probes the current
// result.
func (a *App) TestVideoConnectivity(url string) media.Report {
	if url == "" {
		a.mu.Lock()
		url = a.lastVideoURL
		a.mu.Unlock()
	}
	if url == "" {
		return media.Report{Error: "no video to test"}
	}

	report := a.prober.Probe(a.requestContext(), url)
	a.TrackEvent("video_probe", map[string]interface{}{
		"reachable": report.Reachable,
		"status":    report.StatusCode,
	})
	return report
}

// ShareVideoQR renders a QR code for the result video URL so the clip
// can be opened on a phone. Returns a PNG data URL.
func (a *App) ShareVideoQR(url string) (string, error) {
	if url == "" {
		a.mu.Lock()
		url = a.lastVideoURL
		a.mu.Unlock()
	}
	if url == "" {
		return "", fmt.Errorf("no video URL to share")
	}

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Cache Management Functions (Wails-exported)

// CacheStats represents preview cache statistics for the frontend
type CacheStats struct {
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"sizeBytes"`
	MaxBytes  int64   `json:"maxBytes"`
	SizeMB    float64 `json:"sizeMB"`
	MaxMB     float64 `json:"maxMB"`
	CachePath string  `json:"cachePath"`
}

// GetCacheStats returns current preview cache statistics
func (a *App) GetCacheStats() CacheStats {
	if a.previewCache == nil {
		return CacheStats{}
	}

	entries, sizeBytes, maxBytes := a.previewCache.Stats()

	return CacheStats{
		Entries:   entries,
		SizeBytes: sizeBytes,
		MaxBytes:  maxBytes,
		SizeMB:    float64(sizeBytes) / 1024 / 1024,
		MaxMB:     float64(maxBytes) / 1024 / 1024,
		CachePath: a.previewCache.GetCachePath(),
	}
}

// ClearPreviewCache removes all cached preview images
func (a *App) ClearPreviewCache() error {
	if a.previewCache != nil {
		return a.previewCache.Clear()
	}
	return nil
}
