package media

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Report describes the reachability of a video resource. It backs the
// manual connectivity-test affordance on the results screen.
type Report struct {
	URL           string  `json:"url"`
	Reachable     bool    `json:"reachable"`
	StatusCode    int     `json:"statusCode"`
	ContentType   string  `json:"contentType"`
	ContentLength int64   `json:"contentLength"`
	ElapsedMs     int64   `json:"elapsedMs"`
	Error         string  `json:"error,omitempty"`
}

// Prober checks whether a returned video URL actually serves content.
type Prober struct {
	httpClient *http.Client
}

// NewProber creates a prober with a short timeout; this is a
// diagnostic check, not a download.
func NewProber() *Prober {
	return &Prober{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
	}
}

// Probe issues a HEAD request for the URL, falling back to GET when the
// server rejects HEAD. The body is never read past the headers.
func (p *Prober) Probe(ctx context.Context, url string) Report {
	start := time.Now()

	report := p.request(ctx, http.MethodHead, url)
	if !report.Reachable || report.StatusCode == http.StatusMethodNotAllowed {
		report = p.request(ctx, http.MethodGet, url)
	}

	report.ElapsedMs = time.Since(start).Milliseconds()
	return report
}

func (p *Prober) request(ctx context.Context, method, url string) Report {
	report := Report{URL: url}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		report.Error = fmt.Sprintf("request failed: %v", err)
		return report
	}
	defer resp.Body.Close()

	report.StatusCode = resp.StatusCode
	report.ContentType = resp.Header.Get("Content-Type")
	report.ContentLength = resp.ContentLength
	report.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 400

	return report
}

// PlaybackEvent is one structured diagnostic event emitted by the
// frontend's playback observers (loadstart, canplay, error, stalled...).
type PlaybackEvent struct {
	Name   string    `json:"name"`
	Detail string    `json:"detail,omitempty"`
	URL    string    `json:"url,omitempty"`
	At     time.Time `json:"at"`
}

// Recorder collects playback diagnostics. Events are logged and handed
// to an optional sink (analytics, UI event bus).
type Recorder struct {
	sink func(PlaybackEvent)
}

// NewRecorder creates a recorder. sink may be nil.
func NewRecorder(sink func(PlaybackEvent)) *Recorder {
	return &Recorder{sink: sink}
}

// Record logs one playback event and forwards it to the sink.
func (r *Recorder) Record(name, detail, url string) {
	event := PlaybackEvent{
		Name:   name,
		Detail: detail,
		URL:    url,
		At:     time.Now(),
	}

	if detail != "" {
		log.Printf("[Playback] %s: %s (%s)", event.Name, event.Detail, event.URL)
	} else {
		log.Printf("[Playback] %s (%s)", event.Name, event.URL)
	}

	if r.sink != nil {
		r.sink(event)
	}
}
