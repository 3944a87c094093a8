package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"satellite-desktop/internal/config"
	"satellite-desktop/internal/media"
	"satellite-desktop/internal/processing"
	"satellite-desktop/internal/screen"
	"satellite-desktop/internal/staticmap"
)

// newTestApp wires an App against test servers, skipping the parts that
// touch the user's home directory (settings file, disk cache) and the
// Wails runtime (ctx stays nil so emitEvent is a no-op).
func newTestApp(mapURL, backendURL string) *App {
	app := &App{
		screens:   screen.NewController(),
		mapClient: staticmap.NewClient(mapURL, "test-key"),
		backend:   processing.NewClient(backendURL, "test-token"),
		prober:    media.NewProber(),
		settings:  config.DefaultSettings(),
	}
	app.recorder = media.NewRecorder(nil)
	return app
}

// newMapServer serves a fake PNG for every static map request.
func newMapServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestUploadWithoutLocation(t *testing.T) {
	var backendHits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendHits, 1)
	}))
	defer backend.Close()

	app := newTestApp("", backend.URL)

	_, err := app.ConfirmUpload()
	if !errors.Is(err, ErrNoLocation) {
		t.Fatalf("error = %v; want ErrNoLocation", err)
	}
	if atomic.LoadInt32(&backendHits) != 0 {
		t.Error("backend was contacted despite missing location")
	}
	if app.CurrentScreen() != string(screen.ScreenMap) {
		t.Errorf("screen = %q; want map (unchanged)", app.CurrentScreen())
	}
}

func TestUploadWithoutPreview(t *testing.T) {
	app := newTestApp("", "http://127.0.0.1:1/unused")

	if err := app.SetLocation(30.0444, 31.2357); err != nil {
		t.Fatalf("SetLocation returned error: %v", err)
	}

	_, err := app.ConfirmUpload()
	if !errors.Is(err, ErrNoPreview) {
		t.Fatalf("error = %v; want ErrNoPreview", err)
	}
}

func TestSetLocationRejectsInvalid(t *testing.T) {
	app := newTestApp("", "")

	if err := app.SetLocation(91, 0); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
	if app.GetSelectedLocation() != nil {
		t.Fatal("invalid coordinate was stored")
	}
}

func TestLoadPreviewWithoutLocation(t *testing.T) {
	app := newTestApp("", "")

	if _, err := app.LoadPreview(); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("error = %v; want ErrNoLocation", err)
	}
}

func TestFullUploadFlow(t *testing.T) {
	mapServer := newMapServer(t)

	var gotSession string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("backend failed to parse multipart: %v", err)
		}
		gotSession = r.FormValue("session_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_url": "https://cdn.example/clip.mp4", "status": "success"}`))
	}))
	defer backend.Close()

	app := newTestApp(mapServer.URL, backend.URL)

	if err := app.SetLocation(30.0444, 31.2357); err != nil {
		t.Fatalf("SetLocation returned error: %v", err)
	}

	preview, err := app.LoadPreview()
	if err != nil {
		t.Fatalf("LoadPreview returned error: %v", err)
	}
	if preview.DataURL == "" {
		t.Error("preview DataURL is empty")
	}
	if app.CurrentScreen() != string(screen.ScreenResult) {
		t.Fatalf("screen after preview = %q; want result", app.CurrentScreen())
	}

	result, err := app.ConfirmUpload()
	if err != nil {
		t.Fatalf("ConfirmUpload returned error: %v", err)
	}

	// The URL the backend returned is bound verbatim, never rewritten.
	if result.VideoURL != "https://cdn.example/clip.mp4" {
		t.Errorf("VideoURL = %q; want https://cdn.example/clip.mp4", result.VideoURL)
	}
	if result.SessionID == "" || result.SessionID != gotSession {
		t.Errorf("SessionID = %q; backend saw %q", result.SessionID, gotSession)
	}
	if app.CurrentScreen() != string(screen.ScreenResults) {
		t.Errorf("screen = %q; want results-display", app.CurrentScreen())
	}
	if app.CurrentVideoURL() != "https://cdn.example/clip.mp4" {
		t.Errorf("CurrentVideoURL = %q; want the returned URL", app.CurrentVideoURL())
	}
}

func TestUploadReentrancyRejected(t *testing.T) {
	mapServer := newMapServer(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var backendHits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendHits, 1)
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_url": "https://cdn.example/clip.mp4"}`))
	}))
	defer backend.Close()

	app := newTestApp(mapServer.URL, backend.URL)
	if err := app.SetLocation(10, 20); err != nil {
		t.Fatalf("SetLocation returned error: %v", err)
	}
	if _, err := app.LoadPreview(); err != nil {
		t.Fatalf("LoadPreview returned error: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := app.ConfirmUpload()
		firstDone <- err
	}()

	// Wait until the first upload is inside the backend handler, then
	// issue a second one while it is still in flight.
	<-entered
	if _, err := app.ConfirmUpload(); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("second upload error = %v; want ErrUploadInFlight", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first upload returned error: %v", err)
	}

	if hits := atomic.LoadInt32(&backendHits); hits != 1 {
		t.Fatalf("backend hits = %d; want 1 (rejected upload must not reach the network)", hits)
	}
	if app.CurrentScreen() != string(screen.ScreenResults) {
		t.Errorf("screen = %q; want results-display after the surviving upload", app.CurrentScreen())
	}
}

func TestPreviewReportsSelectionMode(t *testing.T) {
	mapServer := newMapServer(t)

	cases := []struct {
		name   string
		choose func(a *App) error
		want   string
	}{
		{"map click", func(a *App) error { return a.SetLocation(10, 20) }, "browsing"},
		{"device geolocation", func(a *App) error { return a.SetDeviceLocation(10, 20) }, "finding"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(mapServer.URL, "")
			if err := tc.choose(app); err != nil {
				t.Fatalf("selecting location returned error: %v", err)
			}
			preview, err := app.LoadPreview()
			if err != nil {
				t.Fatalf("LoadPreview returned error: %v", err)
			}
			if preview.Mode != tc.want {
				t.Fatalf("Mode = %q; want %q", preview.Mode, tc.want)
			}
		})
	}
}

func TestUploadFailureRevertsToResult(t *testing.T) {
	mapServer := newMapServer(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "processing crashed"}`))
	}))
	defer backend.Close()

	app := newTestApp(mapServer.URL, backend.URL)
	if err := app.SetLocation(10, 20); err != nil {
		t.Fatalf("SetLocation returned error: %v", err)
	}
	if _, err := app.LoadPreview(); err != nil {
		t.Fatalf("LoadPreview returned error: %v", err)
	}

	if _, err := app.ConfirmUpload(); err == nil {
		t.Fatal("expected error from failing backend")
	}

	if app.CurrentScreen() != string(screen.ScreenResult) {
		t.Errorf("screen = %q; want result (reverted)", app.CurrentScreen())
	}
	if app.CurrentVideoURL() != "" {
		t.Errorf("CurrentVideoURL = %q; want empty after failure", app.CurrentVideoURL())
	}

	// The preview is retained so the user can retry from the result screen.
	if _, err := app.ConfirmUpload(); err == nil {
		t.Log("retry reached the still-failing backend as expected")
	}
}

func TestMissingVideoURLIsAnError(t *testing.T) {
	mapServer := newMapServer(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "success"}`))
	}))
	defer backend.Close()

	app := newTestApp(mapServer.URL, backend.URL)
	app.SetLocation(10, 20)
	if _, err := app.LoadPreview(); err != nil {
		t.Fatalf("LoadPreview returned error: %v", err)
	}

	_, err := app.ConfirmUpload()
	if !errors.Is(err, processing.ErrNoVideoURL) {
		t.Fatalf("error = %v; want ErrNoVideoURL", err)
	}
	if app.CurrentScreen() != string(screen.ScreenResult) {
		t.Errorf("screen = %q; want result (reverted)", app.CurrentScreen())
	}
}

func TestReset(t *testing.T) {
	mapServer := newMapServer(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_url": "https://cdn.example/clip.mp4"}`))
	}))
	defer backend.Close()

	app := newTestApp(mapServer.URL, backend.URL)
	app.SetLocation(10, 20)
	if _, err := app.LoadPreview(); err != nil {
		t.Fatalf("LoadPreview returned error: %v", err)
	}
	if _, err := app.ConfirmUpload(); err != nil {
		t.Fatalf("ConfirmUpload returned error: %v", err)
	}

	app.Reset()

	if app.CurrentScreen() != string(screen.ScreenMap) {
		t.Errorf("screen = %q; want map", app.CurrentScreen())
	}
	if app.GetSelectedLocation() != nil {
		t.Error("selection survived Reset")
	}
	if app.CurrentVideoURL() != "" {
		t.Error("video URL survived Reset")
	}

	// A fresh flow after reset gets a new session id.
	app.SetLocation(11, 21)
	if _, err := app.LoadPreview(); err != nil {
		t.Fatalf("LoadPreview after reset returned error: %v", err)
	}
	if _, err := app.ConfirmUpload(); err != nil {
		t.Fatalf("ConfirmUpload after reset returned error: %v", err)
	}
}
