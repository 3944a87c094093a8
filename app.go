package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	goruntime "runtime"
	"sync"

	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"satellite-desktop/internal/cache"
	"satellite-desktop/internal/config"
	"satellite-desktop/internal/devserver"
	"satellite-desktop/internal/geo"
	"satellite-desktop/internal/media"
	"satellite-desktop/internal/processing"
	"satellite-desktop/internal/screen"
	"satellite-desktop/internal/session"
	"satellite-desktop/internal/staticmap"
	"satellite-desktop/internal/video"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// Guard errors surfaced to the frontend as blocking alerts.
var (
	ErrNoLocation     = errors.New("no location selected")
	ErrNoPreview      = errors.New("no satellite preview loaded")
	ErrUploadInFlight = errors.New("an upload is already in progress")
)

// PreviewResult is returned to the frontend after a satellite image is
// fetched for the selected coordinate.
type PreviewResult struct {
	ImageURL string  `json:"imageUrl"` // provider request URL (diagnostics)
	DataURL  string  `json:"dataUrl"`  // bound to the preview <img>
	CacheHit bool    `json:"cacheHit"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Mode     string  `json:"mode"` // "finding" or "browsing"
}

// UploadResult is returned after the backend finishes processing.
type UploadResult struct {
	VideoURL  string `json:"videoUrl"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
}

// StartupState seeds the frontend on first render. The maps API key
// stays backend-side; previews are fetched by Go, never by the UI.
type StartupState struct {
	Screen     string   `json:"screen"`
	CenterLat  float64  `json:"centerLat"`
	CenterLng  float64  `json:"centerLng"`
	Zoom       float64  `json:"zoom"`
	Warnings   []string `json:"warnings"`
	ShowCoords bool     `json:"showCoordinates"`
	Theme      string   `json:"theme"`
	AppVersion string   `json:"appVersion"`
}

// App struct
type App struct {
	ctx          context.Context
	screens      *screen.Controller
	mapClient    *staticmap.Client
	backend      *processing.Client
	previewCache *cache.PreviewCache
	prober       *media.Prober
	recorder     *media.Recorder
	settings     *config.UserSettings
	phClient     posthog.Client
	devMode      bool

	// Session state: the selected coordinate, how it was chosen, the
	// correlation id of the current upload, and the preview bytes that
	// will be uploaded. Guarded by mu; handlers run on the Wails
	// binding goroutines.
	mu           sync.Mutex
	selected     *geo.Coordinate
	mode         geo.Mode
	sessionID    string
	lastImage    []byte
	lastVideoURL string
	uploading    bool
}

// NewApp creates a new App application struct
func NewApp() *App {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	config.ApplyEnvOverrides(settings)
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	previewCache, err := cache.NewPreviewCache(cache.GetCacheDir(), settings.CacheMaxSizeMB, settings.CacheTTLDays)
	if err != nil {
		log.Printf("Failed to initialize preview cache: %v", err)
		previewCache = nil // Continue without cache
	} else {
		log.Printf("Preview cache initialized at %s (max %d MB)", cache.GetCacheDir(), settings.CacheMaxSizeMB)
	}

	var phClient posthog.Client
	if PostHogKey != "" {
		client, err := posthog.NewWithConfig(PostHogKey, posthog.Config{Endpoint: PostHogHost})
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = client
		}
	}

	app := &App{
		screens:      screen.NewController(),
		mapClient:    staticmap.NewClient("", settings.MapsAPIKey),
		backend:      processing.NewClient(settings.BackendURL, settings.AuthToken),
		previewCache: previewCache,
		prober:       media.NewProber(),
		settings:     settings,
		phClient:     phClient,
	}
	app.recorder = media.NewRecorder(func(event media.PlaybackEvent) {
		app.emitEvent("playback-event", event)
		app.TrackEvent("playback_"+event.Name, map[string]interface{}{"detail": event.Detail})
	})

	// DEV_BACKEND=1 runs the bundled development backend and points
	// uploads at it, so the app works without a deployed pipeline.
	if os.Getenv("DEV_BACKEND") == "1" {
		app.startDevBackend(settings)
	}

	return app
}

// startDevBackend boots the local stand-in processing server.
func (a *App) startDevBackend(settings *config.UserSettings) {
	looper, err := video.NewLooper(video.DefaultLoopOptions())
	if err != nil {
		log.Printf("Failed to initialize dev backend video encoder: %v", err)
		return
	}

	videoDir, err := os.MkdirTemp("", "satellite_videos_*")
	if err != nil {
		log.Printf("Failed to create dev backend video directory: %v", err)
		return
	}

	server := devserver.NewServer(settings.AuthToken, videoDir, looper)
	if err := server.Start("127.0.0.1:0"); err != nil {
		log.Printf("Failed to start dev backend: %v", err)
		return
	}

	settings.BackendURL = server.BaseURL() + "/api/process-image"
	a.backend = processing.NewClient(settings.BackendURL, settings.AuthToken)
	log.Printf("Dev backend wired at %s", settings.BackendURL)
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.screens.SetOnShow(func(s screen.Screen) {
		a.emitEvent("screen-changed", string(s))
	})

	if warnings := config.ValidateExternal(a.settings); len(warnings) > 0 {
		for _, w := range warnings {
			wailsRuntime.LogWarning(ctx, "Configuration: "+w)
		}
		a.emitEvent("config-warnings", warnings)
	}

	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
		"dev":     a.devMode,
	})
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	if a.previewCache != nil {
		a.previewCache.Close()
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// emitEvent forwards an event to the frontend when a UI context exists.
func (a *App) emitEvent(name string, data interface{}) {
	if a.ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(a.ctx, name, data)
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: "backend_user",
			Event:      event,
			Properties: props,
		})
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// GetStartupState returns everything the frontend needs for its first render.
func (a *App) GetStartupState() StartupState {
	a.mu.Lock()
	defer a.mu.Unlock()

	lat, lng := a.settings.DefaultCenterLat, a.settings.DefaultCenterLng
	zoom := float64(a.settings.DefaultZoom)
	if a.settings.LastCenterLat != 0 || a.settings.LastCenterLng != 0 {
		lat, lng = a.settings.LastCenterLat, a.settings.LastCenterLng
		if a.settings.LastZoom != 0 {
			zoom = a.settings.LastZoom
		}
	}

	return StartupState{
		Screen:     string(a.screens.Current()),
		CenterLat:  lat,
		CenterLng:  lng,
		Zoom:       zoom,
		Warnings:   config.ValidateExternal(a.settings),
		ShowCoords: a.settings.ShowCoordinates,
		Theme:      a.settings.Theme,
		AppVersion: a.GetAppVersion(),
	}
}

// CurrentScreen returns the screen that should be visible.
func (a *App) CurrentScreen() string {
	return string(a.screens.Current())
}

// SetLocation records a coordinate chosen by clicking the map. Each
// call replaces the previous selection (the frontend keeps at most one
// marker).
func (a *App) SetLocation(lat, lng float64) error {
	return a.setLocation(lat, lng, geo.ModeBrowsing)
}

// SetDeviceLocation records a coordinate obtained from device
// geolocation in the frontend.
func (a *App) SetDeviceLocation(lat, lng float64) error {
	return a.setLocation(lat, lng, geo.ModeFinding)
}

func (a *App) setLocation(lat, lng float64, mode geo.Mode) error {
	coord := geo.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.selected = &coord
	a.mode = mode
	a.mu.Unlock()

	log.Printf("Location selected (%s): %s", mode, coord)
	a.TrackEvent("location_selected", map[string]interface{}{"mode": string(mode)})
	return nil
}

// GetSelectedLocation returns the current selection, or nil.
func (a *App) GetSelectedLocation() *geo.Coordinate {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == nil {
		return nil
	}
	coord := *a.selected
	return &coord
}

// LoadPreview fetches the satellite image for the selected coordinate
// and moves to the result screen. Fails without a selection.
func (a *App) LoadPreview() (*PreviewResult, error) {
	a.mu.Lock()
	if a.selected == nil {
		a.mu.Unlock()
		return nil, ErrNoLocation
	}
	coord := *a.selected
	mode := a.mode
	a.mu.Unlock()

	data, cacheHit, err := a.fetchPreviewImage(coord)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite image: %w", err)
	}

	if err := a.screens.Show(screen.ScreenResult); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.lastImage = data
	a.mu.Unlock()

	a.TrackEvent("preview_loaded", map[string]interface{}{"cacheHit": cacheHit})

	return &PreviewResult{
		ImageURL: a.mapClient.ImageURL(coord),
		DataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		CacheHit: cacheHit,
		Lat:      coord.Lat,
		Lng:      coord.Lng,
		Mode:     string(mode),
	}, nil
}

// fetchPreviewImage consults the disk cache before hitting the provider.
func (a *App) fetchPreviewImage(coord geo.Coordinate) ([]byte, bool, error) {
	key := cache.Key(coord.Lat, coord.Lng, staticmap.Zoom)
	if a.previewCache != nil {
		if data, ok := a.previewCache.Get(key); ok {
			log.Printf("Preview cache hit for %s", coord)
			return data, true, nil
		}
	}

	data, err := a.mapClient.FetchImage(a.requestContext(), coord)
	if err != nil {
		return nil, false, err
	}

	if a.previewCache != nil {
		if err := a.previewCache.Set(coord.Lat, coord.Lng, staticmap.Zoom, data); err != nil {
			log.Printf("Failed to cache preview: %v", err)
		}
	}

	return data, false, nil
}

// ConfirmUpload sends the previewed image to the processing backend and
// returns the video URL. The screen moves to processing for the
// duration and reverts to result on any failure. Without a selected
// coordinate no network call is made and the screen does not change.
func (a *App) ConfirmUpload() (*UploadResult, error) {
	a.mu.Lock()
	if a.selected == nil {
		a.mu.Unlock()
		return nil, ErrNoLocation
	}
	if a.uploading {
		a.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	if len(a.lastImage) == 0 {
		a.mu.Unlock()
		return nil, ErrNoPreview
	}
	coord := *a.selected
	mode := a.mode
	imageData := a.lastImage
	a.uploading = true
	a.sessionID = session.NewID()
	sessionID := a.sessionID
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.uploading = false
		a.mu.Unlock()
	}()

	if err := a.screens.Show(screen.ScreenProcessing); err != nil {
		return nil, err
	}

	log.Printf("Uploading image for %s (session %s, %s)", coord, sessionID, mode)
	a.TrackEvent("upload_started", map[string]interface{}{
		"session": sessionID,
		"mode":    string(mode),
	})

	result, err := a.backend.ProcessImage(a.requestContext(), processing.Request{
		Image:     imageData,
		Coord:     coord,
		SessionID: sessionID,
	})
	if err != nil {
		// Single generic error path: abort, revert to the pre-upload
		// result screen, surface the error to the user. No retry.
		log.Printf("Upload failed: %v", err)
		a.TrackEvent("upload_failed", map[string]interface{}{"session": sessionID})
		if showErr := a.screens.Show(screen.ScreenResult); showErr != nil {
			log.Printf("Failed to revert screen after upload error: %v", showErr)
		}
		return nil, fmt.Errorf("processing failed: %w", err)
	}

	a.mu.Lock()
	a.lastVideoURL = result.VideoURL
	a.mu.Unlock()

	if err := a.screens.Show(screen.ScreenResults); err != nil {
		return nil, err
	}

	a.TrackEvent("upload_succeeded", map[string]interface{}{"session": sessionID})

	return &UploadResult{
		VideoURL:  result.VideoURL,
		SessionID: sessionID,
		Message:   result.Message,
	}, nil
}

// CurrentVideoURL returns the most recent processing result, or "".
func (a *App) CurrentVideoURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastVideoURL
}

// Reset clears the selection, session identifier and preview, and
// returns to the initial map screen.
func (a *App) Reset() {
	a.mu.Lock()
	a.selected = nil
	a.mode = ""
	a.sessionID = ""
	a.lastImage = nil
	a.lastVideoURL = ""
	a.mu.Unlock()

	a.screens.Reset()
	log.Printf("Application state reset")
}

// requestContext returns the app lifetime context once the UI is up.
func (a *App) requestContext() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}
