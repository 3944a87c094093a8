package main

import (
	"fmt"
	"log"

	"satellite-desktop/internal/config"
	"satellite-desktop/internal/processing"
	"satellite-desktop/internal/staticmap"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.UserSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and updates app state
func (a *App) SaveSettings(settings *config.UserSettings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if settings.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	// Update app state and rebuild clients that captured old values
	a.settings = settings
	a.mapClient = staticmap.NewClient("", settings.MapsAPIKey)
	a.backend = processing.NewClient(settings.BackendURL, settings.AuthToken)

	// Note: Cache settings require app restart to take effect
	log.Printf("Settings saved. Cache settings will apply on next restart.")

	return nil
}

// GetSettingsPath returns the OS-specific settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// SaveMapPosition saves the current map position for session persistence
// Called on app close or periodically to remember the last viewed location
func (a *App) SaveMapPosition(lat, lng, zoom float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.LastCenterLat = lat
	a.settings.LastCenterLng = lng
	a.settings.LastZoom = zoom

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Saved map position: lat=%.6f, lng=%.6f, zoom=%.1f", lat, lng, zoom)
	return nil
}

// ValidateConfiguration reports placeholder or missing external
// settings as user-facing warnings.
func (a *App) ValidateConfiguration() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return config.ValidateExternal(a.settings)
}
