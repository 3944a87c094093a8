package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Placeholder values shipped in fresh settings files. The app warns
// until the user replaces them.
const (
	PlaceholderAPIKey = "YOUR_MAPS_API_KEY"
	PlaceholderToken  = "YOUR_AUTHORIZATION_TOKEN"
)

// UserSettings represents persistent user preferences
type UserSettings struct {
	// External service settings
	MapsAPIKey string `json:"mapsApiKey"`
	BackendURL string `json:"backendUrl"`
	AuthToken  string `json:"authToken"`

	// Cache settings
	CacheMaxSizeMB int `json:"cacheMaxSizeMB"`
	CacheTTLDays   int `json:"cacheTTLDays"`

	// Default map settings
	DefaultCenterLat float64 `json:"defaultCenterLat"`
	DefaultCenterLng float64 `json:"defaultCenterLng"`
	DefaultZoom      int     `json:"defaultZoom"`

	// Last map position, restored on next start
	LastCenterLat float64 `json:"lastCenterLat,omitempty"`
	LastCenterLng float64 `json:"lastCenterLng,omitempty"`
	LastZoom      float64 `json:"lastZoom,omitempty"`

	// UI preferences
	Theme           string `json:"theme"` // "light", "dark", "system"
	ShowCoordinates bool   `json:"showCoordinates"`
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	return &UserSettings{
		MapsAPIKey:       PlaceholderAPIKey,
		BackendURL:       "http://localhost:3000/api/process-image",
		AuthToken:        PlaceholderToken,
		CacheMaxSizeMB:   100,
		CacheTTLDays:     30,
		DefaultCenterLat: 30.0444, // Cairo, Egypt
		DefaultCenterLng: 31.2357,
		DefaultZoom:      15,
		Theme:            "system",
		ShowCoordinates:  true,
	}
}

// GetSettingsPath returns the OS-specific settings file path
func GetSettingsPath() string {
	homeDir, _ := os.UserHomeDir()

	baseDir := filepath.Join(homeDir, ".satellite-desktop", "settings")
	os.MkdirAll(baseDir, 0755)

	return filepath.Join(baseDir, "settings.json")
}

// LoadSettings loads user settings from disk
func LoadSettings() (*UserSettings, error) {
	settingsPath := GetSettingsPath()

	// If file doesn't exist, return defaults
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// Merge with defaults for any missing fields
	defaults := DefaultSettings()
	if settings.MapsAPIKey == "" {
		settings.MapsAPIKey = defaults.MapsAPIKey
	}
	if settings.BackendURL == "" {
		settings.BackendURL = defaults.BackendURL
	}
	if settings.AuthToken == "" {
		settings.AuthToken = defaults.AuthToken
	}
	if settings.CacheMaxSizeMB == 0 {
		settings.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if settings.CacheTTLDays == 0 {
		settings.CacheTTLDays = defaults.CacheTTLDays
	}
	if settings.DefaultCenterLat == 0 && settings.DefaultCenterLng == 0 {
		settings.DefaultCenterLat = defaults.DefaultCenterLat
		settings.DefaultCenterLng = defaults.DefaultCenterLng
	}
	if settings.DefaultZoom == 0 {
		settings.DefaultZoom = defaults.DefaultZoom
	}
	if settings.Theme == "" {
		settings.Theme = defaults.Theme
	}

	return &settings, nil
}

// SaveSettings saves user settings to disk
func SaveSettings(settings *UserSettings) error {
	settingsPath := GetSettingsPath()

	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides replaces settings from environment variables when
// set. Variable names match the backend's dev server conventions.
// A .env file loaded at startup feeds these (github.com/joho/godotenv).
func ApplyEnvOverrides(settings *UserSettings) {
	if v := os.Getenv("MAPS_API_KEY"); v != "" {
		settings.MapsAPIKey = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		settings.BackendURL = v
	}
	if v := os.Getenv("AUTHORIZATION_TOKEN"); v != "" {
		settings.AuthToken = v
	}
}

// ValidateExternal reports configuration problems with the three
// external settings. Placeholder values produce warnings, not errors;
// the app still starts and the user is alerted in the UI.
func ValidateExternal(settings *UserSettings) []string {
	var warnings []string
	if settings.MapsAPIKey == "" || settings.MapsAPIKey == PlaceholderAPIKey {
		warnings = append(warnings, "mapping API key is not configured")
	}
	if settings.AuthToken == "" || settings.AuthToken == PlaceholderToken {
		warnings = append(warnings, "backend authorization token is not configured")
	}
	if settings.BackendURL == "" {
		warnings = append(warnings, "backend endpoint URL is not configured")
	}
	return warnings
}
