package config

import (
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.MapsAPIKey != PlaceholderAPIKey {
		t.Errorf("MapsAPIKey = %q; want placeholder", s.MapsAPIKey)
	}
	if s.BackendURL == "" {
		t.Error("BackendURL should have a default")
	}
	if s.CacheMaxSizeMB <= 0 || s.CacheTTLDays <= 0 {
		t.Error("cache defaults must be positive")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MAPS_API_KEY", "env-key")
	t.Setenv("BACKEND_URL", "https://backend.example/api/process-image")
	t.Setenv("AUTHORIZATION_TOKEN", "env-token")

	s := DefaultSettings()
	ApplyEnvOverrides(s)

	if s.MapsAPIKey != "env-key" {
		t.Errorf("MapsAPIKey = %q; want env-key", s.MapsAPIKey)
	}
	if s.BackendURL != "https://backend.example/api/process-image" {
		t.Errorf("BackendURL = %q; want env value", s.BackendURL)
	}
	if s.AuthToken != "env-token" {
		t.Errorf("AuthToken = %q; want env-token", s.AuthToken)
	}
}

func TestApplyEnvOverridesLeavesUnsetAlone(t *testing.T) {
	t.Setenv("MAPS_API_KEY", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("AUTHORIZATION_TOKEN", "")

	s := DefaultSettings()
	s.MapsAPIKey = "configured"
	ApplyEnvOverrides(s)
	if s.MapsAPIKey != "configured" {
		t.Fatalf("MapsAPIKey = %q; want configured", s.MapsAPIKey)
	}
}

func TestValidateExternal(t *testing.T) {
	cases := []struct {
		name         string
		mutate       func(*UserSettings)
		wantWarnings int
	}{
		{"all placeholders", func(s *UserSettings) {}, 2},
		{"fully configured", func(s *UserSettings) {
			s.MapsAPIKey = "real-key"
			s.AuthToken = "real-token"
		}, 0},
		{"missing backend url", func(s *UserSettings) {
			s.MapsAPIKey = "real-key"
			s.AuthToken = "real-token"
			s.BackendURL = ""
		}, 1},
		{"empty key counts like placeholder", func(s *UserSettings) {
			s.MapsAPIKey = ""
			s.AuthToken = "real-token"
		}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(s)
			if got := ValidateExternal(s); len(got) != tc.wantWarnings {
				t.Fatalf("ValidateExternal = %v; want %d warnings", got, tc.wantWarnings)
			}
		})
	}
}
