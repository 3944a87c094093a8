package processing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"satellite-desktop/internal/geo"
)

func testRequest() Request {
	return Request{
		Image:     []byte("fake png bytes"),
		Coord:     geo.Coordinate{Lat: 30.0444, Lng: 31.2357},
		SessionID: "session_123_456",
	}
}

func TestProcessImageSuccess(t *testing.T) {
	var gotAuth, gotFilename string
	gotFields := map[string]string{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Fatalf("server failed to parse multipart: %v", err)
		}
		for _, field := range []string{"latitude", "longitude", "session_id"} {
			gotFields[field] = r.FormValue(field)
		}
		file, header, err := r.FormFile(ImageFieldName)
		if err != nil {
			t.Fatalf("server missing image part: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		body, _ := io.ReadAll(file)
		if string(body) != "fake png bytes" {
			t.Fatalf("server received wrong image bytes: %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_url": "https://x/video.mp4", "status": "success"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret-token")
	result, err := client.ProcessImage(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ProcessImage returned error: %v", err)
	}

	if result.VideoURL != "https://x/video.mp4" {
		t.Errorf("VideoURL = %q; want https://x/video.mp4", result.VideoURL)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q; want Bearer secret-token", gotAuth)
	}
	if gotFilename != ImageFilename {
		t.Errorf("image filename = %q; want %q", gotFilename, ImageFilename)
	}
	if gotFields["latitude"] != "30.044400" {
		t.Errorf("latitude field = %q; want 30.044400", gotFields["latitude"])
	}
	if gotFields["longitude"] != "31.235700" {
		t.Errorf("longitude field = %q; want 31.235700", gotFields["longitude"])
	}
	if gotFields["session_id"] != "session_123_456" {
		t.Errorf("session_id field = %q; want session_123_456", gotFields["session_id"])
	}
}

func TestProcessImageLegacyKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"videoUrl": "https://x/legacy.mp4"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "tok")
	result, err := client.ProcessImage(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ProcessImage returned error: %v", err)
	}
	if result.VideoURL != "https://x/legacy.mp4" {
		t.Fatalf("VideoURL = %q; want https://x/legacy.mp4", result.VideoURL)
	}
}

func TestProcessImageFailures(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantErr  error // optional sentinel
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`, nil},
		{"unauthorized", http.StatusUnauthorized, `{"error": "Invalid authorization token"}`, nil},
		{"malformed json", http.StatusOK, `{"video_url": `, nil},
		{"missing video url", http.StatusOK, `{"status": "success"}`, ErrNoVideoURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			client := NewClient(ts.URL, "tok")
			_, err := client.ProcessImage(context.Background(), testRequest())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v; want %v", err, tc.wantErr)
			}
		})
	}
}

func TestProcessImageGuards(t *testing.T) {
	// Endpoint that must never be reached
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached backend despite invalid input")
	}))
	defer ts.Close()
	client := NewClient(ts.URL, "tok")

	t.Run("empty image", func(t *testing.T) {
		req := testRequest()
		req.Image = nil
		if _, err := client.ProcessImage(context.Background(), req); err == nil {
			t.Fatal("expected error for empty image")
		}
	})

	t.Run("invalid coordinate", func(t *testing.T) {
		req := testRequest()
		req.Coord = geo.Coordinate{Lat: 120, Lng: 0}
		if _, err := client.ProcessImage(context.Background(), req); err == nil {
			t.Fatal("expected error for invalid coordinate")
		}
	})
}

func TestProcessImageNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // Closed server: connection refused

	client := NewClient(ts.URL, "tok")
	if _, err := client.ProcessImage(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}
