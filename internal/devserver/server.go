// Package devserver is a development stand-in for the satellite image
// processing backend. It accepts an uploaded satellite image and
// returns a URL to a short looping video generated from that image. A
// real deployment replaces this with the production video pipeline.
package devserver

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"satellite-desktop/internal/geo"
	"satellite-desktop/internal/video"
)

// maxUploadBytes caps the multipart form size for one upload.
const maxUploadBytes = 32 << 20

// Server implements the processing backend contract.
type Server struct {
	token    string
	videoDir string
	looper   *video.Looper
	baseURL  string
}

// NewServer creates a dev processing server. Generated videos are kept
// under videoDir until the process exits.
func NewServer(token, videoDir string, looper *video.Looper) *Server {
	return &Server{
		token:    token,
		videoDir: videoDir,
		looper:   looper,
	}
}

// BaseURL returns the address the server is reachable at, once started.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/process-image", s.handleProcessImage)
	mux.HandleFunc("/video/", s.handleServeVideo)
	mux.HandleFunc("/test-video/", s.handleTestVideo)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleInfo)
	return corsMiddleware(mux)
}

// Start listens on addr (e.g. ":3000"; an empty port picks a random
// free one) and serves in the background.
func (s *Server) Start(addr string) error {
	if err := os.MkdirAll(s.videoDir, 0755); err != nil {
		return fmt.Errorf("failed to create video directory: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start dev server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Printf("[DevServer] listening on %s", s.baseURL)

	server := &http.Server{Handler: s.Handler()}

	go func() {
		if err := server.Serve(listener); err != nil {
			log.Printf("[DevServer] stopped: %v", err)
		}
	}()

	return nil
}

// corsMiddleware allows the embedded frontend (wails:// origin on
// macOS/Linux) to call the dev server directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// checkAuthorization validates the bearer token header.
func (s *Server) checkAuthorization(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return fmt.Errorf("invalid Authorization header format")
	}
	if strings.TrimPrefix(header, "Bearer ") != s.token {
		return fmt.Errorf("invalid authorization token")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleProcessImage accepts the multipart upload, validates it, and
// responds with the URL of a freshly generated looping video.
func (s *Server) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	if err := s.checkAuthorization(r); err != nil {
		log.Printf("[DevServer] unauthorized request: %v", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart parse error")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	latStr := r.FormValue("latitude")
	lngStr := r.FormValue("longitude")
	sessionID := r.FormValue("session_id")
	if latStr == "" || lngStr == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}
	coord := geo.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, format, err := image.Decode(file)
	if err != nil {
		log.Printf("[DevServer] invalid image file: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid image file")
		return
	}
	log.Printf("[DevServer] session %s: %s image %dx%d at %s",
		sessionID, format, img.Bounds().Dx(), img.Bounds().Dy(), coord)

	videoID := uuid.New().String()
	outputPath := filepath.Join(s.videoDir, "satellite_"+videoID+".mp4")

	finalPath, err := s.looper.CreateLoop(img, outputPath)
	if err != nil {
		log.Printf("[DevServer] video generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create video from image")
		return
	}

	videoURL := fmt.Sprintf("%s/video/%s%s", s.requestBase(r), videoID, filepath.Ext(finalPath))
	log.Printf("[DevServer] session %s: video ready at %s", sessionID, videoURL)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_url":  videoURL,
		"status":     "success",
		"session_id": sessionID,
		"coordinates": map[string]float64{
			"latitude":  coord.Lat,
			"longitude": coord.Lng,
		},
		"message": "Image processed successfully (development mode - converted to looping video)",
	})
}

// requestBase reconstructs the externally visible base URL.
func (s *Server) requestBase(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// videoPath maps a /video/{id}.{ext} request to a file on disk,
// rejecting anything that escapes the video directory.
func (s *Server) videoPath(requestPath, prefix string) (string, error) {
	name := strings.TrimPrefix(requestPath, prefix)
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("invalid video id")
	}
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	return filepath.Join(s.videoDir, "satellite_"+name), nil
}

// handleServeVideo streams a generated video file.
func (s *Server) handleServeVideo(w http.ResponseWriter, r *http.Request) {
	path, err := s.videoPath(r.URL.Path, "/video/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	if info.Size() == 0 {
		writeError(w, http.StatusInternalServerError, "Video file is empty")
		return
	}

	switch filepath.Ext(path) {
	case ".avi":
		w.Header().Set("Content-Type", "video/x-msvideo")
	case ".gif":
		w.Header().Set("Content-Type", "image/gif")
	default:
		w.Header().Set("Content-Type", "video/mp4")
	}
	w.Header().Set("Cache-Control", "no-cache")

	// ServeFile handles Range requests for video seeking
	http.ServeFile(w, r, path)
}

// handleTestVideo reports file info for a generated video, mirroring
// the connectivity test the frontend exposes.
func (s *Server) handleTestVideo(w http.ResponseWriter, r *http.Request) {
	path, err := s.videoPath(r.URL.Path, "/test-video/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := map[string]interface{}{
		"video_path":  path,
		"file_exists": false,
		"file_size":   int64(0),
	}
	if stat, err := os.Stat(path); err == nil {
		info["file_exists"] = true
		info["file_size"] = stat.Size()
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                 "healthy",
		"message":                "Development server is running",
		"authorization_required": true,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Satellite Image Processing Development Server",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/api/process-image": "POST - Process images",
			"/video/{id}":        "GET - Serve generated videos",
			"/test-video/{id}":   "GET - Video file diagnostics",
			"/health":            "GET - Health check",
			"/":                  "GET - This info page",
		},
		"authorization_required": true,
		"note":                   "This is a development server. It converts satellite images to short looping videos.",
	})
}
