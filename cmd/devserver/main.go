// Standalone development backend. Runs the same stand-in processing
// server the desktop app can embed, for testing the upload flow from a
// browser or curl:
//
//	AUTHORIZATION_TOKEN=dev_token_123 go run ./cmd/devserver
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"satellite-desktop/internal/devserver"
	"satellite-desktop/internal/video"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded overrides from .env")
	}

	token := getEnv("AUTHORIZATION_TOKEN", "dev_token_123")
	port := getEnv("PORT", "3000")
	videoDir := getEnv("VIDEO_DIR", filepath.Join(os.TempDir(), "satellite-videos"))

	looper, err := video.NewLooper(video.DefaultLoopOptions())
	if err != nil {
		log.Fatalf("failed to initialize video encoder: %v", err)
	}
	defer looper.Close()

	server := devserver.NewServer(token, videoDir, looper)
	if err := server.Start("0.0.0.0:" + port); err != nil {
		log.Fatalf("failed to start dev server: %v", err)
	}

	log.Printf("Satellite processing dev server running on %s (auth token %q)", server.BaseURL(), token)
	select {}
}
