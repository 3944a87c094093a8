package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/icza/mjpeg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LoopOptions controls how a still image is turned into a looping video.
type LoopOptions struct {
	// Output frame dimensions; the source is resized to fit.
	Width  int
	Height int

	// Clip timing
	DurationSec int
	FrameRate   int

	// Output
	OutputFormat string // "mp4", "avi", "gif"
	Quality      int    // 0-100 (for lossy formats)
	UseH264      bool   // Try to use H.264 encoding via FFmpeg

	// Optional coordinate stamp in a corner of every frame
	ShowCoordinateOverlay bool
	OverlayText           string
	OverlayFontSize       float64
	OverlayFontPath       string // Path to a TTF/OTF font file
}

// DefaultLoopOptions matches the display size of the satellite preview.
func DefaultLoopOptions() *LoopOptions {
	return &LoopOptions{
		Width:           512,
		Height:          512,
		DurationSec:     5,
		FrameRate:       30,
		OutputFormat:    "mp4",
		Quality:         90,
		UseH264:         true,
		OverlayFontSize: 24,
	}
}

// Looper renders looping videos from single still images.
type Looper struct {
	options    *LoopOptions
	font       font.Face
	ffmpegPath string
}

// CheckFFmpeg checks if FFmpeg is available on the system PATH or in
// common installation directories.
func CheckFFmpeg() (string, bool) {
	names := []string{"ffmpeg"}
	if runtime.GOOS == "windows" {
		names = []string{"ffmpeg.exe", "ffmpeg"}
	}

	for _, name := range names {
		path, err := exec.LookPath(name)
		if err == nil {
			return path, true
		}
	}

	commonPaths := []string{}
	switch runtime.GOOS {
	case "darwin":
		commonPaths = []string{
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/opt/local/bin/ffmpeg",
		}
	case "linux":
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
		}
	case "windows":
		commonPaths = []string{
			"C:\\ffmpeg\\bin\\ffmpeg.exe",
			"C:\\Program Files\\ffmpeg\\bin\\ffmpeg.exe",
		}
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

// NewLooper creates a looping-video renderer.
func NewLooper(opts *LoopOptions) (*Looper, error) {
	if opts == nil {
		opts = DefaultLoopOptions()
	}

	l := &Looper{options: opts}

	if opts.UseH264 {
		path, found := CheckFFmpeg()
		if found {
			l.ffmpegPath = path
			log.Printf("[VideoLoop] FFmpeg found at: %s", path)
		} else {
			log.Printf("[VideoLoop] FFmpeg not found, will use fallback encoder")
		}
	}

	if opts.ShowCoordinateOverlay && opts.OverlayFontPath != "" {
		if err := l.loadFont(); err != nil {
			log.Printf("[VideoLoop] Warning: failed to load font: %v", err)
			// Continue without the overlay
		}
	}

	return l, nil
}

// HasFFmpeg returns true if FFmpeg is available
func (l *Looper) HasFFmpeg() bool {
	return l.ffmpegPath != ""
}

// loadFont loads the font for the coordinate overlay
func (l *Looper) loadFont() error {
	fontBytes, err := os.ReadFile(l.options.OverlayFontPath)
	if err != nil {
		return fmt.Errorf("failed to read font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    l.options.OverlayFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}

	l.font = face
	return nil
}

// RenderFrame resizes the source image to the output dimensions and
// stamps the coordinate overlay when enabled. Every frame of a loop is
// the same rendered image.
func (l *Looper) RenderFrame(source image.Image) *image.RGBA {
	opts := l.options
	output := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))

	l.resizeAndDraw(output, source)

	if opts.ShowCoordinateOverlay && l.font != nil && opts.OverlayText != "" {
		l.drawOverlay(output)
	}

	return output
}

// resizeAndDraw resizes source to fit the destination using
// nearest-neighbor scaling (fast, good enough for video).
func (l *Looper) resizeAndDraw(dst *image.RGBA, src image.Image) {
	bounds := src.Bounds()
	dstBounds := dst.Bounds()

	scaleX := float64(bounds.Dx()) / float64(dstBounds.Dx())
	scaleY := float64(bounds.Dy()) / float64(dstBounds.Dy())

	for dy := dstBounds.Min.Y; dy < dstBounds.Max.Y; dy++ {
		for dx := dstBounds.Min.X; dx < dstBounds.Max.X; dx++ {
			sx := bounds.Min.X + int(float64(dx-dstBounds.Min.X)*scaleX)
			sy := bounds.Min.Y + int(float64(dy-dstBounds.Min.Y)*scaleY)

			if sx >= bounds.Min.X && sx < bounds.Max.X && sy >= bounds.Min.Y && sy < bounds.Max.Y {
				dst.Set(dx, dy, src.At(sx, sy))
			}
		}
	}
}

// drawOverlay stamps the coordinate text in the bottom-left corner
// with a drop shadow for legibility over bright imagery.
func (l *Looper) drawOverlay(dst *image.RGBA) {
	text := l.options.OverlayText
	padding := 12

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: l.font,
	}

	x := padding
	y := l.options.Height - padding

	shadowDrawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{0, 0, 0, 180}),
		Face: l.font,
		Dot:  fixed.P(x+2, y+2),
	}
	shadowDrawer.DrawString(text)

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
}

// CreateLoop renders a looping video of the still image at outputPath.
// The path's extension may be adjusted to match the effective encoder
// (e.g. .avi when FFmpeg is unavailable); the final path is returned.
func (l *Looper) CreateLoop(source image.Image, outputPath string) (string, error) {
	frame := l.RenderFrame(source)

	switch l.options.OutputFormat {
	case "mp4":
		if l.ffmpegPath != "" && l.options.UseH264 {
			return outputPath, l.exportH264(frame, outputPath)
		}
		aviPath := strings.TrimSuffix(outputPath, ".mp4") + ".avi"
		log.Printf("[VideoLoop] FFmpeg not available, falling back to MJPEG AVI: %s", aviPath)
		return aviPath, l.exportMotionJPEG(frame, aviPath)
	case "avi":
		return outputPath, l.exportMotionJPEG(frame, outputPath)
	case "gif":
		return outputPath, l.exportGIF(frame, outputPath)
	default:
		return "", fmt.Errorf("unsupported output format: %s (supported: mp4, avi, gif)", l.options.OutputFormat)
	}
}

// exportH264 creates an MP4 file with H.264 codec using FFmpeg. A
// single frame is written and FFmpeg's loop input repeats it for the
// clip duration.
func (l *Looper) exportH264(frame *image.RGBA, outputPath string) error {
	tempDir, err := os.MkdirTemp("", "satellite_loop_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	framePath := filepath.Join(tempDir, "frame.png")
	f, err := os.Create(framePath)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	f.Close()

	// Map quality 0-100 to CRF 51-0
	crf := 51 - (l.options.Quality * 51 / 100)
	if crf < 0 {
		crf = 0
	}
	if crf > 51 {
		crf = 51
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", l.options.FrameRate),
		"-i", framePath,
		"-t", fmt.Sprintf("%d", l.options.DurationSec),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart", // Enable streaming
		outputPath,
	}

	log.Printf("[VideoLoop] Running FFmpeg: %s %v", l.ffmpegPath, args)

	cmd := exec.Command(l.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("FFmpeg encoding failed: %w\nStderr: %s", err, stderr.String())
		}
	case <-time.After(2 * time.Minute):
		cmd.Process.Kill()
		return fmt.Errorf("FFmpeg encoding timed out after 2 minutes")
	}

	if info, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("output file not created: %w", err)
	} else if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}

	log.Printf("[VideoLoop] H.264 loop exported: %s", outputPath)
	return nil
}

// exportMotionJPEG creates an AVI file with Motion JPEG codec
// (compatible, plays everywhere).
func (l *Looper) exportMotionJPEG(frame *image.RGBA, outputPath string) error {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".avi") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".avi"
	}

	writer, err := mjpeg.New(outputPath, int32(l.options.Width), int32(l.options.Height), int32(l.options.FrameRate))
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}
	defer writer.Close()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: l.options.Quality}); err != nil {
		return fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}

	totalFrames := l.options.DurationSec * l.options.FrameRate
	for i := 0; i < totalFrames; i++ {
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}

	log.Printf("[VideoLoop] MJPEG loop exported: %s (%d frames)", outputPath, totalFrames)
	return nil
}

// exportGIF creates a single-frame GIF that loops forever.
func (l *Looper) exportGIF(frame *image.RGBA, outputPath string) error {
	bounds := frame.Bounds()
	palettedImg := image.NewPaletted(bounds, palette.Plan9)

	// Use Floyd-Steinberg dithering for better quality
	draw.FloydSteinberg.Draw(palettedImg, bounds, frame, image.Point{})

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	return gif.EncodeAll(f, &gif.GIF{
		Image: []*image.Paletted{palettedImg},
		Delay: []int{l.options.DurationSec * 100},
		Config: image.Config{
			Width:  l.options.Width,
			Height: l.options.Height,
		},
	})
}

// Close releases resources
func (l *Looper) Close() error {
	if l.font != nil {
		return l.font.Close()
	}
	return nil
}
