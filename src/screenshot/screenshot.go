package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"sync"

	"github.com/kbinani/screenshot"
)

const tempPattern = "latex-ocr-*.png"

// VirtualScreen captures the union of all active displays. The returned image bounds
// are the absolute virtual-screen coordinates, so they may start at negative values.
func VirtualScreen() (*image.RGBA, error) {
	bounds, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	if img.Bounds().Min != bounds.Min {
		img.Rect = img.Rect.Add(bounds.Min.Sub(img.Rect.Min))
	}
	return img, nil
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// PrimaryBounds returns the bounds of the primary display, or an empty rectangle
// when no display is active.
func PrimaryBounds() image.Rectangle {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}
	}
	return screenshot.GetDisplayBounds(0)
}

// CaptureToTemp captures rect in absolute screen coordinates and writes it to a new
// temporary PNG file. The caller owns the returned path.
func CaptureToTemp(rect image.Rectangle) (string, error) {
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return "", fmt.Errorf("invalid region dimensions: width=%d, height=%d", rect.Dx(), rect.Dy())
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return "", fmt.Errorf("failed to capture region: %w", err)
	}
	return WriteTemp(img)
}

// WriteTemp encodes img as PNG into a uniquely named file in the temp directory.
func WriteTemp(img image.Image) (string, error) {
	f, err := os.CreateTemp("", tempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Name(), nil
}

// Scratch owns the most recent capture file. Each path is removed at most once.
type Scratch struct {
	mu   sync.Mutex
	path string
}

// Current returns the owned path, or "" if none.
func (s *Scratch) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Replace takes ownership of path and removes the previously owned file.
func (s *Scratch) Replace(path string) {
	s.mu.Lock()
	prev := s.path
	s.path = path
	s.mu.Unlock()
	if prev != "" && prev != path {
		remove(prev)
	}
}

// Release removes the owned file.
func (s *Scratch) Release() {
	s.mu.Lock()
	prev := s.path
	s.path = ""
	s.mu.Unlock()
	if prev != "" {
		remove(prev)
	}
}

func remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Screenshot: failed to remove %s: %v", path, err)
		return
	}
	log.Printf("Screenshot: removed %s", path)
}
