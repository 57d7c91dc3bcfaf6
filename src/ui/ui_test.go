package ui

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"golang.org/x/image/bmp"
)

func TestToScreen(t *testing.T) {
	tests := []struct {
		name   string
		pos    fyne.Position
		size   fyne.Size
		bounds image.Rectangle
		want   image.Point
	}{
		{"identity", fyne.NewPos(100, 100), fyne.NewSize(1920, 1080), image.Rect(0, 0, 1920, 1080), image.Pt(100, 100)},
		{"hidpi scale", fyne.NewPos(100, 50), fyne.NewSize(1280, 720), image.Rect(0, 0, 2560, 1440), image.Pt(200, 100)},
		{"offset display", fyne.NewPos(10, 10), fyne.NewSize(1920, 1080), image.Rect(-1920, 0, 0, 1080), image.Pt(-1910, 10)},
		{"clamped", fyne.NewPos(5000, -20), fyne.NewSize(1920, 1080), image.Rect(0, 0, 1920, 1080), image.Pt(1920, 0)},
		{"zero size", fyne.NewPos(5, 5), fyne.NewSize(0, 0), image.Rect(30, 40, 100, 100), image.Pt(30, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toScreen(tt.pos, tt.size, tt.bounds); got != tt.want {
				t.Errorf("toScreen = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMenuLabel(t *testing.T) {
	if got := menuLabel("x^2 +\n  y^2"); got != "x^2 + y^2" {
		t.Errorf("Expected collapsed whitespace, got %q", got)
	}
	long := strings.Repeat("\\alpha", 20)
	got := menuLabel(long)
	if len([]rune(got)) != menuLabelMax || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected truncated label of %d runes, got %q", menuLabelMax, got)
	}
}

func TestUseLabelsSkipRaw(t *testing.T) {
	for _, l := range useLabels() {
		if l == "Raw LaTeX" {
			t.Error("Expected raw mode to be served by the Use button, not the menu")
		}
	}
	if len(useLabels()) != 4 {
		t.Errorf("Expected 4 wrapped modes, got %d", len(useLabels()))
	}
}

func TestLoadImageBMP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "formula.bmp")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := loadImage(path)
	if err != nil {
		t.Fatalf("loadImage failed: %v", err)
	}
	if got.Bounds().Dx() != 3 || got.Bounds().Dy() != 2 {
		t.Errorf("Unexpected bounds %v", got.Bounds())
	}

	if _, err := loadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}
