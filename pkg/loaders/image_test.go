package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
)

// TestLoadImage creates a test PNG and verifies loading
func TestLoadImage(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.png")

	// Create a simple 2x2 test image
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(0, 1, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	img.Set(1, 1, color.RGBA{R: 0, G: 0, B: 255, A: 255})

	f, err := os.Create(testFile)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	f.Close()

	loaded, err := LoadImage(testFile)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}

	if loaded.Dynamic {
		t.Error("Expected a static image")
	}
	if loaded.Usage&gputypes.TextureUsageTextureBinding == 0 {
		t.Errorf("Expected texture binding usage, got %v", loaded.Usage)
	}

	bounds := loaded.Data.Bounds()
	if bounds.Dx() != 2 || bounds.Dy() != 2 {
		t.Fatalf("Expected 2x2 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	tests := []struct {
		name    string
		x, y    int
		r, g, b uint32
	}{
		{"Top-left (white)", 0, 0, 0xffff, 0xffff, 0xffff},
		{"Top-right (red)", 1, 0, 0xffff, 0, 0},
		{"Bottom-left (green)", 0, 1, 0, 0xffff, 0},
		{"Bottom-right (blue)", 1, 1, 0, 0, 0xffff},
	}
	for _, tt := range tests {
		r, g, b, _ := loaded.Data.At(bounds.Min.X+tt.x, bounds.Min.Y+tt.y).RGBA()
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%s: expected (%d,%d,%d), got (%d,%d,%d)", tt.name, tt.r, tt.g, tt.b, r, g, b)
		}
	}
}

// TestLoadImageNotFound verifies error handling for missing files
func TestLoadImageNotFound(t *testing.T) {
	_, err := LoadImage("nonexistent.png")
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestLoadImageGarbage(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(testFile, []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, err := LoadImage(testFile); err == nil {
		t.Error("Expected decode error, got nil")
	}
}
