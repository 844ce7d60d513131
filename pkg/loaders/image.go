package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	"github.com/df07/go-realtime-restir/pkg/scene"
	"github.com/gogpu/gputypes"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// TextureUsage is the usage given to loaded textures
const TextureUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst

// LoadImage decodes a PNG, JPEG, BMP, TIFF or WebP file as a static texture.
// The pixels are treated as sRGB.
func LoadImage(filename string) (scene.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return scene.Image{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Decode image (auto-detects the format from the file header)
	img, format, err := image.Decode(file)
	if err != nil {
		return scene.Image{}, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}

	bounds := img.Bounds()
	logger.Debugf("decoded %s image %s (%dx%d)", format, filename, bounds.Dx(), bounds.Dy())

	return scene.Image{Data: img, Usage: TextureUsage}, nil
}
