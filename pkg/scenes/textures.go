package scenes

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// toNRGBA converts a color in [0, 1] to an 8-bit sRGB-encoded texel
func toNRGBA(c core.Vec3, alpha float64) color.NRGBA {
	q := func(x float64) uint8 { return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255)) }
	return color.NRGBA{R: q(c.X), G: q(c.Y), B: q(c.Z), A: q(alpha)}
}

// NewCheckerboardImage creates a checkerboard pattern
func NewCheckerboardImage(width, height, checkSize int, color1, color2 core.Vec3) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color2
			if (x/checkSize+y/checkSize)%2 == 0 {
				c = color1
			}
			img.SetNRGBA(x, y, toNRGBA(c, 1))
		}
	}
	return img
}

// NewUVDebugImage creates a texture showing UV coordinates as colors.
// U maps to red, V maps to green.
func NewUVDebugImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u := float64(x) / float64(max(width-1, 1))
			v := float64(y) / float64(max(height-1, 1))
			img.SetNRGBA(x, y, toNRGBA(core.NewVec3(u, v, 0), 1))
		}
	}
	return img
}

// NewGradientImage creates a vertical gradient from color1 (top) to color2 (bottom)
func NewGradientImage(width, height int, color1, color2 core.Vec3) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		t := float64(y) / float64(max(height-1, 1))
		c := toNRGBA(color1.Lerp(color2, t), 1)
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// NewCutoutImage creates a white texture whose alpha is zero outside a
// centered disc, for alpha-masked foliage style cards
func NewCutoutImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			alpha := 0.0
			if dx*dx+dy*dy < center*center {
				alpha = 1
			}
			img.SetNRGBA(x, y, toNRGBA(core.NewVec3(1, 1, 1), alpha))
		}
	}
	return img
}
