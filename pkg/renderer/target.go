package renderer

import (
	"image"
	"image/png"
	"os"

	"github.com/gogpu/gputypes"
)

// Target is the surface a camera draws into. Pixels are four bytes each, in
// the channel order given by Format, rows Stride bytes apart.
type Target interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	Pixels() []byte
	Stride() int
}

// supportedFormat reports whether the drawing pass can write the format
func supportedFormat(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatRGBA8Unorm || format == gputypes.TextureFormatBGRA8Unorm
}

// Pixmap is an in-memory Target
type Pixmap struct {
	width  int
	height int
	format gputypes.TextureFormat
	data   []uint8
}

// NewPixmap creates a cleared pixmap with the given dimensions and format
func NewPixmap(width, height int, format gputypes.TextureFormat) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		format: format,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap
func (p *Pixmap) Width() int { return p.width }

// Height returns the height of the pixmap
func (p *Pixmap) Height() int { return p.height }

// Format returns the channel layout of the pixel data
func (p *Pixmap) Format() gputypes.TextureFormat { return p.format }

// Pixels returns the raw pixel data
func (p *Pixmap) Pixels() []uint8 { return p.data }

// Stride returns the number of bytes per row
func (p *Pixmap) Stride() int { return p.width * 4 }

// ToImage converts the pixmap to an image.RGBA, swizzling BGRA data
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	if p.format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img
}

// SavePNG saves the pixmap to a PNG file
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return png.Encode(f, p.ToImage())
}
