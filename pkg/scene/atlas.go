package scene

import (
	"image"
	"math"

	"github.com/df07/go-realtime-restir/pkg/core"
	xdraw "golang.org/x/image/draw"
)

// atlasColumns is the number of slots per atlas row
const atlasColumns = 8

// Atlas packs every scene texture into equally sized slots of one image.
// Textures are resampled to the slot size on upload.
type Atlas struct {
	slotSize int
	slots    int
	pixels   *image.NRGBA
}

// NewAtlas allocates an atlas with room for count slots
func NewAtlas(slotSize, count int) *Atlas {
	cols := min(count, atlasColumns)
	rows := (count + atlasColumns - 1) / atlasColumns
	return &Atlas{
		slotSize: slotSize,
		slots:    count,
		pixels:   image.NewNRGBA(image.Rect(0, 0, cols*slotSize, rows*slotSize)),
	}
}

// Slots returns the number of slots in the atlas
func (a *Atlas) Slots() int {
	return a.slots
}

// SlotRect returns the pixel rectangle of a slot
func (a *Atlas) SlotRect(slot int) image.Rectangle {
	x := (slot % atlasColumns) * a.slotSize
	y := (slot / atlasColumns) * a.slotSize
	return image.Rect(x, y, x+a.slotSize, y+a.slotSize)
}

// Upload resamples src into the slot
func (a *Atlas) Upload(slot int, src image.Image) {
	xdraw.BiLinear.Scale(a.pixels, a.SlotRect(slot), src, src.Bounds(), xdraw.Src, nil)
}

// Sample returns the texel under uv in linear color with straight alpha.
// UVs wrap; (0, 0) is the top-left corner of the texture.
func (a *Atlas) Sample(slot int, uv core.Vec2) core.Vec4 {
	if slot < 0 || slot >= a.slots {
		return core.NewVec4(1, 1, 1, 1)
	}

	u := uv.X - math.Floor(uv.X)
	v := uv.Y - math.Floor(uv.Y)
	if math.IsNaN(u) || math.IsNaN(v) {
		u, v = 0, 0
	}

	rect := a.SlotRect(slot)
	x := min(int(u*float64(a.slotSize)), a.slotSize-1)
	y := min(int(v*float64(a.slotSize)), a.slotSize-1)

	c := a.pixels.NRGBAAt(rect.Min.X+x, rect.Min.Y+y)
	return core.NewVec4(srgbToLinear[c.R], srgbToLinear[c.G], srgbToLinear[c.B], float64(c.A)/255.0)
}

// srgbToLinear decodes 8-bit sRGB values
var srgbToLinear = func() [256]float64 {
	var table [256]float64
	for i := range table {
		c := float64(i) / 255.0
		if c <= 0.04045 {
			table[i] = c / 12.92
		} else {
			table[i] = math.Pow((c+0.055)/1.055, 2.4)
		}
	}
	return table
}()
