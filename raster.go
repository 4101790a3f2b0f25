package maskmix

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Raster is the pixel buffer passed between pipeline stages. Samples are
// non-premultiplied 8-bit RGBA, the buffer origin is always (0, 0) and
// len(Pix) == 4*W*H.
type Raster = image.NRGBA

// NewRaster allocates a zeroed w×h raster.
func NewRaster(w, h int) *Raster {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// ToRaster copies any decoded image into a fresh Raster anchored at the
// origin. Gray masks expand to R=G=B=Y with opaque alpha.
func ToRaster(img image.Image) *Raster {
	b := img.Bounds()
	dst := NewRaster(b.Dx(), b.Dy())
	if src, ok := img.(*image.NRGBA); ok {
		for y := range b.Dy() {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*b.Dx()], src.Pix[si:si+4*b.Dx()])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// CloneRaster returns a deep copy of r with a tightly packed stride.
func CloneRaster(r *Raster) *Raster {
	return ToRaster(r)
}

func sameSize(a, b *Raster) bool {
	return a.Rect.Dx() == b.Rect.Dx() && a.Rect.Dy() == b.Rect.Dy()
}

// clampByte rounds v to the nearest 8-bit channel value. NaN maps to 0.
func clampByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(max(0, min(255, math.Round(v))))
}
