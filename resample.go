package maskmix

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/image/draw"
)

// Scale is a multiplier applied to both width and height.
type Scale float64

// MaxPixels caps the pixel count of a resampled image (1 GiB of RGBA).
const MaxPixels = 1 << 28

func (s Scale) Validate() error {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidScale, f)
	}
	return nil
}

// String returns the shortest decimal form of the factor, e.g. "0.5".
// Distinct factors always produce distinct strings.
func (s Scale) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// Size returns round(w*s) × round(h*s), at least 1×1. Targets wider or
// taller than math.MaxInt32, or above MaxPixels in total, are rejected.
func (s Scale) Size(w, h int) (int, int, error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}
	fw := max(1, math.Round(float64(w)*float64(s)))
	fh := max(1, math.Round(float64(h)*float64(s)))
	if fw > math.MaxInt32 || fh > math.MaxInt32 || fw*fh > MaxPixels {
		return 0, 0, fmt.Errorf("%w: scale %s turns %dx%d into %.0fx%.0f, above the %d pixel limit",
			ErrInvalidScale, s, w, h, fw, fh, MaxPixels)
	}
	return int(fw), int(fh), nil
}

// Resample returns src scaled by s using filter f. src is left untouched.
func Resample(src *Raster, s Scale, f Filter) (*Raster, error) {
	dw, dh, err := s.Size(src.Rect.Dx(), src.Rect.Dy())
	if err != nil {
		return nil, err
	}
	return ResampleTo(src, dw, dh, f)
}

// ResampleTo returns src resized to exactly dw×dh. Equal dimensions yield
// an exact copy regardless of the filter.
func ResampleTo(src *Raster, dw, dh int, f Filter) (*Raster, error) {
	if dw <= 0 || dh <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", ErrInvalidScale, dw, dh)
	}
	if float64(dw)*float64(dh) > MaxPixels {
		return nil, fmt.Errorf("%w: target size %dx%d is above the %d pixel limit", ErrInvalidScale, dw, dh, MaxPixels)
	}
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if sw == 0 || sh == 0 {
		return NewRaster(dw, dh), nil
	}
	if sw == dw && sh == dh {
		return CloneRaster(src), nil
	}
	k := f.kernel()
	if k == nil {
		if f != Nearest {
			return nil, fmt.Errorf("%w: %v", ErrUnknownFilter, f)
		}
		return resampleNearest(src, dw, dh), nil
	}
	return resampleKernel(src, dw, dh, k), nil
}

func resampleNearest(src *Raster, dw, dh int) *Raster {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dst := NewRaster(dw, dh)
	xs := make([]int, dw)
	for x := range dw {
		xs[x] = min(sw-1, (2*x+1)*sw/(2*dw))
	}
	for y := range dh {
		sy := min(sh-1, (2*y+1)*sh/(2*dh))
		srow := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+sy):]
		drow := dst.Pix[y*dst.Stride:]
		for x, sx := range xs {
			copy(drow[4*x:4*x+4], srow[4*sx:4*sx+4])
		}
	}
	return dst
}

// contribution lists the source taps of one destination pixel along an axis.
type contribution struct {
	first   int
	weights []float64
}

// axisContributions computes normalized kernel taps mapping n source
// samples onto m destination samples. When shrinking, the kernel is
// stretched by n/m so every source sample contributes.
func axisContributions(n, m int, k *draw.Kernel) []contribution {
	ratio := float64(n) / float64(m)
	scale := max(1, ratio)
	support := k.Support * scale
	out := make([]contribution, m)
	for d := range m {
		center := (float64(d) + 0.5) * ratio
		first := max(0, int(math.Floor(center-support)))
		last := min(n, int(math.Ceil(center+support)))
		ws := make([]float64, last-first)
		sum := 0.0
		for i := range ws {
			t := math.Abs((float64(first+i) + 0.5 - center) / scale)
			if t < k.Support {
				ws[i] = k.At(t)
				sum += ws[i]
			}
		}
		if sum == 0 {
			// Degenerate window: fall back to the nearest sample.
			nearest := min(n-1, max(0, int(center)))
			out[d] = contribution{first: nearest, weights: []float64{1}}
			continue
		}
		for i := range ws {
			ws[i] /= sum
		}
		out[d] = contribution{first: first, weights: ws}
	}
	return out
}

// resampleKernel runs a separable convolution, horizontal pass first, on
// alpha-premultiplied samples so transparent pixels do not bleed color.
func resampleKernel(src *Raster, dw, dh int, k *draw.Kernel) *Raster {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	xc := axisContributions(sw, dw, k)
	yc := axisContributions(sh, dh, k)

	// Horizontal pass: sh rows of dw premultiplied RGBA samples.
	tmp := make([]float64, sh*dw*4)
	for y := range sh {
		srow := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		trow := tmp[y*dw*4 : (y+1)*dw*4]
		for x, c := range xc {
			var r, g, b, a float64
			for i, w := range c.weights {
				p := srow[4*(c.first+i) : 4*(c.first+i)+4]
				pa := float64(p[3]) / 255
				r += w * float64(p[0]) * pa
				g += w * float64(p[1]) * pa
				b += w * float64(p[2]) * pa
				a += w * float64(p[3])
			}
			trow[4*x], trow[4*x+1], trow[4*x+2], trow[4*x+3] = r, g, b, a
		}
	}

	// Vertical pass and un-premultiply.
	dst := NewRaster(dw, dh)
	for y, c := range yc {
		drow := dst.Pix[y*dst.Stride:]
		for x := range dw {
			var r, g, b, a float64
			for i, w := range c.weights {
				o := ((c.first+i)*dw + x) * 4
				r += w * tmp[o]
				g += w * tmp[o+1]
				b += w * tmp[o+2]
				a += w * tmp[o+3]
			}
			alpha := clampByte(a)
			if alpha == 0 {
				clear(drow[4*x : 4*x+4])
				continue
			}
			inv := 255 / a
			drow[4*x] = clampByte(r * inv)
			drow[4*x+1] = clampByte(g * inv)
			drow[4*x+2] = clampByte(b * inv)
			drow[4*x+3] = alpha
		}
	}
	return dst
}
