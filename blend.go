package maskmix

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// WeightSet holds one coefficient per mask. Blend accepts any value;
// Validate enforces the [0, 1] contract at the input boundary.
type WeightSet struct {
	R, G, B float64
}

func (w WeightSet) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"red", w.R}, {"green", w.G}, {"blue", w.B}} {
		if !(c.v >= 0 && c.v <= 1) {
			return fmt.Errorf("%w: %s weight is %v", ErrInvalidWeight, c.name, c.v)
		}
	}
	return nil
}

func (w WeightSet) String() string {
	return fmt.Sprintf("(%g, %g, %g)", w.R, w.G, w.B)
}

// WeightsFromColor uses the sRGB components of c as mask weights, so the
// composite tints toward c.
func WeightsFromColor(c colorful.Color) WeightSet {
	c = c.Clamped()
	return WeightSet{R: c.R, G: c.G, B: c.B}
}

// ParseWeightsHex parses a "#rrggbb" color into a WeightSet.
func ParseWeightsHex(s string) (WeightSet, error) {
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return WeightSet{}, fmt.Errorf("%w: color %q: %v", ErrInvalidWeight, s, err)
	}
	return WeightsFromColor(c), nil
}

// AlphaPolicy selects how the composite alpha channel is produced.
type AlphaPolicy int

const (
	// Alpha is mixed with the same weighted sum as the color channels.
	AlphaWeighted AlphaPolicy = iota
	// Alpha is copied from the r mask; pixels transparent there stay zero.
	AlphaFromRed
	// Alpha is always 255.
	AlphaOpaque
)

func (a AlphaPolicy) String() string {
	switch a {
	case AlphaFromRed:
		return "red"
	case AlphaOpaque:
		return "opaque"
	default:
		return "weighted"
	}
}

func ParseAlphaPolicy(s string) (AlphaPolicy, error) {
	switch strings.ToLower(s) {
	case "", "weighted":
		return AlphaWeighted, nil
	case "red", "r":
		return AlphaFromRed, nil
	case "opaque":
		return AlphaOpaque, nil
	}
	return AlphaWeighted, fmt.Errorf("%w: %q", ErrUnknownAlphaPolicy, s)
}

type BlendOptions struct {
	// How the output alpha is computed.
	Alpha AlphaPolicy
	// Divide by the weight sum (weighted average instead of weighted sum).
	// A zero weight sum then yields zero channels.
	Normalize bool
}

func DefaultBlendOptions() BlendOptions {
	return BlendOptions{Alpha: AlphaWeighted}
}

// Blend mixes the three masks with the default options:
//
//	out = clamp(r*w.R + g*w.G + b*w.B, 0, 255)
//
// applied to every channel, alpha included.
func Blend(r, g, b *Raster, w WeightSet) (*Raster, error) {
	return BlendWith(r, g, b, w, DefaultBlendOptions())
}

// BlendWith mixes the three masks channel by channel. Inputs are not
// modified; the result is a new raster of the same size.
func BlendWith(r, g, b *Raster, w WeightSet, opt BlendOptions) (*Raster, error) {
	if !sameSize(r, g) || !sameSize(r, b) {
		return nil, fmt.Errorf("%w: r is %dx%d, g is %dx%d, b is %dx%d", ErrDimensionMismatch,
			r.Rect.Dx(), r.Rect.Dy(), g.Rect.Dx(), g.Rect.Dy(), b.Rect.Dx(), b.Rect.Dy())
	}
	width, height := r.Rect.Dx(), r.Rect.Dy()
	out := NewRaster(width, height)
	if width == 0 || height == 0 {
		return out, nil
	}

	weights := mat.NewVecDense(3, w.coefficients(opt.Normalize))
	masks := [3]*Raster{r, g, b}
	rowLen := 4 * width

	// One matrix row per RGBA sample of an image row, one column per mask,
	// so a row of the composite is samples·weights.
	samples := mat.NewDense(rowLen, 3, nil)
	raw := samples.RawMatrix()
	mixed := mat.NewVecDense(rowLen, nil)
	for y := range height {
		for col, m := range masks {
			src := m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y):]
			for i := range rowLen {
				raw.Data[i*raw.Stride+col] = float64(src[i])
			}
		}
		mixed.MulVec(samples, weights)
		dst := out.Pix[y*out.Stride : y*out.Stride+rowLen]
		for i := range dst {
			dst[i] = clampByte(mixed.AtVec(i))
		}
	}

	switch opt.Alpha {
	case AlphaOpaque:
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = 255
		}
	case AlphaFromRed:
		for y := range height {
			src := r.Pix[r.PixOffset(r.Rect.Min.X, r.Rect.Min.Y+y):]
			dst := out.Pix[y*out.Stride:]
			for x := range width {
				a := src[4*x+3]
				if a == 0 {
					clear(dst[4*x : 4*x+4])
					continue
				}
				dst[4*x+3] = a
			}
		}
	}
	return out, nil
}

func (w WeightSet) coefficients(normalize bool) []float64 {
	c := []float64{w.R, w.G, w.B}
	if !normalize {
		return c
	}
	sum := c[0] + c[1] + c[2]
	if sum == 0 {
		return []float64{0, 0, 0}
	}
	for i := range c {
		c[i] /= sum
	}
	return c
}
