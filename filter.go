package maskmix

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Filter is the resampling algorithm used when changing resolution.
type Filter int

const (
	Nearest Filter = iota
	Bilinear
	CatmullRom
	Gaussian
	Lanczos3
)

var filterNames = [...]string{
	Nearest:    "nearest",
	Bilinear:   "bilinear",
	CatmullRom: "catmullrom",
	Gaussian:   "gaussian",
	Lanczos3:   "lanczos3",
}

// Filters lists every filter in declaration order.
func Filters() []Filter {
	return []Filter{Nearest, Bilinear, CatmullRom, Gaussian, Lanczos3}
}

func (f Filter) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("Filter(%d)", int(f))
	}
	return filterNames[f]
}

// ParseFilter accepts the names printed by String plus a few common aliases.
func ParseFilter(s string) (Filter, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "triangle", "linear":
		return Bilinear, nil
	case "catmull-rom", "cubic":
		return CatmullRom, nil
	case "lanczos":
		return Lanczos3, nil
	}
	for i, n := range filterNames {
		if n == name {
			return Filter(i), nil
		}
	}
	return Nearest, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFilter, s, strings.Join(filterNames[:], ", "))
}

// kernel returns the separable convolution kernel of f, nil for Nearest.
func (f Filter) kernel() *draw.Kernel {
	switch f {
	case Bilinear:
		return draw.BiLinear
	case CatmullRom:
		return draw.CatmullRom
	case Gaussian:
		return gaussianKernel
	case Lanczos3:
		return lanczos3Kernel
	}
	return nil
}

var (
	// Windowed sinc with a three-lobe window.
	lanczos3Kernel = &draw.Kernel{Support: 3, At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		x := math.Pi * t
		return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
	}}

	// sigma = 0.5; the constant factor cancels during normalization.
	gaussianKernel = &draw.Kernel{Support: 3, At: func(t float64) float64 {
		return math.Exp(-2 * t * t)
	}}
)
