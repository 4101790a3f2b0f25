package maskmix

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/setanarut/maskmix/utils"
)

// Conventional mask file names inside a mask directory.
const (
	MaskFileR = "r.png"
	MaskFileG = "g.png"
	MaskFileB = "b.png"
)

// MaskSet holds the three decoded masks of one mask directory. All three
// share the same dimensions.
type MaskSet struct {
	Dir     string
	R, G, B *Raster
}

// Size returns the common width and height of the masks.
func (m *MaskSet) Size() (w, h int) {
	return m.R.Rect.Dx(), m.R.Rect.Dy()
}

// LoadMasks reads r.png, g.png and b.png from dir and checks that they
// have identical dimensions.
func LoadMasks(dir string) (*MaskSet, error) {
	names := [3]string{MaskFileR, MaskFileG, MaskFileB}
	var masks [3]*Raster
	for i, name := range names {
		r, err := loadMask(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		masks[i] = r
	}
	for i := 1; i < 3; i++ {
		if !sameSize(masks[0], masks[i]) {
			return nil, fmt.Errorf("%w: %s: %s is %dx%d, %s is %dx%d", ErrDimensionMismatch, dir,
				names[0], masks[0].Rect.Dx(), masks[0].Rect.Dy(),
				names[i], masks[i].Rect.Dx(), masks[i].Rect.Dy())
		}
	}
	return &MaskSet{Dir: dir, R: masks[0], G: masks[1], B: masks[2]}, nil
}

func loadMask(path string) (*Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingMask, path, err)
	}
	img, err := utils.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return ToRaster(img), nil
}
