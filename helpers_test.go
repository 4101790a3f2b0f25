package maskmix

import (
	"image"
	"image/color"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/setanarut/maskmix/utils"
	"github.com/stretchr/testify/require"
)

// randomRaster fills a w×h raster with reproducible noise. Alpha is kept in
// [minAlpha, 255].
func randomRaster(w, h int, seed uint64, minAlpha uint8) *Raster {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r := NewRaster(w, h)
	for i := 0; i < len(r.Pix); i += 4 {
		r.Pix[i] = uint8(rng.IntN(256))
		r.Pix[i+1] = uint8(rng.IntN(256))
		r.Pix[i+2] = uint8(rng.IntN(256))
		r.Pix[i+3] = minAlpha + uint8(rng.IntN(256-int(minAlpha)))
	}
	return r
}

func solidRaster(w, h int, c color.NRGBA) *Raster {
	r := NewRaster(w, h)
	for y := range h {
		for x := range w {
			r.SetNRGBA(x, y, c)
		}
	}
	return r
}

// writeMasks saves the three masks into a fresh directory under t.TempDir.
func writeMasks(t *testing.T, name string, r, g, b image.Image) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, utils.SaveMasks(dir, r, g, b))
	return dir
}
