package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
)

// ReadImage decodes the image file at path.
func ReadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// DecodeImage decodes an encoded image. Only formats registered with the
// image package are understood; this package registers PNG.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// EncodePNG encodes img with image/png.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveImage writes img as PNG, replacing any existing file.
func SaveImage(img image.Image, filename string) error {
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// SaveMasks writes r, g and b as r.png, g.png and b.png into dir,
// creating it if needed.
func SaveMasks(dir string, r, g, b image.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, img := range map[string]image.Image{"r.png": r, "g.png": g, "b.png": b} {
		if err := SaveImage(img, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// SavePalette writes one tileSize×tileSize square per color, left to right.
func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		tile := color.RGBA{R: r, G: g, B: b, A: 255}
		for y := range tileSize {
			for x := i * tileSize; x < (i+1)*tileSize; x++ {
				img.SetRGBA(x, y, tile)
			}
		}
	}
	return SaveImage(img, filename)
}
