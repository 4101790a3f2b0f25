package maskmix

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/setanarut/maskmix/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline() *Pipeline {
	return NewPipeline(zerolog.Nop())
}

func testOptions(out string, scales ...Scale) Options {
	opt := DefaultOptions()
	opt.Weights = WeightSet{R: 1, G: 0.5, B: 0.25}
	opt.Scales = scales
	opt.OutputDir = out
	return opt
}

func readPNG(t *testing.T, path string) *Raster {
	t.Helper()
	img, err := utils.ReadImage(path)
	require.NoError(t, err)
	return ToRaster(img)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunWritesOneFilePerScale(t *testing.T) {
	const w, h = 10, 7
	masks := writeMasks(t, "masks", randomRaster(w, h, 1, 0), randomRaster(w, h, 2, 0), randomRaster(w, h, 3, 0))
	out := filepath.Join(t.TempDir(), "out")

	n, err := newTestPipeline().Run(masks, testOptions(out, 1, 2, 0.5))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{"output_1x.png", "output_2x.png", "output_0.5x.png"}, listDir(t, out))

	want := map[string]image.Rectangle{
		"output_1x.png":   image.Rect(0, 0, w, h),
		"output_2x.png":   image.Rect(0, 0, 2*w, 2*h),
		"output_0.5x.png": image.Rect(0, 0, 5, 4),
	}
	for name, rect := range want {
		assert.Equal(t, rect, readPNG(t, filepath.Join(out, name)).Rect, name)
	}
}

func TestRunEmptyScaleSet(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(4, 4), NewRaster(4, 4), NewRaster(4, 4))
	out := filepath.Join(t.TempDir(), "out")

	n, err := newTestPipeline().Run(masks, testOptions(out))
	assert.ErrorIs(t, err, ErrEmptyScaleSet)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.Zero(t, n)
	assert.Empty(t, listDir(t, out))
}

func TestRunInvalidScaleWritesNothing(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(4, 4), NewRaster(4, 4), NewRaster(4, 4))
	out := filepath.Join(t.TempDir(), "out")

	n, err := newTestPipeline().Run(masks, testOptions(out, 1, -2))
	require.ErrorIs(t, err, ErrInvalidScale)
	assert.Contains(t, err.Error(), "-2")
	assert.True(t, strings.HasPrefix(err.Error(), "validate: "), err.Error())
	assert.Zero(t, n)
	assert.Empty(t, listDir(t, out))
}

func TestRunOversizedScaleWritesNothing(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(64, 64), NewRaster(64, 64), NewRaster(64, 64))
	out := filepath.Join(t.TempDir(), "out")

	for _, s := range []Scale{1e9, 1e18} {
		n, err := newTestPipeline().Run(masks, testOptions(out, 1, s))
		require.ErrorIs(t, err, ErrInvalidScale)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageResample, se.Stage)
		assert.Contains(t, err.Error(), s.String())
		assert.Zero(t, n)
		assert.Empty(t, listDir(t, out))
	}
}

// Every pixel of the 1x nearest output must equal
// clamp(round(r*1 + g*0.15 + b*0.04)). The sum is computed exactly as
// (100r + 15g + 4b) / 100; exact .5 ties may round either way.
func TestRunEndToEndMatchesWeightedSum(t *testing.T) {
	r := randomRaster(64, 64, 101, 0)
	g := randomRaster(64, 64, 102, 0)
	b := randomRaster(64, 64, 103, 0)
	masks := writeMasks(t, "masks", r, g, b)
	out := filepath.Join(t.TempDir(), "out")

	opt := testOptions(out, 1)
	opt.Weights = WeightSet{R: 1.0, G: 0.15, B: 0.04}
	opt.Filter = Nearest
	n, err := newTestPipeline().Run(masks, opt)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"output_1x.png"}, listDir(t, out))

	got := readPNG(t, filepath.Join(out, "output_1x.png"))
	require.Equal(t, image.Rect(0, 0, 64, 64), got.Rect)
	for i, v := range got.Pix {
		num := 100*int(r.Pix[i]) + 15*int(g.Pix[i]) + 4*int(b.Pix[i])
		lo, hi := num/100, (num+50)/100
		if num%100 != 50 {
			lo = hi
		}
		lo, hi = min(lo, 255), min(hi, 255)
		if int(v) < lo || int(v) > hi {
			t.Fatalf("sample %d = %d, want %d..%d (num=%d)", i, v, lo, hi, num)
		}
	}
}

func TestRunDropsDuplicateScales(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(4, 4), NewRaster(4, 4), NewRaster(4, 4))
	out := filepath.Join(t.TempDir(), "out")

	n, err := newTestPipeline().Run(masks, testOptions(out, 2, 1, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"output_1x.png", "output_2x.png"}, listDir(t, out))
}

func TestRunReportsFailingStage(t *testing.T) {
	dir := t.TempDir()
	_, err := newTestPipeline().Run(filepath.Join(dir, "absent"), testOptions(filepath.Join(dir, "out"), 1))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLoad, se.Stage)
	assert.ErrorIs(t, err, ErrMissingMask)
	assert.Contains(t, err.Error(), "load: ")
	assert.Contains(t, err.Error(), filepath.Join(dir, "absent", MaskFileR))
}

func TestRunDimensionMismatch(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(100, 100), NewRaster(100, 100), NewRaster(50, 50))
	out := filepath.Join(t.TempDir(), "out")

	n, err := newTestPipeline().Run(masks, testOptions(out, 1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Zero(t, n)
	assert.Empty(t, listDir(t, out))
}

func TestRunOutputDirectoryIsAFile(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(4, 4), NewRaster(4, 4), NewRaster(4, 4))
	out := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(out, nil, 0o644))

	_, err := newTestPipeline().Run(masks, testOptions(out, 1))
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageWrite, se.Stage)
	assert.ErrorIs(t, err, ErrOutputWrite)
}

func TestRunKeepsEarlierFilesOnFailure(t *testing.T) {
	masks := writeMasks(t, "masks", NewRaster(4, 4), NewRaster(4, 4), NewRaster(4, 4))
	out := filepath.Join(t.TempDir(), "out")
	boom := errors.New("boom")

	p := newTestPipeline()
	calls := 0
	p.Encode = func(img image.Image) ([]byte, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return utils.EncodePNG(img)
	}
	n, err := p.Run(masks, testOptions(out, 1, 2, 3))
	assert.ErrorIs(t, err, boom)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEncode, se.Stage)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"output_1x.png"}, listDir(t, out))
}

func TestRunPreviewAndCompositeHook(t *testing.T) {
	masks := writeMasks(t, "masks", randomRaster(12, 6, 1, 0), randomRaster(12, 6, 2, 0), randomRaster(12, 6, 3, 0))
	out := filepath.Join(t.TempDir(), "out")

	opt := testOptions(out, 1)
	opt.Prefix = "brick"
	opt.Preview = true
	var hooked []string
	opt.OnComposite = func(prefix string, composite *Raster) error {
		hooked = append(hooked, prefix)
		assert.Equal(t, image.Rect(0, 0, 12, 6), composite.Rect)
		return nil
	}
	n, err := newTestPipeline().Run(masks, opt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"brick"}, hooked)
	assert.ElementsMatch(t, []string{"brick_1x.png", "brick_preview.png"}, listDir(t, out))
	assert.Equal(t, image.Rect(0, 0, PreviewSize, PreviewSize), readPNG(t, filepath.Join(out, "brick_preview.png")).Rect)
}

func TestRunAlphaPolicyIsApplied(t *testing.T) {
	c := color.NRGBA{100, 100, 100, 10}
	masks := writeMasks(t, "masks", solidRaster(3, 3, c), solidRaster(3, 3, c), solidRaster(3, 3, c))
	out := filepath.Join(t.TempDir(), "out")

	opt := testOptions(out, 1)
	opt.Blend.Alpha = AlphaOpaque
	_, err := newTestPipeline().Run(masks, opt)
	require.NoError(t, err)
	got := readPNG(t, filepath.Join(out, "output_1x.png"))
	// 100 + 50 + 25
	assert.Equal(t, color.NRGBA{175, 175, 175, 255}, got.NRGBAAt(1, 1))
}

func TestRunBatch(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"wood", "stone"} {
		require.NoError(t, utils.SaveMasks(filepath.Join(root, name), NewRaster(6, 6), NewRaster(6, 6), NewRaster(6, 6)))
	}
	out := filepath.Join(root, "out")

	results, err := newTestPipeline().RunBatch(
		[]string{filepath.Join(root, "wood"), filepath.Join(root, "stone") + "/"},
		testOptions(out, 1, 0.5))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Files, 2)
	assert.Equal(t, 6, results[1].Width)
	assert.ElementsMatch(t, []string{
		"wood_1x.png", "wood_0.5x.png",
		"stone_1x.png", "stone_0.5x.png",
	}, listDir(t, out))
}

func TestRunBatchRejectsPrefixCollision(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a", "tile")
	b := filepath.Join(root, "b", "tile")
	require.NoError(t, utils.SaveMasks(a, NewRaster(2, 2), NewRaster(2, 2), NewRaster(2, 2)))
	require.NoError(t, utils.SaveMasks(b, NewRaster(2, 2), NewRaster(2, 2), NewRaster(2, 2)))

	results, err := newTestPipeline().RunBatch([]string{a, b}, testOptions(filepath.Join(root, "out"), 1))
	assert.ErrorIs(t, err, ErrOutputWrite)
	assert.Len(t, results, 1)
}

func TestOutputNameIsCollisionFree(t *testing.T) {
	scales := []Scale{0.25, 0.5, 1, 1.5, 2, 4, 0.333, 10}
	seen := map[string]bool{}
	for _, s := range scales {
		name := OutputName("", s)
		assert.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Equal(t, "output_0.5x.png", OutputName("", 0.5))
	assert.Equal(t, "tile_2x.png", OutputName("tile", 2))
}
