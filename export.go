package maskmix

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/setanarut/maskmix/utils"
)

// DefaultPrefix names output files when Options.Prefix is empty.
const DefaultPrefix = "output"

// PreviewSize is the edge length of the optional preview image.
const PreviewSize = 256

type Options struct {
	// Mask weights. Not validated here; see WeightSet.Validate.
	Weights WeightSet
	// Scale factors, one output per distinct factor, in order.
	Scales []Scale
	// Resampling filter applied to every scale.
	Filter Filter
	// Alpha policy and weighted-average switch for the blend.
	Blend BlendOptions
	// Output directory, created if missing.
	OutputDir string
	// File name prefix: <Prefix>_<scale>x.png. Empty means DefaultPrefix.
	Prefix string
	// Also write a PreviewSize×PreviewSize nearest-neighbour preview.
	Preview bool
	// Called with the composite after blending, before any resample.
	// Errors abort the run.
	OnComposite func(prefix string, composite *Raster) error
}

func DefaultOptions() Options {
	return Options{
		Scales:    []Scale{1},
		Filter:    Lanczos3,
		Blend:     DefaultBlendOptions(),
		OutputDir: "output",
		Prefix:    DefaultPrefix,
	}
}

// Result describes the files written by one run.
type Result struct {
	MaskDir string
	Width   int // composite width
	Height  int // composite height
	Files   []string
}

// Pipeline runs load → blend → (resample → encode → write) per scale.
type Pipeline struct {
	Log zerolog.Logger
	// Encode is the PNG encode primitive. Nil means utils.EncodePNG.
	Encode func(img image.Image) ([]byte, error)
}

func NewPipeline(log zerolog.Logger) *Pipeline {
	return &Pipeline{Log: log}
}

// OutputName returns the file name for scale s, e.g. "output_0.5x.png".
func OutputName(prefix string, s Scale) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%sx.png", prefix, s)
}

// Run exports one mask directory. It returns the written file count.
// Files written before a failure stay on disk.
func (p *Pipeline) Run(maskDir string, opt Options) (int, error) {
	res, err := p.run(maskDir, opt)
	if res == nil {
		return 0, err
	}
	return len(res.Files), err
}

// RunBatch exports several mask directories into the same output
// directory. Each directory's files are prefixed with its base name.
func (p *Pipeline) RunBatch(maskDirs []string, opt Options) ([]*Result, error) {
	if _, err := uniqueScales(opt.Scales); err != nil {
		return nil, stageErr(StageValidate, err)
	}
	results := make([]*Result, 0, len(maskDirs))
	seen := make(map[string]string, len(maskDirs))
	for _, dir := range maskDirs {
		o := opt
		o.Prefix = batchPrefix(dir)
		if prev, ok := seen[o.Prefix]; ok {
			return results, stageErr(StageValidate,
				fmt.Errorf("%w: %s and %s both map to prefix %q", ErrOutputWrite, prev, dir, o.Prefix))
		}
		seen[o.Prefix] = dir
		res, err := p.run(dir, o)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func batchPrefix(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "." || base == string(filepath.Separator) {
		return DefaultPrefix
	}
	return base
}

func (p *Pipeline) run(maskDir string, opt Options) (*Result, error) {
	log := p.Log.With().Str("masks", maskDir).Logger()
	scales, err := uniqueScales(opt.Scales)
	if err != nil {
		return nil, stageErr(StageValidate, err)
	}
	if len(scales) < len(opt.Scales) {
		log.Warn().Int("requested", len(opt.Scales)).Int("unique", len(scales)).Msg("duplicate scale factors dropped")
	}
	prefix := opt.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	// 1. Load masks
	log.Debug().Msg("loading masks")
	masks, err := LoadMasks(maskDir)
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}

	// 2. Blend
	w, h := masks.Size()
	log.Debug().Int("width", w).Int("height", h).Stringer("weights", opt.Weights).Msg("blending")
	composite, err := BlendWith(masks.R, masks.G, masks.B, opt.Weights, opt.Blend)
	if err != nil {
		return nil, stageErr(StageBlend, err)
	}

	// Every target size must fit before anything is written.
	for _, s := range scales {
		if _, _, err := s.Size(w, h); err != nil {
			return nil, stageErr(StageResample, err)
		}
	}

	res := &Result{MaskDir: maskDir, Width: w, Height: h}
	if err := os.MkdirAll(opt.OutputDir, 0o755); err != nil {
		return res, stageErr(StageWrite, fmt.Errorf("%w: creating %s: %v", ErrOutputWrite, opt.OutputDir, err))
	}
	if opt.OnComposite != nil {
		if err := opt.OnComposite(prefix, composite); err != nil {
			return res, stageErr(StageWrite, err)
		}
	}

	// 3. One output per scale
	for _, s := range scales {
		path := filepath.Join(opt.OutputDir, OutputName(prefix, s))
		img, err := Resample(composite, s, opt.Filter)
		if err != nil {
			return res, stageErr(StageResample, fmt.Errorf("scale %s: %w", s, err))
		}
		if err := p.write(path, img); err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
		log.Info().Str("path", path).Str("scale", s.String()).Str("filter", opt.Filter.String()).
			Int("width", img.Rect.Dx()).Int("height", img.Rect.Dy()).Msg("wrote")
	}

	if opt.Preview {
		img, err := ResampleTo(composite, PreviewSize, PreviewSize, Nearest)
		if err != nil {
			return res, stageErr(StageResample, err)
		}
		path := filepath.Join(opt.OutputDir, prefix+"_preview.png")
		if err := p.write(path, img); err != nil {
			return res, err
		}
		log.Info().Str("path", path).Msg("wrote preview")
	}
	return res, nil
}

func (p *Pipeline) write(path string, img *Raster) error {
	encode := p.Encode
	if encode == nil {
		encode = utils.EncodePNG
	}
	data, err := encode(img)
	if err != nil {
		return stageErr(StageEncode, fmt.Errorf("%s: %w", path, err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return stageErr(StageWrite, fmt.Errorf("%w: %s: %v", ErrOutputWrite, path, err))
	}
	return nil
}

// uniqueScales validates every factor and drops repeats, keeping the first
// occurrence so output order follows request order.
func uniqueScales(scales []Scale) ([]Scale, error) {
	if len(scales) == 0 {
		return nil, ErrEmptyScaleSet
	}
	out := make([]Scale, 0, len(scales))
	seen := make(map[Scale]bool, len(scales))
	for i, s := range scales {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scale #%d: %w", i+1, err)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
