package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/setanarut/maskmix"
	"github.com/setanarut/maskmix/config"
	"github.com/setanarut/maskmix/utils"
	"github.com/spf13/cobra"
)

func newMixCmd() *cobra.Command {
	mixCmd := &cobra.Command{
		Use:   "mix [R G B]",
		Short: "Blend the masks with R, G, B weights and export one PNG per scale",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected 3 weights (R G B), got %d", len(args))
			}
			return nil
		},
		RunE: runMix,
	}
	mixCmd.Flags().StringSliceP("mask-directories", "m", nil, "Directories containing r.png, g.png, b.png")
	mixCmd.Flags().Float64SliceP("scale", "s", []float64{1}, "Scale factors; one file per factor (>0)")
	mixCmd.Flags().StringP("filter", "f", maskmix.Lanczos3.String(), "Resize filter (nearest, bilinear, catmullrom, gaussian, lanczos3)")
	mixCmd.Flags().StringP("output", "o", "output", "Output directory (created if missing)")
	mixCmd.Flags().String("color", "", "Target color #rrggbb used as weights instead of R G B")
	mixCmd.Flags().String("alpha", maskmix.AlphaWeighted.String(), "Alpha policy (weighted, red, opaque)")
	mixCmd.Flags().Bool("normalize", false, "Divide by the weight sum (weighted average)")
	mixCmd.Flags().String("prefix", maskmix.DefaultPrefix, "Output file prefix for a single mask directory")
	mixCmd.Flags().Bool("preview", false, "Also write a 256x256 nearest-neighbour preview")
	mixCmd.Flags().Int("palette", 0, "Write a swatch of the N dominant colors of the composite")
	mixCmd.Flags().String("palette-method", utils.PaletteMethodDominantColor.String(), "Palette extraction (dominantcolor, kmeans)")
	mixCmd.Flags().String("config", "", "YAML preset; explicit flags override it")
	return mixCmd
}

func runMix(cmd *cobra.Command, args []string) error {
	preset := config.Default()
	path, _ := cmd.Flags().GetString("config")
	color, _ := cmd.Flags().GetString("color")
	if len(args) == 0 && path == "" && color == "" {
		return errors.New("no weights given: pass R G B, --color or a --config preset")
	}
	if path != "" {
		p, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading preset: %w", err)
		}
		preset = p
	}
	if err := applyFlags(cmd, args, preset); err != nil {
		return err
	}

	opt, err := preset.Options()
	if err != nil {
		return err
	}
	dirs, _ := cmd.Flags().GetStringSlice("mask-directories")
	if len(dirs) == 0 {
		return fmt.Errorf("at least one --mask-directories entry is required")
	}

	if preset.Palette > 0 {
		methodName, _ := cmd.Flags().GetString("palette-method")
		method, err := utils.ParsePaletteMethod(methodName)
		if err != nil {
			return err
		}
		opt.OnComposite = paletteWriter(opt.OutputDir, preset.Palette, method)
	}

	log.Info().Stringer("weights", opt.Weights).Str("filter", opt.Filter.String()).
		Str("alpha", opt.Blend.Alpha.String()).Msg("mixing")

	p := maskmix.NewPipeline(log.Logger)
	if len(dirs) == 1 {
		n, err := p.Run(dirs[0], opt)
		if err != nil {
			return err
		}
		log.Info().Int("files", n).Str("output", opt.OutputDir).Msg("done")
		return nil
	}
	results, err := p.RunBatch(dirs, opt)
	files := 0
	for _, r := range results {
		files += len(r.Files)
	}
	if err != nil {
		return err
	}
	log.Info().Int("directories", len(results)).Int("files", files).Str("output", opt.OutputDir).Msg("done")
	return nil
}

// applyFlags copies explicitly set flags and positional weights over the
// preset, so a preset file supplies defaults only.
func applyFlags(cmd *cobra.Command, args []string, p *config.Preset) error {
	if len(args) == 3 {
		var w [3]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", maskmix.ErrInvalidWeight, a)
			}
			w[i] = v
		}
		p.Weights = config.Weights{R: w[0], G: w[1], B: w[2]}
		p.Color = ""
	}

	flags := cmd.Flags()
	if flags.Changed("scale") || p.Scales == nil {
		p.Scales, _ = flags.GetFloat64Slice("scale")
	}
	for name, dst := range map[string]*string{
		"filter": &p.Filter,
		"output": &p.Output,
		"color":  &p.Color,
		"alpha":  &p.Alpha,
		"prefix": &p.Prefix,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("normalize") {
		p.Normalize, _ = flags.GetBool("normalize")
	}
	if flags.Changed("preview") {
		p.Preview, _ = flags.GetBool("preview")
	}
	if flags.Changed("palette") {
		p.Palette, _ = flags.GetInt("palette")
	}
	return nil
}

func paletteWriter(dir string, k int, method utils.PaletteMethod) func(string, *maskmix.Raster) error {
	return func(prefix string, composite *maskmix.Raster) error {
		palette := utils.ExtractPalette(composite, k, method)
		if len(palette) == 0 {
			log.Warn().Str("prefix", prefix).Msg("composite is fully transparent, no palette written")
			return nil
		}
		utils.SortPaletteByBrightness(palette)
		path := filepath.Join(dir, prefix+"_palette.png")
		if err := utils.SavePalette(palette, 64, path); err != nil {
			return fmt.Errorf("%w: %s: %v", maskmix.ErrOutputWrite, path, err)
		}
		log.Info().Str("path", path).Str("method", method.String()).
			Str("colors", strings.Join(utils.HexCodes(palette), " ")).Msg("wrote palette")
		return nil
	}
}
