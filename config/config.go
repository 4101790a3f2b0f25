// Package config reads and writes YAML mix presets.
package config

import (
	"fmt"
	"os"

	"github.com/setanarut/maskmix"
	"gopkg.in/yaml.v3"
)

type Weights struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

type Preset struct {
	Weights   Weights   `yaml:"weights"`
	Color     string    `yaml:"color,omitempty"` // "#rrggbb", overrides weights
	Scales    []float64 `yaml:"scales"`
	Filter    string    `yaml:"filter"`              // nearest | bilinear | catmullrom | gaussian | lanczos3
	Alpha     string    `yaml:"alpha,omitempty"`     // weighted | red | opaque
	Normalize bool      `yaml:"normalize,omitempty"` // weighted average instead of sum
	Output    string    `yaml:"output"`
	Prefix    string    `yaml:"prefix,omitempty"`
	Preview   bool      `yaml:"preview,omitempty"`
	Palette   int       `yaml:"palette,omitempty"` // swatch size, 0 disables
}

func Default() *Preset {
	return &Preset{
		Scales: []float64{1},
		Filter: maskmix.Lanczos3.String(),
		Alpha:  maskmix.AlphaWeighted.String(),
		Output: "output",
	}
}

// Load reads a preset. Fields absent from the file keep Default values.
func Load(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := Default()
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func Save(path string, p *Preset) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// WeightSet resolves the preset weights, preferring Color when set, and
// checks the [0, 1] range.
func (p *Preset) WeightSet() (maskmix.WeightSet, error) {
	w := maskmix.WeightSet{R: p.Weights.R, G: p.Weights.G, B: p.Weights.B}
	if p.Color != "" {
		var err error
		if w, err = maskmix.ParseWeightsHex(p.Color); err != nil {
			return w, err
		}
	}
	return w, w.Validate()
}

// Options converts the preset into pipeline options.
func (p *Preset) Options() (maskmix.Options, error) {
	opt := maskmix.DefaultOptions()
	w, err := p.WeightSet()
	if err != nil {
		return opt, err
	}
	f, err := maskmix.ParseFilter(p.Filter)
	if err != nil {
		return opt, err
	}
	alpha, err := maskmix.ParseAlphaPolicy(p.Alpha)
	if err != nil {
		return opt, err
	}
	opt.Weights = w
	opt.Filter = f
	opt.Blend = maskmix.BlendOptions{Alpha: alpha, Normalize: p.Normalize}
	opt.Scales = make([]maskmix.Scale, len(p.Scales))
	for i, s := range p.Scales {
		opt.Scales[i] = maskmix.Scale(s)
	}
	if p.Output != "" {
		opt.OutputDir = p.Output
	}
	if p.Prefix != "" {
		opt.Prefix = p.Prefix
	}
	opt.Preview = p.Preview
	return opt, nil
}
