package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats understood by the exporter registry.
const (
	FormatBitmap = "bitmap"
	FormatVector = "vector"
	FormatRBAT   = "rbat"
)

type Config struct {
	InputPath    string   `yaml:"input"`
	OutputDir    string   `yaml:"output_dir"`
	Name         string   `yaml:"name"`
	StateID      string   `yaml:"state"`
	Formats      []string `yaml:"formats"`
	FPS          int      `yaml:"fps"`
	Bake         bool     `yaml:"bake"`
	ByteOrder    string   `yaml:"byte_order"`
	LegacyAlpha  bool     `yaml:"legacy_alpha"`
	ProjectDir   string   `yaml:"project_dir"`
	Register     bool     `yaml:"register"`
	Preview      string   `yaml:"preview"`
	PreviewScale int      `yaml:"preview_scale"`
	ContactSheet bool     `yaml:"contact_sheet"`
	Manifest     bool     `yaml:"manifest"`
	Workers      int      `yaml:"workers"`
	ShowStats    bool     `yaml:"stats"`
	BuildVersion string   `yaml:"-"`
	Defaults     Defaults `yaml:"defaults"`
}

// Defaults collects every fallback value the rasterizer, baker and codecs
// apply to incomplete input.
type Defaults struct {
	Color         uint32  `yaml:"color"`
	Opacity       float64 `yaml:"opacity"`
	FontSize      int     `yaml:"font_size"`
	FrameDuration int     `yaml:"frame_duration"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           int     `yaml:"fps"`
	MinFPS        int     `yaml:"min_fps"`
	MaxFPS        int     `yaml:"max_fps"`
	AAWidth       float64 `yaml:"aa_width"`
	MinRadius     float64 `yaml:"min_radius"`
	Background    uint32  `yaml:"background"`
	Alpha         uint8   `yaml:"alpha"`
}

// DefaultDefaults returns the values used by the studio and the runtime.
func DefaultDefaults() Defaults {
	return Defaults{
		Color:         0xFFFFFF,
		Opacity:       1.0,
		FontSize:      14,
		FrameDuration: 100,
		Width:         466,
		Height:        466,
		FPS:           12,
		MinFPS:        10,
		MaxFPS:        60,
		AAWidth:       1.2,
		MinRadius:     0.1,
		Background:    0x000000,
		Alpha:         0xFF,
	}
}

// Default returns a Config with every field at its command-line default.
func Default() Config {
	return Config{
		OutputDir:    "output",
		Formats:      []string{FormatVector},
		ByteOrder:    "high-first",
		Register:     true,
		PreviewScale: 1,
		Workers:      runtime.NumCPU(),
		Defaults:     DefaultDefaults(),
	}
}

// Load reads a YAML config file over cfg. Keys absent from the file keep
// the values already in cfg.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate normalises enumerations and fills zero values that would break
// the pipeline.
func (c *Config) Validate() error {
	if len(c.Formats) == 0 {
		c.Formats = []string{FormatVector}
	}
	for i, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatBitmap, FormatVector, FormatRBAT:
		default:
			return fmt.Errorf("config: unknown format %q", f)
		}
		c.Formats[i] = f
	}
	if c.HasFormat(FormatBitmap) && c.HasFormat(FormatVector) {
		return fmt.Errorf("config: bitmap and vector both write NAME.c, pick one")
	}

	switch strings.ToLower(c.ByteOrder) {
	case "", "high-first", "swap", "be":
		c.ByteOrder = "high-first"
	case "low-first", "le":
		c.ByteOrder = "low-first"
	default:
		return fmt.Errorf("config: unknown byte order %q", c.ByteOrder)
	}

	switch strings.ToLower(c.Preview) {
	case "", "png", "webp", "tga":
		c.Preview = strings.ToLower(c.Preview)
	default:
		return fmt.Errorf("config: unknown preview format %q", c.Preview)
	}

	if c.PreviewScale <= 0 {
		c.PreviewScale = 1
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	d := &c.Defaults
	def := DefaultDefaults()
	if d.MinFPS <= 0 {
		d.MinFPS = def.MinFPS
	}
	if d.MaxFPS < d.MinFPS {
		d.MaxFPS = def.MaxFPS
	}
	if d.AAWidth <= 0 {
		d.AAWidth = def.AAWidth
	}
	if d.MinRadius <= 0 {
		d.MinRadius = def.MinRadius
	}
	if d.FontSize <= 0 {
		d.FontSize = def.FontSize
	}
	if d.FrameDuration <= 0 {
		d.FrameDuration = def.FrameDuration
	}
	if d.Width <= 0 {
		d.Width = def.Width
	}
	if d.Height <= 0 {
		d.Height = def.Height
	}
	if d.FPS <= 0 {
		d.FPS = def.FPS
	}
	return nil
}

// HasFormat reports whether the named output format is enabled.
func (c *Config) HasFormat(name string) bool {
	for _, f := range c.Formats {
		if f == name {
			return true
		}
	}
	return false
}

// ClampFPS limits fps to the configured [MinFPS, MaxFPS] range.
func (d Defaults) ClampFPS(fps int) int {
	if fps < d.MinFPS {
		return d.MinFPS
	}
	if fps > d.MaxFPS {
		return d.MaxFPS
	}
	return fps
}
