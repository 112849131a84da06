// Package config handles baker configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/impostor/internal/binder"
	"github.com/Faultbox/impostor/internal/impostor"
	"github.com/Faultbox/impostor/pkg/math"
)

// Render backends.
const (
	BackendSoft = "soft"
	BackendGL   = "gl"
)

// Config holds all baker settings.
type Config struct {
	Bake    BakeConfig    `yaml:"bake" toml:"bake"`
	Render  RenderConfig  `yaml:"render" toml:"render"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// BakeConfig holds atlas and camera settings.
type BakeConfig struct {
	AtlasWidth     int     `yaml:"atlas_width" toml:"atlas_width"`
	PixelsPerUnit  float32 `yaml:"pixels_per_unit" toml:"pixels_per_unit"` // 0 = derive from largest face
	MinPatchPixels int     `yaml:"min_patch_pixels" toml:"min_patch_pixels"`
	NarrowPolicy   string  `yaml:"narrow_policy" toml:"narrow_policy"` // clamp, skip, fail
	WidePolicy     string  `yaml:"wide_policy" toml:"wide_policy"`     // downscale, reject
	Padding        int     `yaml:"padding" toml:"padding"`
	Workers        int     `yaml:"workers" toml:"workers"`
}

// RenderConfig holds snapshot renderer settings.
type RenderConfig struct {
	Backend     string     `yaml:"backend" toml:"backend"` // soft, gl
	Supersample int        `yaml:"supersample" toml:"supersample"`
	Ambient     float32    `yaml:"ambient" toml:"ambient"`
	LightDir    [3]float32 `yaml:"light_dir" toml:"light_dir"` // zero = headlight
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Dir          string `yaml:"dir" toml:"dir"`
	Format       string `yaml:"format" toml:"format"` // png, tiff, bmp
	Overlay      bool   `yaml:"overlay" toml:"overlay"`
	OverlayScale int    `yaml:"overlay_scale" toml:"overlay_scale"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"` // e.g. "500ms"
}

// Duration is a time.Duration written as a string such as "250ms" in both
// YAML and TOML files.
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bake: BakeConfig{
			AtlasWidth:     impostor.DefaultAtlasWidth,
			PixelsPerUnit:  0,
			MinPatchPixels: impostor.DefaultMinPatchPixels,
			NarrowPolicy:   string(impostor.NarrowClamp),
			WidePolicy:     string(impostor.WideDownscale),
			Padding:        0,
			Workers:        1,
		},
		Render: RenderConfig{
			Backend:     BackendSoft,
			Supersample: 2,
			Ambient:     0.35,
		},
		Output: OutputConfig{
			Dir:          ".",
			Format:       string(binder.FormatPNG),
			Overlay:      false,
			OverlayScale: 2,
		},
		Watch: WatchConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Bake.AtlasWidth <= 0 {
		errs = append(errs, fmt.Errorf("bake.atlas_width must be positive, got %d", c.Bake.AtlasWidth))
	}
	if c.Bake.PixelsPerUnit < 0 {
		errs = append(errs, fmt.Errorf("bake.pixels_per_unit must not be negative, got %v", c.Bake.PixelsPerUnit))
	}
	if c.Bake.MinPatchPixels < 1 {
		errs = append(errs, fmt.Errorf("bake.min_patch_pixels must be at least 1, got %d", c.Bake.MinPatchPixels))
	}
	if c.Bake.Padding < 0 {
		errs = append(errs, fmt.Errorf("bake.padding must not be negative, got %d", c.Bake.Padding))
	}
	if _, err := impostor.ParseNarrowPolicy(c.Bake.NarrowPolicy); err != nil {
		errs = append(errs, fmt.Errorf("bake.narrow_policy: %w", err))
	}
	if _, err := impostor.ParseWidePolicy(c.Bake.WidePolicy); err != nil {
		errs = append(errs, fmt.Errorf("bake.wide_policy: %w", err))
	}
	switch c.Render.Backend {
	case BackendSoft, BackendGL:
	default:
		errs = append(errs, fmt.Errorf("render.backend: unknown backend %q (want soft or gl)", c.Render.Backend))
	}
	if c.Render.Supersample < 1 {
		errs = append(errs, fmt.Errorf("render.supersample must be at least 1, got %d", c.Render.Supersample))
	}
	if c.Render.Ambient < 0 || c.Render.Ambient > 1 {
		errs = append(errs, fmt.Errorf("render.ambient must be in [0,1], got %v", c.Render.Ambient))
	}
	if _, err := binder.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}
	return errors.Join(errs...)
}

// BakeOptions converts the bake section into baker options.
func (c *Config) BakeOptions() (impostor.Options, error) {
	narrow, err := impostor.ParseNarrowPolicy(c.Bake.NarrowPolicy)
	if err != nil {
		return impostor.Options{}, err
	}
	wide, err := impostor.ParseWidePolicy(c.Bake.WidePolicy)
	if err != nil {
		return impostor.Options{}, err
	}
	workers := c.Bake.Workers
	if c.Render.Backend == BackendGL {
		// The GL context lives on the main thread.
		workers = 1
	}
	return impostor.Options{
		AtlasWidth:     c.Bake.AtlasWidth,
		PixelsPerUnit:  c.Bake.PixelsPerUnit,
		MinPatchPixels: c.Bake.MinPatchPixels,
		Narrow:         narrow,
		Wide:           wide,
		Padding:        c.Bake.Padding,
		Workers:        workers,
	}, nil
}

// LightDirection returns the configured light direction.
func (r RenderConfig) LightDirection() math.Vec3 {
	return math.Vec3{X: r.LightDir[0], Y: r.LightDir[1], Z: r.LightDir[2]}
}
