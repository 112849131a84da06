package config

import "flag"

// Flags holds the command-line overrides shared by every subcommand.
type Flags struct {
	config        *string
	debug         *bool
	atlasWidth    *int
	pixelsPerUnit *float64
	minPatch      *int
	narrow        *string
	wide          *string
	padding       *int
	workers       *int
	backend       *string
	supersample   *int
	outDir        *string
	format        *string
	overlay       *bool
	logFile       *string
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:        fs.String("config", "", "Path to config file (.yaml or .toml)"),
		debug:         fs.Bool("debug", false, "Enable debug logging"),
		atlasWidth:    fs.Int("atlas-width", 0, "Atlas width in pixels"),
		pixelsPerUnit: fs.Float64("ppu", 0, "Pixels per model unit (0 = fit largest face to atlas)"),
		minPatch:      fs.Int("min-patch", 0, "Minimum patch size in pixels"),
		narrow:        fs.String("narrow", "", "Narrow face policy: clamp, skip, fail"),
		wide:          fs.String("wide", "", "Wide patch policy: downscale, reject"),
		padding:       fs.Int("padding", -1, "Gutter between patches in pixels"),
		workers:       fs.Int("workers", 0, "Parallel render workers"),
		backend:       fs.String("backend", "", "Render backend: soft, gl"),
		supersample:   fs.Int("supersample", 0, "Supersampling factor per axis"),
		outDir:        fs.String("out", "", "Output directory"),
		format:        fs.String("format", "", "Atlas image format: png, tiff, bmp"),
		overlay:       fs.Bool("overlay", false, "Also write a placement overlay"),
		logFile:       fs.String("log-file", "", "Log file path"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.atlasWidth > 0 {
		cfg.Bake.AtlasWidth = *f.atlasWidth
	}
	if *f.pixelsPerUnit > 0 {
		cfg.Bake.PixelsPerUnit = float32(*f.pixelsPerUnit)
	}
	if *f.minPatch > 0 {
		cfg.Bake.MinPatchPixels = *f.minPatch
	}
	if *f.narrow != "" {
		cfg.Bake.NarrowPolicy = *f.narrow
	}
	if *f.wide != "" {
		cfg.Bake.WidePolicy = *f.wide
	}
	if *f.padding >= 0 {
		cfg.Bake.Padding = *f.padding
	}
	if *f.workers > 0 {
		cfg.Bake.Workers = *f.workers
	}
	if *f.backend != "" {
		cfg.Render.Backend = *f.backend
	}
	if *f.supersample > 0 {
		cfg.Render.Supersample = *f.supersample
	}
	if *f.outDir != "" {
		cfg.Output.Dir = *f.outDir
	}
	if *f.format != "" {
		cfg.Output.Format = *f.format
	}
	if *f.overlay {
		cfg.Output.Overlay = true
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
}
