package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test bake defaults
	if cfg.Bake.AtlasWidth != 256 {
		t.Errorf("expected atlas width 256, got %d", cfg.Bake.AtlasWidth)
	}
	if cfg.Bake.PixelsPerUnit != 0 {
		t.Errorf("expected derived pixels per unit, got %v", cfg.Bake.PixelsPerUnit)
	}
	if cfg.Bake.MinPatchPixels != 4 {
		t.Errorf("expected min patch 4, got %d", cfg.Bake.MinPatchPixels)
	}
	if cfg.Bake.NarrowPolicy != "clamp" {
		t.Errorf("expected narrow policy clamp, got %s", cfg.Bake.NarrowPolicy)
	}
	if cfg.Bake.WidePolicy != "downscale" {
		t.Errorf("expected wide policy downscale, got %s", cfg.Bake.WidePolicy)
	}
	if cfg.Bake.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Bake.Workers)
	}

	// Test render defaults
	if cfg.Render.Backend != "soft" {
		t.Errorf("expected soft backend, got %s", cfg.Render.Backend)
	}
	if cfg.Render.Supersample != 2 {
		t.Errorf("expected supersample 2, got %d", cfg.Render.Supersample)
	}

	// Test output defaults
	if cfg.Output.Format != "png" {
		t.Errorf("expected png output, got %s", cfg.Output.Format)
	}
	if cfg.Output.Overlay {
		t.Error("expected overlay to be false by default")
	}

	if cfg.Watch.Debounce.Duration() != 500*time.Millisecond {
		t.Errorf("expected debounce 500ms, got %v", cfg.Watch.Debounce)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
bake:
  atlas_width: 512
  pixels_per_unit: 64
  narrow_policy: skip
  wide_policy: reject
  padding: 2
  workers: 4

render:
  backend: gl
  supersample: 3
  light_dir: [0, -1, 0]

output:
  dir: "out"
  format: tiff
  overlay: true

watch:
  debounce: 2s

logging:
  level: "debug"
  log_file: "bake.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Bake.AtlasWidth != 512 {
		t.Errorf("expected atlas width 512, got %d", cfg.Bake.AtlasWidth)
	}
	if cfg.Bake.PixelsPerUnit != 64 {
		t.Errorf("expected pixels per unit 64, got %v", cfg.Bake.PixelsPerUnit)
	}
	if cfg.Bake.NarrowPolicy != "skip" || cfg.Bake.WidePolicy != "reject" {
		t.Errorf("unexpected policies %s/%s", cfg.Bake.NarrowPolicy, cfg.Bake.WidePolicy)
	}
	if cfg.Bake.MinPatchPixels != 4 {
		t.Errorf("expected untouched min patch 4, got %d", cfg.Bake.MinPatchPixels)
	}
	if cfg.Render.Backend != "gl" || cfg.Render.Supersample != 3 {
		t.Errorf("unexpected render config %+v", cfg.Render)
	}
	if dir := cfg.Render.LightDirection(); dir.Y != -1 {
		t.Errorf("expected light dir (0,-1,0), got %v", dir)
	}
	if cfg.Output.Dir != "out" || cfg.Output.Format != "tiff" || !cfg.Output.Overlay {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
	if cfg.Watch.Debounce.Duration() != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "bake.log" {
		t.Errorf("expected log file 'bake.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
[bake]
atlas_width = 1024
min_patch_pixels = 8

[render]
ambient = 0.5

[output]
format = "bmp"

[watch]
debounce = "250ms"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Bake.AtlasWidth != 1024 {
		t.Errorf("expected atlas width 1024, got %d", cfg.Bake.AtlasWidth)
	}
	if cfg.Bake.MinPatchPixels != 8 {
		t.Errorf("expected min patch 8, got %d", cfg.Bake.MinPatchPixels)
	}
	if cfg.Render.Ambient != 0.5 {
		t.Errorf("expected ambient 0.5, got %v", cfg.Render.Ambient)
	}
	if cfg.Output.Format != "bmp" {
		t.Errorf("expected bmp, got %s", cfg.Output.Format)
	}
	if cfg.Bake.NarrowPolicy != "clamp" {
		t.Errorf("expected default narrow policy kept, got %s", cfg.Bake.NarrowPolicy)
	}
	if cfg.Watch.Debounce.Duration() != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	for name, content := range map[string]string{
		"config.yaml": "watch:\n  debounce: soon\n",
		"config.toml": "[watch]\ndebounce = \"soon\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if err := loadFromFile(Default(), path); err == nil {
				t.Error("expected error for unparseable debounce")
			}
		})
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
bake:
  atlas_width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero atlas width", func(c *Config) { c.Bake.AtlasWidth = 0 }},
		{"negative ppu", func(c *Config) { c.Bake.PixelsPerUnit = -1 }},
		{"zero min patch", func(c *Config) { c.Bake.MinPatchPixels = 0 }},
		{"negative padding", func(c *Config) { c.Bake.Padding = -2 }},
		{"bad narrow policy", func(c *Config) { c.Bake.NarrowPolicy = "stretch" }},
		{"bad wide policy", func(c *Config) { c.Bake.WidePolicy = "crop" }},
		{"bad backend", func(c *Config) { c.Render.Backend = "vulkan" }},
		{"zero supersample", func(c *Config) { c.Render.Supersample = 0 }},
		{"ambient out of range", func(c *Config) { c.Render.Ambient = 2 }},
		{"bad format", func(c *Config) { c.Output.Format = "gif" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBakeOptions(t *testing.T) {
	cfg := Default()
	cfg.Bake.Workers = 8
	cfg.Bake.NarrowPolicy = "fail"

	opts, err := cfg.BakeOptions()
	if err != nil {
		t.Fatalf("BakeOptions failed: %v", err)
	}
	if opts.AtlasWidth != 256 || opts.Workers != 8 || opts.Narrow != "fail" {
		t.Errorf("unexpected options %+v", opts)
	}

	// The GL backend always renders on one thread.
	cfg.Render.Backend = BackendGL
	opts, err = cfg.BakeOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Workers != 1 {
		t.Errorf("expected 1 worker for gl backend, got %d", opts.Workers)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Keep the user's real config out of the search
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create impostor.toml in current directory
	configPath := filepath.Join(tmpDir, "impostor.toml")
	if err := os.WriteFile(configPath, []byte("[bake]\natlas_width = 128\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find impostor.toml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "bake flags",
			args: []string{"-atlas-width", "128", "-ppu", "32", "-narrow", "skip", "-padding", "0", "-workers", "3"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Bake.AtlasWidth != 128 || cfg.Bake.PixelsPerUnit != 32 {
					t.Errorf("unexpected bake config %+v", cfg.Bake)
				}
				if cfg.Bake.NarrowPolicy != "skip" || cfg.Bake.Workers != 3 {
					t.Errorf("unexpected bake config %+v", cfg.Bake)
				}
			},
		},
		{
			name: "output flags",
			args: []string{"-out", "build", "-format", "bmp", "-overlay"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Dir != "build" || cfg.Output.Format != "bmp" || !cfg.Output.Overlay {
					t.Errorf("unexpected output config %+v", cfg.Output)
				}
			},
		},
		{
			name: "unset flags keep defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				def := Default()
				if cfg.Bake != def.Bake || cfg.Render != def.Render || cfg.Output != def.Output {
					t.Errorf("config changed without flags: %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}

			// Apply flags to default config
			cfg := Default()
			flags.apply(cfg)

			// Verify
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
bake:
  atlas_width: 512
  padding: 3
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-atlas-width", "1024"}); err != nil {
		t.Fatal(err)
	}

	// Load config
	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1024), not file (512)
	if cfg.Bake.AtlasWidth != 1024 {
		t.Errorf("expected atlas width 1024 from flag, got %d", cfg.Bake.AtlasWidth)
	}

	// Padding should be from file (3) since no flag override
	if cfg.Bake.Padding != 3 {
		t.Errorf("expected padding 3 from file, got %d", cfg.Bake.Padding)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("bake:\n  narrow_policy: stretch\n"), 0644); err != nil {
		t.Fatal(err)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(flags); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	cfg := Default()
	cfg.Bake.Workers = 6
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(DefaultPath()); err != nil {
		t.Fatalf("config not written to %s: %v", DefaultPath(), err)
	}

	loaded, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bake.Workers != 6 {
		t.Errorf("expected saved workers 6, got %d", loaded.Bake.Workers)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := Default()
			cfg.Bake.AtlasWidth = 2048
			cfg.Render.LightDir = [3]float32{1, 0, 0}
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo failed: %v", err)
			}

			loaded := Default()
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("failed to reload: %v", err)
			}
			if loaded.Bake != cfg.Bake || loaded.Render != cfg.Render || loaded.Output != cfg.Output {
				t.Errorf("round trip mismatch: %+v vs %+v", loaded, cfg)
			}
			if loaded.Watch.Debounce != cfg.Watch.Debounce {
				t.Errorf("debounce %v, want %v", loaded.Watch.Debounce, cfg.Watch.Debounce)
			}
		})
	}
}
