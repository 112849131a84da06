package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/impostor/internal/binder"
	"github.com/Faultbox/impostor/internal/config"
	"github.com/Faultbox/impostor/internal/debug"
	"github.com/Faultbox/impostor/internal/impostor"
	"github.com/Faultbox/impostor/internal/logger"
	"github.com/Faultbox/impostor/internal/render/glrender"
	"github.com/Faultbox/impostor/internal/render/soft"
	"github.com/Faultbox/impostor/pkg/mesh"
)

func cmdBake(args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: impostor bake [options] <model>...")
		os.Exit(1)
	}

	cfg := setup(flags)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, closeRenderer, err := newRenderer(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeRenderer()

	out, res, err := bakeFiles(ctx, cfg, r, fs.Args())
	if err != nil {
		fatal(err)
	}
	printSummary(out, res)
}

// setup loads config and starts logging.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	logger.Debug("config loaded",
		zap.String("backend", cfg.Render.Backend),
		zap.Int("atlas_width", cfg.Bake.AtlasWidth),
		zap.Float32("pixels_per_unit", cfg.Bake.PixelsPerUnit),
		zap.Int("workers", cfg.Bake.Workers),
		zap.String("output", cfg.Output.Dir))
	return cfg
}

func newRenderer(cfg *config.Config) (impostor.Renderer, func(), error) {
	switch cfg.Render.Backend {
	case config.BackendGL:
		r, err := glrender.New(glrender.Options{
			Supersample: cfg.Render.Supersample,
			Ambient:     cfg.Render.Ambient,
			LightDir:    cfg.Render.LightDirection(),
		}, logger.Named("gl"))
		if err != nil {
			return nil, nil, fmt.Errorf("starting gl backend: %w", err)
		}
		return r, r.Close, nil
	default:
		r := soft.New(soft.Options{
			Supersample: cfg.Render.Supersample,
			Ambient:     cfg.Render.Ambient,
			LightDir:    cfg.Render.LightDirection(),
		})
		return r, func() {}, nil
	}
}

// loadSelection reads every model file in order and splits the objects into
// source and proxy.
func loadSelection(paths []string) (source, proxy *mesh.Mesh, err error) {
	var objects []*mesh.Mesh
	for _, p := range paths {
		meshes, err := mesh.Load(p)
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", p, err)
		}
		for _, m := range meshes {
			if m.Name == "" {
				m.Name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			}
		}
		objects = append(objects, meshes...)
	}
	return mesh.SplitSelection(objects)
}

// bakeFiles runs the full pipeline on the given model files.
func bakeFiles(ctx context.Context, cfg *config.Config, r impostor.Renderer, paths []string) (*binder.Output, *impostor.Result, error) {
	log := logger.Named("bake")

	source, proxy, err := loadSelection(paths)
	if err != nil {
		return nil, nil, err
	}
	log.Info("loaded models",
		zap.Strings("files", paths),
		zap.String("source", source.Name),
		zap.Int("source_triangles", source.TriangleCount()),
		zap.String("proxy", proxy.Name),
		zap.Int("proxy_faces", len(proxy.Faces)))

	opts, err := cfg.BakeOptions()
	if err != nil {
		return nil, nil, err
	}
	opts.Progress = func(done, total, face int) {
		log.Debug("progress", zap.Int("done", done), zap.Int("total", total), zap.Int("face", face))
	}

	res, err := impostor.NewBaker(r, opts, log).Bake(ctx, source, proxy)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range res.Warnings {
		logger.Warn(w.Error())
	}

	format, err := binder.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, nil, err
	}
	out, err := binder.Bind(res, proxy, binder.BindOptions{
		Dir:        cfg.Output.Dir,
		Format:     format,
		SourceName: source.Name,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.Output.Overlay {
		path := filepath.Join(cfg.Output.Dir, out.Material+".overlay.png")
		if err := debug.SaveOverlay(path, res.Atlas.Image, res.Atlas.Placements, cfg.Output.OverlayScale); err != nil {
			return nil, nil, err
		}
		log.Info("wrote overlay", zap.String("path", path))
	}
	return out, res, nil
}

func printSummary(out *binder.Output, res *impostor.Result) {
	fmt.Printf("Bake:      %s\n", res.BakeID)
	fmt.Printf("Proxy:     %s (%d faces)\n", out.Name, len(res.Faces))
	fmt.Printf("Atlas:     %dx%d, %.3f px/unit\n", res.Atlas.Width, res.Atlas.Height, res.PixelsPerUnit)
	if len(res.Skipped) > 0 {
		fmt.Printf("Skipped:   %v\n", res.Skipped)
	}
	if len(res.Warnings) > 0 {
		fmt.Printf("Warnings:  %d\n", len(res.Warnings))
	}
	fmt.Println("Wrote:")
	for _, p := range []string{out.ImagePath, out.MTLPath, out.OBJPath, out.ManifestPath} {
		fmt.Printf("  %s\n", p)
	}
}
