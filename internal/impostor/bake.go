// Package impostor bakes a detailed source mesh into a texture atlas mapped
// onto a low-polygon proxy mesh.
//
// Every proxy face gets an orthographic snapshot of the source taken along
// the face's inward normal. Snapshots are packed on fixed-width shelves and
// each face's corners are remapped into its patch.
package impostor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// Renderer photographs the source mesh through a face camera.
//
// The returned image must be exactly Width x Height. Uncovered pixels have
// alpha 0; covered pixels alpha 255, or less at partially covered edges.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*image.NRGBA, error)
}

// RenderRequest is one snapshot job.
type RenderRequest struct {
	Face   int
	Camera FaceCamera
	Source *mesh.Mesh
	Width  int
	Height int
}

// ProgressFunc is called after each face is rendered. Calls are serialised.
type ProgressFunc func(done, total, face int)

// Options configures a bake.
type Options struct {
	AtlasWidth     int
	PixelsPerUnit  float32 // 0 derives from the largest face
	MinPatchPixels int
	Narrow         NarrowPolicy
	Wide           WidePolicy
	Padding        int
	Workers        int // >1 renders faces in parallel
	Progress       ProgressFunc
}

// DefaultOptions returns the standard bake settings.
func DefaultOptions() Options {
	return Options{
		AtlasWidth:     DefaultAtlasWidth,
		MinPatchPixels: DefaultMinPatchPixels,
		Narrow:         NarrowClamp,
		Wide:           WideDownscale,
		Workers:        1,
	}
}

func (o Options) validate() error {
	if o.AtlasWidth <= 0 {
		return fmt.Errorf("atlas width must be positive, got %d", o.AtlasWidth)
	}
	if o.PixelsPerUnit < 0 {
		return fmt.Errorf("pixels per unit must not be negative, got %v", o.PixelsPerUnit)
	}
	if o.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", o.Padding)
	}
	if _, err := ParseNarrowPolicy(string(o.Narrow)); err != nil {
		return err
	}
	if _, err := ParseWidePolicy(string(o.Wide)); err != nil {
		return err
	}
	return nil
}

// Result is a finished bake.
type Result struct {
	BakeID        uuid.UUID
	Atlas         *Atlas
	Faces         []ProxyFace
	Cameras       []FaceCamera
	UVs           [][]math.Vec2 // Per face, per corner
	PixelsPerUnit float32
	Skipped       []int
	Warnings      []error
	Duration      time.Duration
}

// ApplyUVs returns a copy of proxy carrying the baked UV layer.
func (r *Result) ApplyUVs(proxy *mesh.Mesh) (*mesh.Mesh, error) {
	if len(proxy.Faces) != len(r.UVs) {
		return nil, fmt.Errorf("%w: proxy has %d faces, bake has %d", mesh.ErrUVLayerMismatch, len(proxy.Faces), len(r.UVs))
	}
	return proxy.WithUVs(r.UVs)
}

// Baker runs the bake pipeline.
type Baker struct {
	renderer Renderer
	opts     Options
	log      *zap.Logger
}

// NewBaker creates a baker. Zero option fields fall back to DefaultOptions.
func NewBaker(r Renderer, opts Options, log *zap.Logger) *Baker {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.AtlasWidth == 0 {
		opts.AtlasWidth = def.AtlasWidth
	}
	if opts.MinPatchPixels == 0 {
		opts.MinPatchPixels = def.MinPatchPixels
	}
	if opts.Narrow == "" {
		opts.Narrow = def.Narrow
	}
	if opts.Wide == "" {
		opts.Wide = def.Wide
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Baker{renderer: r, opts: opts, log: log}
}

// Bake photographs source once per proxy face and packs the snapshots.
// proxy is not modified; use Result.ApplyUVs to get the mapped copy.
func (b *Baker) Bake(ctx context.Context, source, proxy *mesh.Mesh) (*Result, error) {
	start := time.Now()
	if err := b.opts.validate(); err != nil {
		return nil, err
	}
	if b.renderer == nil {
		return nil, errors.New("bake: no renderer")
	}

	src, err := NewSourceBounds(source)
	if err != nil {
		return nil, err
	}
	faces, err := AnalyzeProxy(proxy)
	if err != nil {
		return nil, err
	}

	res := &Result{
		BakeID: uuid.New(),
		Faces:  faces,
	}
	res.PixelsPerUnit = ResolvePixelsPerUnit(faces, src, b.opts.AtlasWidth, b.opts.PixelsPerUnit)

	log := b.log.With(zap.String("bake_id", res.BakeID.String()))
	log.Info("bake started",
		zap.String("source", source.Name),
		zap.String("proxy", proxy.Name),
		zap.Int("faces", len(faces)),
		zap.Float32("pixels_per_unit", res.PixelsPerUnit),
		zap.Int("atlas_width", b.opts.AtlasWidth))

	camOpts := CameraOptions{
		PixelsPerUnit:  res.PixelsPerUnit,
		MinPatchPixels: b.opts.MinPatchPixels,
		Narrow:         b.opts.Narrow,
	}
	if b.opts.Wide == WideDownscale {
		// Render wide faces at their final size instead of shrinking afterwards.
		camOpts.MaxPixelWidth = b.opts.AtlasWidth
	}
	res.Cameras = make([]FaceCamera, len(faces))
	for i, f := range faces {
		cam, err := DeriveCamera(f, src, camOpts)
		if err != nil {
			return nil, err
		}
		if cam.Narrow != nil {
			res.Warnings = append(res.Warnings, cam.Narrow)
			log.Warn("narrow face", zap.Int("face", i), zap.Error(cam.Narrow))
		}
		if cam.Skip {
			res.Skipped = append(res.Skipped, i)
		}
		if cam.Downscaled {
			log.Warn("face wider than atlas, rendering downscaled",
				zap.Int("face", i),
				zap.Int("width", cam.PixelWidth),
				zap.Int("height", cam.PixelHeight))
		}
		res.Cameras[i] = cam
	}

	patches, err := b.render(ctx, source, res.Cameras)
	if err != nil {
		return nil, err
	}

	packer := NewPacker(b.opts.AtlasWidth, b.opts.Padding, b.opts.Wide, log)
	placements := make([]AtlasPlacement, len(faces))
	for i, cam := range res.Cameras {
		if cam.Skip {
			continue
		}
		pl, err := packer.Place(RenderedPatch{
			Face:   i,
			Image:  patches[i],
			Width:  cam.PixelWidth,
			Height: cam.PixelHeight,
			Scaled: cam.Downscaled,
		})
		if err != nil {
			return nil, err
		}
		patches[i] = nil
		placements[i] = pl
	}
	var blank AtlasPlacement
	if len(res.Skipped) > 0 {
		blank = packer.PlaceBlank()
	}
	res.Atlas = packer.Finish()

	res.UVs = make([][]math.Vec2, len(faces))
	for i, f := range faces {
		if res.Cameras[i].Skip {
			res.UVs[i] = blankUVs(len(f.Vertices), blank, res.Atlas.Width, res.Atlas.Height)
			continue
		}
		res.UVs[i] = RemapUVs(f, res.Cameras[i], placements[i], res.Atlas.Width, res.Atlas.Height)
	}

	res.Duration = time.Since(start)
	log.Info("bake finished",
		zap.Int("atlas_height", res.Atlas.Height),
		zap.Int("patches", len(res.Atlas.Placements)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// render photographs every non-skipped face. Results are indexed by face so
// packing order never depends on scheduling.
func (b *Baker) render(ctx context.Context, source *mesh.Mesh, cams []FaceCamera) ([]*image.NRGBA, error) {
	patches := make([]*image.NRGBA, len(cams))

	total := 0
	for _, c := range cams {
		if !c.Skip {
			total++
		}
	}

	var mu sync.Mutex
	done := 0
	one := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cam := cams[i]
		img, err := b.renderer.Render(ctx, RenderRequest{
			Face:   i,
			Camera: cam,
			Source: source,
			Width:  cam.PixelWidth,
			Height: cam.PixelHeight,
		})
		if err != nil {
			return fmt.Errorf("render face %d: %w", i, err)
		}
		if img == nil {
			return &RenderSizeError{Face: i, WantWidth: cam.PixelWidth, WantHeight: cam.PixelHeight}
		}
		if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != cam.PixelWidth || h != cam.PixelHeight {
			return &RenderSizeError{Face: i, Width: w, Height: h, WantWidth: cam.PixelWidth, WantHeight: cam.PixelHeight}
		}
		patches[i] = img

		b.log.Debug("rendered face",
			zap.Int("face", i),
			zap.Int("width", cam.PixelWidth),
			zap.Int("height", cam.PixelHeight))

		mu.Lock()
		defer mu.Unlock()
		done++
		if b.opts.Progress != nil {
			b.opts.Progress(done, total, i)
		}
		return nil
	}

	if b.opts.Workers <= 1 {
		for i := range cams {
			if cams[i].Skip {
				continue
			}
			if err := one(ctx, i); err != nil {
				return nil, err
			}
		}
		return patches, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i := range cams {
		if cams[i].Skip {
			continue
		}
		g.Go(func() error { return one(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return patches, nil
}
