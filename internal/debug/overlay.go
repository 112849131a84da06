// Package debug provides atlas visualisation for inspecting bakes.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/impostor/internal/impostor"
)

// palette cycles outline colours so neighbouring patches differ.
var palette = [][3]float64{
	{1, 0.2, 0.2},
	{0.2, 1, 0.2},
	{0.3, 0.5, 1},
	{1, 1, 0.2},
	{1, 0.3, 1},
	{0.2, 1, 1},
}

// DrawPlacements returns a copy of atlas, enlarged by scale with nearest
// neighbour filtering, with every placement outlined. The reserved blank
// texel is outlined in grey.
func DrawPlacements(atlas image.Image, placements []impostor.AtlasPlacement, scale int) (image.Image, error) {
	dc, err := overlayContext(atlas, placements, scale)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), nil
}

// SaveOverlay writes the outlined atlas as a PNG.
func SaveOverlay(path string, atlas image.Image, placements []impostor.AtlasPlacement, scale int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	img, err := DrawPlacements(atlas, placements, scale)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saving overlay: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("saving overlay: %w", err)
	}
	return f.Close()
}

func overlayContext(atlas image.Image, placements []impostor.AtlasPlacement, scale int) (*gg.Context, error) {
	if scale < 1 {
		scale = 1
	}
	b := atlas.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty atlas %v", b)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.NearestNeighbor.Scale(canvas, canvas.Bounds(), atlas, b, xdraw.Src, nil)

	dc := gg.NewContextForImage(canvas)
	dc.SetLineWidth(1)
	s := float64(scale)
	for i, pl := range placements {
		if pl.Face == impostor.BlankFace {
			dc.SetRGBA(0.6, 0.6, 0.6, 1)
		} else {
			c := palette[i%len(palette)]
			dc.SetRGBA(c[0], c[1], c[2], 1)
		}
		// Half-pixel inset keeps 1px lines inside the patch.
		dc.DrawRectangle(float64(pl.X)*s+0.5, float64(pl.Y)*s+0.5, float64(pl.Width)*s-1, float64(pl.Height)*s-1)
		if err := dc.Stroke(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("outlining face %d: %w", pl.Face, err)
		}
	}
	return dc, nil
}
