package impostor

import (
	"fmt"
	"image"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// DefaultAtlasWidth is the fixed atlas width in pixels.
const DefaultAtlasWidth = 256

// BlankFace marks the reserved transparent texel used by skipped faces.
const BlankFace = -1

// WidePolicy selects what happens to a patch wider than the atlas.
type WidePolicy string

const (
	WideDownscale WidePolicy = "downscale"
	WideReject    WidePolicy = "reject"
)

// ParseWidePolicy validates a policy name. Empty means downscale.
func ParseWidePolicy(s string) (WidePolicy, error) {
	switch WidePolicy(s) {
	case "", WideDownscale:
		return WideDownscale, nil
	case WideReject:
		return WideReject, nil
	}
	return "", fmt.Errorf("unknown wide policy %q (want downscale or reject)", s)
}

// RenderedPatch is one face snapshot waiting to be packed.
type RenderedPatch struct {
	Face   int
	Image  *image.NRGBA
	Width  int
	Height int
	Scaled bool // Already rendered below its natural size
}

// AtlasPlacement is where a patch landed in the atlas (top-left origin).
type AtlasPlacement struct {
	Face   int  `yaml:"face"`
	X      int  `yaml:"x"`
	Y      int  `yaml:"y"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	Scaled bool `yaml:"scaled,omitempty"`
}

// Rect returns the placement as an image rectangle.
func (p AtlasPlacement) Rect() image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
}

// Atlas is the packed texture.
type Atlas struct {
	Width      int
	Height     int
	Image      *image.NRGBA
	Placements []AtlasPlacement
}

// Packer places patches on fixed-width shelves in the order given.
// It is not safe for concurrent use.
type Packer struct {
	width   int
	padding int
	policy  WidePolicy
	log     *zap.Logger

	x, y      int // cursor
	rowHeight int

	canvas     *image.NRGBA
	placements []AtlasPlacement
}

// NewPacker creates a packer for an atlas of the given width.
func NewPacker(width, padding int, policy WidePolicy, log *zap.Logger) *Packer {
	if log == nil {
		log = zap.NewNop()
	}
	if padding < 0 {
		padding = 0
	}
	if policy == "" {
		policy = WideDownscale
	}
	return &Packer{
		width:   width,
		padding: padding,
		policy:  policy,
		log:     log,
		canvas:  image.NewNRGBA(image.Rect(0, 0, width, 0)),
	}
}

// Place copies the patch into the atlas and returns where it went.
func (p *Packer) Place(patch RenderedPatch) (AtlasPlacement, error) {
	img := patch.Image
	w, h := patch.Width, patch.Height
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	if w <= 0 || h <= 0 {
		return AtlasPlacement{}, fmt.Errorf("patch for face %d has empty size %dx%d", patch.Face, w, h)
	}

	scaled := patch.Scaled
	if w > p.width {
		if p.policy == WideReject {
			return AtlasPlacement{}, &PatchTooWideError{Face: patch.Face, Width: w, AtlasWidth: p.width}
		}
		nh := int(float64(h)*float64(p.width)/float64(w) + 0.5)
		if nh < 1 {
			nh = 1
		}
		p.log.Warn("downscaling patch wider than atlas",
			zap.Int("face", patch.Face),
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Int("atlas_width", p.width),
			zap.Int("scaled_height", nh))
		if img != nil {
			dst := image.NewNRGBA(image.Rect(0, 0, p.width, nh))
			xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
			img = dst
		}
		w, h, scaled = p.width, nh, true
	}

	if p.x > 0 && p.x+w > p.width {
		p.y += p.rowHeight + p.padding
		p.x, p.rowHeight = 0, 0
	}

	pl := AtlasPlacement{Face: patch.Face, X: p.x, Y: p.y, Width: w, Height: h, Scaled: scaled}
	p.grow(p.y + h)
	if img != nil {
		xdraw.Draw(p.canvas, pl.Rect(), img, img.Bounds().Min, xdraw.Src)
	}

	p.x += w + p.padding
	if h > p.rowHeight {
		p.rowHeight = h
	}
	p.placements = append(p.placements, pl)

	p.log.Debug("placed patch",
		zap.Int("face", pl.Face),
		zap.Int("x", pl.X),
		zap.Int("y", pl.Y),
		zap.Int("width", pl.Width),
		zap.Int("height", pl.Height))
	return pl, nil
}

// PlaceBlank reserves a 1x1 transparent texel after the last patch.
func (p *Packer) PlaceBlank() AtlasPlacement {
	pl, _ := p.Place(RenderedPatch{Face: BlankFace, Width: 1, Height: 1})
	return pl
}

// Height returns the atlas height so far.
func (p *Packer) Height() int {
	return p.y + p.rowHeight
}

// Finish returns the packed atlas. The packer must not be used afterwards.
func (p *Packer) Finish() *Atlas {
	h := p.Height()
	img := p.canvas
	if img.Bounds().Dy() != h {
		img = image.NewNRGBA(image.Rect(0, 0, p.width, h))
		copy(img.Pix, p.canvas.Pix[:len(img.Pix)])
	}
	p.canvas = nil
	return &Atlas{
		Width:      p.width,
		Height:     h,
		Image:      img,
		Placements: p.placements,
	}
}

// grow makes the canvas at least h rows tall, doubling to amortise copies.
func (p *Packer) grow(h int) {
	cur := p.canvas.Bounds().Dy()
	if h <= cur {
		return
	}
	n := cur * 2
	if n < h {
		n = h
	}
	next := image.NewNRGBA(image.Rect(0, 0, p.width, n))
	copy(next.Pix, p.canvas.Pix)
	p.canvas = next
}
