package impostor

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// NarrowPolicy selects what happens to a face below the pixel floor.
type NarrowPolicy string

const (
	NarrowClamp NarrowPolicy = "clamp"
	NarrowSkip  NarrowPolicy = "skip"
	NarrowFail  NarrowPolicy = "fail"
)

// ParseNarrowPolicy validates a policy name. Empty means clamp.
func ParseNarrowPolicy(s string) (NarrowPolicy, error) {
	switch NarrowPolicy(s) {
	case "", NarrowClamp:
		return NarrowClamp, nil
	case NarrowSkip, NarrowFail:
		return NarrowPolicy(s), nil
	}
	return "", fmt.Errorf("unknown narrow policy %q (want clamp, skip or fail)", s)
}

// DefaultMinPatchPixels is the pixel floor for either patch axis.
const DefaultMinPatchPixels = 4

// pixelSlack absorbs float error before rounding a patch size up.
const pixelSlack = 1e-3

// SourceBounds is the bounding volume of the source geometry.
type SourceBounds struct {
	Box    math.AABB
	Center math.Vec3
	Radius float32
}

// NewSourceBounds measures the source mesh.
func NewSourceBounds(source *mesh.Mesh) (SourceBounds, error) {
	if source == nil || len(source.Faces) == 0 {
		return SourceBounds{}, ErrEmptySource
	}
	if err := source.Validate(); err != nil {
		return SourceBounds{}, fmt.Errorf("source mesh: %w", err)
	}
	box := source.Bounds()
	if box.IsEmpty() {
		return SourceBounds{}, ErrEmptySource
	}
	return SourceBounds{Box: box, Center: box.Center(), Radius: box.Radius()}, nil
}

// CameraOptions holds the knobs the Camera Deriver needs.
type CameraOptions struct {
	PixelsPerUnit  float32
	MinPatchPixels int
	Narrow         NarrowPolicy

	// MaxPixelWidth caps the patch width, keeping its aspect. 0 means no cap.
	MaxPixelWidth int
}

// FaceCamera is the orthographic camera that photographs the source for one
// proxy face. Frustum bounds are relative to Origin on Basis.Right/Up.
type FaceCamera struct {
	Face   int
	Basis  math.Basis
	Origin math.Vec3
	Near   float32
	Far    float32

	MinU, MaxU float32
	MinV, MaxV float32

	PixelWidth  int
	PixelHeight int

	// Narrow is set when the pixel floor applied to this face.
	Narrow *NarrowFaceWarning
	// Skip marks a face left out of the atlas by the skip policy.
	Skip bool
	// Downscaled is set when MaxPixelWidth shrank the patch.
	Downscaled bool
}

// FrustumWidth returns the frustum extent along Basis.Right.
func (c FaceCamera) FrustumWidth() float32 { return c.MaxU - c.MinU }

// FrustumHeight returns the frustum extent along Basis.Up.
func (c FaceCamera) FrustumHeight() float32 { return c.MaxV - c.MinV }

// Project maps a model-space point to patch-local coordinates: x grows to
// the right and y grows downward, both 0..1 across the frustum. depth is the
// distance from the camera plane along Basis.Forward.
func (c FaceCamera) Project(p math.Vec3) (x, y, depth float32) {
	d := p.Sub(c.Origin)
	x = (d.Dot(c.Basis.Right) - c.MinU) / c.FrustumWidth()
	y = (c.MaxV - d.Dot(c.Basis.Up)) / c.FrustumHeight()
	depth = d.Dot(c.Basis.Forward)
	return x, y, depth
}

// View returns the world-to-camera matrix.
func (c FaceCamera) View() math.Mat4 {
	return math.View(c.Origin, c.Basis)
}

// Projection returns the orthographic projection matching the frustum.
func (c FaceCamera) Projection() math.Mat4 {
	return math.Ortho(c.MinU, c.MaxU, c.MinV, c.MaxV, c.Near, c.Far)
}

// ViewProjection returns Projection() * View().
func (c FaceCamera) ViewProjection() math.Mat4 {
	return c.Projection().Mul(c.View())
}

// frame is the camera placement before the pixel floor is applied.
type frame struct {
	origin     math.Vec3
	near, far  float32
	minU, maxU float32
	minV, maxV float32
}

func frameFace(face ProxyFace, src SourceBounds) frame {
	dist := face.Centroid.Distance(src.Center)
	standoff := math32.Max(src.Radius*0.01, 1e-3)
	d := src.Radius + dist + standoff
	origin := face.Centroid.Add(face.Normal.Scale(d))

	// Origin lies on the face normal, so its in-plane offset equals the
	// centroid's projection.
	o := face.Basis.Project(origin)
	fr := frame{
		origin: origin,
		near:   0,
		far:    2*d + src.Radius,
		minU:   math32.Inf(1),
		maxU:   math32.Inf(-1),
		minV:   math32.Inf(1),
		maxV:   math32.Inf(-1),
	}
	include := func(p math.Vec2) {
		u, v := p.X-o.X, p.Y-o.Y
		fr.minU, fr.maxU = math32.Min(fr.minU, u), math32.Max(fr.maxU, u)
		fr.minV, fr.maxV = math32.Min(fr.minV, v), math32.Max(fr.maxV, v)
	}
	for _, c := range src.Box.Corners() {
		include(face.Basis.Project(c))
	}
	include(face.Min)
	include(face.Max)
	return fr
}

// ResolvePixelsPerUnit returns configured when positive. Otherwise it picks
// the density at which the largest frustum extent, on either axis, spans
// exactly the atlas width. Tall sources therefore never yield patches taller
// than the atlas is wide.
func ResolvePixelsPerUnit(faces []ProxyFace, src SourceBounds, atlasWidth int, configured float32) float32 {
	if configured > 0 {
		return configured
	}
	var largest float32
	for _, f := range faces {
		fr := frameFace(f, src)
		largest = math32.Max(largest, math32.Max(fr.maxU-fr.minU, fr.maxV-fr.minV))
	}
	if largest <= 0 {
		return float32(atlasWidth)
	}
	return float32(atlasWidth) / largest
}

// DeriveCamera places the orthographic camera for one proxy face and sizes
// its patch. A frustum below the pixel floor is handled by opts.Narrow.
func DeriveCamera(face ProxyFace, src SourceBounds, opts CameraOptions) (FaceCamera, error) {
	if opts.PixelsPerUnit <= 0 || math32.IsInf(opts.PixelsPerUnit, 0) || math32.IsNaN(opts.PixelsPerUnit) {
		return FaceCamera{}, fmt.Errorf("face %d: invalid pixels per unit %v", face.Index, opts.PixelsPerUnit)
	}
	floor := opts.MinPatchPixels
	if floor < 1 {
		floor = 1
	}
	policy := opts.Narrow
	if policy == "" {
		policy = NarrowClamp
	}

	fr := frameFace(face, src)
	cam := FaceCamera{
		Face:   face.Index,
		Basis:  face.Basis,
		Origin: fr.origin,
		Near:   fr.near,
		Far:    fr.far,
		MinU:   fr.minU,
		MaxU:   fr.maxU,
		MinV:   fr.minV,
		MaxV:   fr.maxV,
	}

	ppu := opts.PixelsPerUnit
	minExtent := float32(floor) / ppu
	for _, axis := range []string{"width", "height"} {
		lo, hi := &cam.MinU, &cam.MaxU
		if axis == "height" {
			lo, hi = &cam.MinV, &cam.MaxV
		}
		px := (*hi - *lo) * ppu
		if px >= float32(floor) {
			continue
		}
		w := &NarrowFaceWarning{Face: face.Index, Axis: axis, Pixels: px, Floor: floor, Action: policy}
		switch policy {
		case NarrowFail:
			return FaceCamera{}, &NarrowFaceError{NarrowFaceWarning: *w}
		case NarrowSkip:
			cam.Skip = true
		default:
			mid := (*lo + *hi) / 2
			*lo, *hi = mid-minExtent/2, mid+minExtent/2
		}
		if cam.Narrow == nil {
			cam.Narrow = w
		}
	}

	// A skipped face still gets a non-empty frustum so Project stays finite.
	if cam.Skip {
		for _, b := range [][2]*float32{{&cam.MinU, &cam.MaxU}, {&cam.MinV, &cam.MaxV}} {
			if *b[1]-*b[0] < minExtent {
				mid := (*b[0] + *b[1]) / 2
				*b[0], *b[1] = mid-minExtent/2, mid+minExtent/2
			}
		}
	}

	cam.PixelWidth = pixelSize(cam.FrustumWidth(), ppu)
	cam.PixelHeight = pixelSize(cam.FrustumHeight(), ppu)
	if limit := opts.MaxPixelWidth; limit > 0 && cam.PixelWidth > limit {
		h := int(float64(cam.PixelHeight)*float64(limit)/float64(cam.PixelWidth) + 0.5)
		if h < 1 {
			h = 1
		}
		cam.PixelWidth, cam.PixelHeight = limit, h
		cam.Downscaled = true
	}
	return cam, nil
}

func pixelSize(extent, ppu float32) int {
	n := int(math32.Ceil(extent*ppu - pixelSlack))
	if n < 1 {
		n = 1
	}
	return n
}
