// Package soft is a software snapshot renderer: an orthographic z-buffered
// triangle rasterizer with supersampled coverage alpha.
package soft

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/impostor/internal/impostor"
	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// Default shading settings.
const (
	DefaultSupersample = 2
	DefaultAmbient     = 0.35
)

// cancelCheckEvery is how many triangles are drawn between context checks.
const cancelCheckEvery = 256

// Options configures the renderer.
type Options struct {
	Supersample int       // Samples per pixel axis (1 = no antialiasing)
	Ambient     float32   // 0..1 light floor
	LightDir    math.Vec3 // Direction light travels; zero means a headlight
}

// Renderer rasterizes the source mesh through a face camera.
// It keeps no per-render state and is safe for concurrent use.
type Renderer struct {
	opts Options
}

// New creates a software renderer.
func New(opts Options) *Renderer {
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	opts.Ambient = math32.Max(0, math32.Min(1, opts.Ambient))
	return &Renderer{opts: opts}
}

var _ impostor.Renderer = (*Renderer)(nil)

// target is one supersampled render target.
type target struct {
	width, height int
	depth         []float32
	color         []color.NRGBA
	covered       []bool
}

func newTarget(w, h int) *target {
	t := &target{
		width:   w,
		height:  h,
		depth:   make([]float32, w*h),
		color:   make([]color.NRGBA, w*h),
		covered: make([]bool, w*h),
	}
	for i := range t.depth {
		t.depth[i] = math32.Inf(1)
	}
	return t
}

// screenVertex is a vertex in sample space.
type screenVertex struct {
	X, Y, Z float32
}

// Render draws req.Source and returns a Width x Height image. Uncovered
// pixels are fully transparent.
func (r *Renderer) Render(ctx context.Context, req impostor.RenderRequest) (*image.NRGBA, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", req.Width, req.Height)
	}
	if req.Source == nil {
		return nil, impostor.ErrEmptySource
	}

	ss := r.opts.Supersample
	t := newTarget(req.Width*ss, req.Height*ss)
	cam := req.Camera

	light := r.opts.LightDir
	if light.Length() == 0 {
		light = cam.Basis.Forward
	}
	light = light.Normalize()

	var drawn int
	var err error
	req.Source.Triangles(func(tri mesh.Triangle) {
		if err != nil {
			return
		}
		drawn++
		if drawn%cancelCheckEvery == 0 {
			if err = ctx.Err(); err != nil {
				return
			}
		}
		r.drawTriangle(t, cam, tri, light)
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return t.resolve(req.Width, req.Height, ss), nil
}

// drawTriangle rasterizes one triangle with a depth test. Both windings are
// drawn so open meshes still show their inside.
func (r *Renderer) drawTriangle(t *target, cam impostor.FaceCamera, tri mesh.Triangle, light math.Vec3) {
	var sv [3]screenVertex
	for i, v := range tri.V {
		x, y, depth := cam.Project(v)
		sv[i] = screenVertex{X: x * float32(t.width), Y: y * float32(t.height), Z: depth}
	}

	area := edge(sv[0], sv[1], sv[2].X, sv[2].Y)
	if math32.Abs(area) < 1e-12 {
		return
	}

	shade := r.shade(tri, light)

	minX := int(math32.Max(0, math32.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := int(math32.Min(float32(t.width-1), math32.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := int(math32.Max(0, math32.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := int(math32.Min(float32(t.height-1), math32.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))

	inv := 1 / area
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5

			w0 := edge(sv[1], sv[2], px, py) * inv
			w1 := edge(sv[2], sv[0], px, py) * inv
			w2 := edge(sv[0], sv[1], px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*sv[0].Z + w1*sv[1].Z + w2*sv[2].Z
			if z < cam.Near || z > cam.Far {
				continue
			}
			i := y*t.width + x
			if z >= t.depth[i] {
				continue
			}
			t.depth[i] = z
			t.color[i] = shade
			t.covered[i] = true
		}
	}
}

// shade applies two-sided Lambert lighting to the face colour. Face colour
// alpha is ignored; output alpha is coverage only.
func (r *Renderer) shade(tri mesh.Triangle, light math.Vec3) color.NRGBA {
	n := tri.V[1].Sub(tri.V[0]).Cross(tri.V[2].Sub(tri.V[0])).Normalize()
	lambert := math32.Abs(n.Dot(light))
	k := r.opts.Ambient + (1-r.opts.Ambient)*lambert

	c := tri.Color
	return color.NRGBA{
		R: scale8(c.R, k),
		G: scale8(c.G, k),
		B: scale8(c.B, k),
		A: 255,
	}
}

// resolve box-filters ss x ss samples into each output pixel. Alpha is the
// covered fraction; colour is the mean of covered samples.
func (t *target) resolve(w, h, ss int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := ss * ss
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var rs, gs, bs, count int
			for sy := 0; sy < ss; sy++ {
				row := (y*ss + sy) * t.width
				for sx := 0; sx < ss; sx++ {
					i := row + x*ss + sx
					if !t.covered[i] {
						continue
					}
					c := t.color[i]
					rs += int(c.R)
					gs += int(c.G)
					bs += int(c.B)
					count++
				}
			}
			if count == 0 {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rs / count),
				G: uint8(gs / count),
				B: uint8(bs / count),
				A: uint8((count*255 + n/2) / n),
			})
		}
	}
	return img
}

// edge is the signed doubled area of (a, b, p).
func edge(a, b screenVertex, px, py float32) float32 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

func scale8(v uint8, k float32) uint8 {
	f := float32(v)*k + 0.5
	if f > 255 {
		return 255
	}
	return uint8(f)
}

func min3(a, b, c float32) float32 {
	return math32.Min(a, math32.Min(b, c))
}

func max3(a, b, c float32) float32 {
	return math32.Max(a, math32.Max(b, c))
}
