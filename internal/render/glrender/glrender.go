// Package glrender is an OpenGL 4.1 snapshot renderer. It draws into an
// offscreen framebuffer owned by a hidden SDL2 window.
//
// All calls must come from the goroutine that created the Renderer, which
// must be running on the main OS thread.
package glrender

import (
	"context"
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/impostor/internal/impostor"
	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// Options configures the renderer.
type Options struct {
	Supersample int       // Render scale per axis, box-filtered down
	Ambient     float32   // 0..1 light floor
	LightDir    math.Vec3 // Direction light travels; zero means a headlight
}

// vertex is the interleaved vertex format. Face colour alpha is dropped;
// output alpha is coverage only.
type vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32
}

// Renderer draws source meshes with OpenGL.
type Renderer struct {
	mu   sync.Mutex
	opts Options
	log  *zap.Logger

	ctx *glContext
	fb  *framebuffer

	program     uint32
	locViewProj int32
	locLightDir int32
	locAmbient  int32

	vao         uint32
	vbo         uint32
	vertexCount int32
	uploaded    *mesh.Mesh
}

var _ impostor.Renderer = (*Renderer)(nil)

// New opens a hidden window and prepares the GL pipeline.
func New(opts Options, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}

	ctx, err := newContext(log)
	if err != nil {
		return nil, err
	}
	r := &Renderer{opts: opts, log: log, ctx: ctx}

	r.program, err = compileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("compiling shaders: %w", err)
	}
	r.locViewProj = uniform(r.program, "uViewProjection")
	r.locLightDir = uniform(r.program, "uLightDir")
	r.locAmbient = uniform(r.program, "uAmbient")

	r.fb, err = newFramebuffer(1, 1)
	if err != nil {
		r.Close()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	return r, nil
}

// Render draws req.Source through req.Camera.
func (r *Renderer) Render(ctx context.Context, req impostor.RenderRequest) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", req.Width, req.Height)
	}
	if req.Source == nil {
		return nil, impostor.ErrEmptySource
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.uploaded != req.Source {
		r.upload(req.Source)
	}

	ss := int32(r.opts.Supersample)
	r.fb.resize(int32(req.Width)*ss, int32(req.Height)*ss)
	r.fb.bind()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)

	cam := req.Camera
	viewProj := cam.ViewProjection()
	light := r.opts.LightDir
	if light.Length() == 0 {
		light = cam.Basis.Forward
	}

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	gl.Uniform3f(r.locLightDir, light.X, light.Y, light.Z)
	gl.Uniform1f(r.locAmbient, r.opts.Ambient)

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, r.vertexCount)
	gl.BindVertexArray(0)

	img := r.fb.readImage()
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("face %d: GL error 0x%x", req.Face, code)
	}
	if ss == 1 {
		return img, nil
	}
	out := image.NewNRGBA(image.Rect(0, 0, req.Width, req.Height))
	xdraw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out, nil
}

// upload replaces the vertex buffer with the triangles of m.
func (r *Renderer) upload(m *mesh.Mesh) {
	vertices := make([]vertex, 0, m.TriangleCount()*3)
	m.Triangles(func(tri mesh.Triangle) {
		n := tri.V[1].Sub(tri.V[0]).Cross(tri.V[2].Sub(tri.V[0])).Normalize()
		c := [3]float32{
			float32(tri.Color.R) / 255,
			float32(tri.Color.G) / 255,
			float32(tri.Color.B) / 255,
		}
		for _, v := range tri.V {
			vertices = append(vertices, vertex{Position: v.Array(), Normal: n.Array(), Color: c})
		}
	})

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	stride := int32(unsafe.Sizeof(vertex{}))
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*int(stride), unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	}

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 3, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(2)
	gl.BindVertexArray(0)

	r.vertexCount = int32(len(vertices))
	r.uploaded = m
	r.log.Debug("uploaded source mesh",
		zap.String("name", m.Name),
		zap.Int("triangles", len(vertices)/3))
}

// Close releases all GL resources and the window.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
		r.vbo = 0
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	if r.fb != nil {
		r.fb.destroy()
		r.fb = nil
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
		r.program = 0
	}
	if r.ctx != nil {
		r.ctx.close()
		r.ctx = nil
	}
}
