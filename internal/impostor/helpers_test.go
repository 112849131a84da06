package impostor

import (
	"context"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// box returns an axis-aligned box with outward-wound quads in the order
// -Z, +Z, -Y, +Y, -X, +X.
func box(name string, min, max math.Vec3, c color.NRGBA) *mesh.Mesh {
	m := &mesh.Mesh{
		Name: name,
		Positions: []math.Vec3{
			{X: min.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: min.Y, Z: min.Z},
			{X: max.X, Y: max.Y, Z: min.Z},
			{X: min.X, Y: max.Y, Z: min.Z},
			{X: min.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: min.Y, Z: max.Z},
			{X: max.X, Y: max.Y, Z: max.Z},
			{X: min.X, Y: max.Y, Z: max.Z},
		},
	}
	for _, idx := range [][]int{
		{0, 3, 2, 1},
		{4, 5, 6, 7},
		{0, 1, 5, 4},
		{3, 7, 6, 2},
		{0, 4, 7, 3},
		{1, 2, 6, 5},
	} {
		m.Faces = append(m.Faces, mesh.Face{Indices: idx, Color: c})
	}
	return m
}

func cube(name string, half float32, c color.NRGBA) *mesh.Mesh {
	return box(name, math.Vec3{X: -half, Y: -half, Z: -half}, math.Vec3{X: half, Y: half, Z: half}, c)
}

var red = color.NRGBA{R: 255, A: 255}

// fillRenderer returns an opaque patch tinted by face index.
type fillRenderer struct{}

func (fillRenderer) Render(_ context.Context, req RenderRequest) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, req.Width, req.Height))
	c := color.NRGBA{R: uint8(40 * req.Face), G: 100, B: 200, A: 255}
	for y := 0; y < req.Height; y++ {
		for x := 0; x < req.Width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// rendererFunc adapts a function to Renderer.
type rendererFunc func(ctx context.Context, req RenderRequest) (*image.NRGBA, error)

func (f rendererFunc) Render(ctx context.Context, req RenderRequest) (*image.NRGBA, error) {
	return f(ctx, req)
}

func vec(x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}
}

func inUnitSquare(uv math.Vec2) bool {
	return uv.X >= 0 && uv.X <= 1 && uv.Y >= 0 && uv.Y <= 1
}

func uvDist(a, b math.Vec2) float32 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math32.Sqrt(dx*dx + dy*dy)
}

func placementOf(a *Atlas, face int) (AtlasPlacement, bool) {
	for _, p := range a.Placements {
		if p.Face == face {
			return p, true
		}
	}
	return AtlasPlacement{}, false
}
