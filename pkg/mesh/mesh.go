// Package mesh provides an immutable polygon mesh snapshot and readers and
// writers for the model formats the impostor baker accepts.
package mesh

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/Faultbox/impostor/pkg/math"
)

// Mesh errors.
var (
	ErrIndexOutOfRange = errors.New("face vertex index out of range")
	ErrUVLayerMismatch = errors.New("uv layer does not match faces")
)

// DefaultColor is used for faces without a material colour.
var DefaultColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}

// Face is a polygon with at least three corners.
type Face struct {
	Indices  []int       // Indices into Mesh.Positions
	Color    color.NRGBA // Diffuse colour
	Material string      // Material name (may be empty)
}

// Mesh is a polygon mesh snapshot. Meshes returned by this package are not
// modified after construction; operations that change data return copies.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	Faces     []Face

	// UVs holds one coordinate per face corner, parallel to Faces.
	// Nil when the mesh has no UV layer.
	UVs [][]math.Vec2
}

// Validate checks that every face index is in range and that the UV layer,
// if present, matches the face layout.
func (m *Mesh) Validate() error {
	for fi, f := range m.Faces {
		for _, idx := range f.Indices {
			if idx < 0 || idx >= len(m.Positions) {
				return fmt.Errorf("%w: face %d index %d (%d positions)", ErrIndexOutOfRange, fi, idx, len(m.Positions))
			}
		}
	}
	if m.UVs != nil {
		if len(m.UVs) != len(m.Faces) {
			return fmt.Errorf("%w: %d uv faces for %d faces", ErrUVLayerMismatch, len(m.UVs), len(m.Faces))
		}
		for fi, uvs := range m.UVs {
			if len(uvs) != len(m.Faces[fi].Indices) {
				return fmt.Errorf("%w: face %d has %d corners, %d uvs", ErrUVLayerMismatch, fi, len(m.Faces[fi].Indices), len(uvs))
			}
		}
	}
	return nil
}

// FaceVertices returns the positions of face i in winding order.
func (m *Mesh) FaceVertices(i int) []math.Vec3 {
	f := m.Faces[i]
	verts := make([]math.Vec3, len(f.Indices))
	for j, idx := range f.Indices {
		verts[j] = m.Positions[idx]
	}
	return verts
}

// Bounds returns the axis-aligned bounding box of all referenced positions.
func (m *Mesh) Bounds() math.AABB {
	b := math.EmptyAABB()
	for _, f := range m.Faces {
		for _, idx := range f.Indices {
			b = b.Extend(m.Positions[idx])
		}
	}
	return b
}

// Triangle is one triangle of a fan-triangulated face.
type Triangle struct {
	Face  int
	V     [3]math.Vec3
	Color color.NRGBA
}

// Triangles fan-triangulates every face and calls fn for each triangle.
// Faces with fewer than three corners are ignored.
func (m *Mesh) Triangles(fn func(Triangle)) {
	for fi, f := range m.Faces {
		if len(f.Indices) < 3 {
			continue
		}
		v0 := m.Positions[f.Indices[0]]
		for j := 1; j+1 < len(f.Indices); j++ {
			fn(Triangle{
				Face:  fi,
				V:     [3]math.Vec3{v0, m.Positions[f.Indices[j]], m.Positions[f.Indices[j+1]]},
				Color: f.Color,
			})
		}
	}
}

// TriangleCount returns the number of triangles Triangles would produce.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f.Indices) >= 3 {
			n += len(f.Indices) - 2
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Name:      m.Name,
		Positions: append([]math.Vec3(nil), m.Positions...),
		Faces:     make([]Face, len(m.Faces)),
	}
	for i, f := range m.Faces {
		f.Indices = append([]int(nil), f.Indices...)
		out.Faces[i] = f
	}
	if m.UVs != nil {
		out.UVs = make([][]math.Vec2, len(m.UVs))
		for i, uvs := range m.UVs {
			out.UVs[i] = append([]math.Vec2(nil), uvs...)
		}
	}
	return out
}

// WithUVs returns a copy of m carrying the given UV layer.
func (m *Mesh) WithUVs(uvs [][]math.Vec2) (*Mesh, error) {
	out := m.Clone()
	out.UVs = make([][]math.Vec2, len(uvs))
	for i, layer := range uvs {
		out.UVs[i] = append([]math.Vec2(nil), layer...)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge concatenates meshes into a single mesh with the given name.
// UV layers are dropped.
func Merge(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{Name: name}
	for _, m := range meshes {
		base := len(out.Positions)
		out.Positions = append(out.Positions, m.Positions...)
		for _, f := range m.Faces {
			idx := make([]int, len(f.Indices))
			for j, v := range f.Indices {
				idx[j] = v + base
			}
			out.Faces = append(out.Faces, Face{Indices: idx, Color: f.Color, Material: f.Material})
		}
	}
	return out
}
