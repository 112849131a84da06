package impostor

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// areaEpsilon is the smallest accepted |normal|² relative to the face's
// squared edge scale.
const areaEpsilon = 1e-10

// ProxyFace is one analysed face of the proxy mesh.
type ProxyFace struct {
	Index    int
	Vertices []math.Vec3 // Model space, winding order
	Normal   math.Vec3   // Unit, outward by winding
	Centroid math.Vec3
	Basis    math.Basis // Forward = -Normal

	// In-plane extents: bounding box of the vertices projected on
	// Basis.Right (X) and Basis.Up (Y).
	Min math.Vec2
	Max math.Vec2
}

// Width returns the in-plane extent along Basis.Right.
func (f ProxyFace) Width() float32 { return f.Max.X - f.Min.X }

// Height returns the in-plane extent along Basis.Up.
func (f ProxyFace) Height() float32 { return f.Max.Y - f.Min.Y }

// AnalyzeProxy extracts every face of the proxy mesh in index order.
func AnalyzeProxy(proxy *mesh.Mesh) ([]ProxyFace, error) {
	if proxy == nil || len(proxy.Faces) == 0 {
		return nil, ErrEmptyProxy
	}
	if err := proxy.Validate(); err != nil {
		return nil, err
	}

	faces := make([]ProxyFace, len(proxy.Faces))
	for i := range proxy.Faces {
		f, err := analyzeFace(i, proxy.FaceVertices(i))
		if err != nil {
			return nil, err
		}
		faces[i] = f
	}
	return faces, nil
}

func analyzeFace(index int, verts []math.Vec3) (ProxyFace, error) {
	if len(verts) < 3 {
		return ProxyFace{}, &DegenerateFaceError{Face: index, Reason: "fewer than 3 vertices"}
	}

	var centroid math.Vec3
	for _, v := range verts {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Scale(1 / float32(len(verts)))

	// Scale for the epsilon tests: longest distance from the first vertex.
	var scale2 float32
	for _, v := range verts[1:] {
		d := v.Sub(verts[0])
		scale2 = math32.Max(scale2, d.Dot(d))
	}
	if scale2 == 0 {
		return ProxyFace{}, &DegenerateFaceError{Face: index, Reason: "all vertices coincide"}
	}
	if collinear(verts, scale2) {
		return ProxyFace{}, &DegenerateFaceError{Face: index, Reason: "vertices are collinear"}
	}

	n := newellNormal(verts)
	if n.Dot(n) <= areaEpsilon*scale2*scale2 {
		return ProxyFace{}, &DegenerateFaceError{Face: index, Reason: "zero-area normal (self-intersecting polygon?)"}
	}
	normal := n.Normalize()
	basis := math.BasisFromForward(normal.Neg())

	min := math.Vec2{X: math32.Inf(1), Y: math32.Inf(1)}
	max := math.Vec2{X: math32.Inf(-1), Y: math32.Inf(-1)}
	for _, v := range verts {
		p := basis.Project(v)
		min.X, min.Y = math32.Min(min.X, p.X), math32.Min(min.Y, p.Y)
		max.X, max.Y = math32.Max(max.X, p.X), math32.Max(max.Y, p.Y)
	}

	return ProxyFace{
		Index:    index,
		Vertices: verts,
		Normal:   normal,
		Centroid: centroid,
		Basis:    basis,
		Min:      min,
		Max:      max,
	}, nil
}

// newellNormal returns the area-weighted polygon normal (twice the area in
// length). It is robust for non-convex and slightly non-planar polygons.
func newellNormal(verts []math.Vec3) math.Vec3 {
	var n math.Vec3
	for i, cur := range verts {
		next := verts[(i+1)%len(verts)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// collinear reports whether every vertex lies on the line through the first
// vertex and the vertex farthest from it.
func collinear(verts []math.Vec3, scale2 float32) bool {
	var far math.Vec3
	var best float32
	for _, v := range verts[1:] {
		d := v.Sub(verts[0])
		if l := d.Dot(d); l > best {
			best, far = l, d
		}
	}
	for _, v := range verts[1:] {
		c := far.Cross(v.Sub(verts[0]))
		if c.Dot(c) > areaEpsilon*scale2*scale2 {
			return false
		}
	}
	return true
}
