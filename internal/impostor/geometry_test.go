package impostor

import (
	"errors"
	"testing"

	"github.com/Faultbox/impostor/pkg/math"
	"github.com/Faultbox/impostor/pkg/mesh"
)

func TestAnalyzeProxyCube(t *testing.T) {
	faces, err := AnalyzeProxy(cube("proxy", 1, red))
	if err != nil {
		t.Fatalf("AnalyzeProxy failed: %v", err)
	}
	if len(faces) != 6 {
		t.Fatalf("expected 6 faces, got %d", len(faces))
	}

	wantNormals := []math.Vec3{
		{Z: -1}, {Z: 1}, {Y: -1}, {Y: 1}, {X: -1}, {X: 1},
	}
	for i, f := range faces {
		if f.Index != i {
			t.Errorf("face %d: index %d", i, f.Index)
		}
		if !f.Normal.ApproxEqual(wantNormals[i], 1e-5) {
			t.Errorf("face %d: normal %v, want %v", i, f.Normal, wantNormals[i])
		}
		if !f.Centroid.ApproxEqual(wantNormals[i], 1e-5) {
			t.Errorf("face %d: centroid %v, want %v", i, f.Centroid, wantNormals[i])
		}
		if !f.Basis.Forward.ApproxEqual(f.Normal.Neg(), 1e-5) {
			t.Errorf("face %d: forward %v is not -normal", i, f.Basis.Forward)
		}
		if f.Width() < 1.999 || f.Width() > 2.001 || f.Height() < 1.999 || f.Height() > 2.001 {
			t.Errorf("face %d: extents %vx%v, want 2x2", i, f.Width(), f.Height())
		}
	}
}

func TestAnalyzeProxyNonConvex(t *testing.T) {
	// L-shaped hexagon in the XY plane, counter-clockwise.
	m := &mesh.Mesh{
		Positions: []math.Vec3{
			{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1},
			{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2},
		},
		Faces: []mesh.Face{{Indices: []int{0, 1, 2, 3, 4, 5}}},
	}
	faces, err := AnalyzeProxy(m)
	if err != nil {
		t.Fatalf("AnalyzeProxy failed: %v", err)
	}
	if !faces[0].Normal.ApproxEqual(math.Vec3{Z: 1}, 1e-5) {
		t.Errorf("normal = %v, want +Z", faces[0].Normal)
	}
}

func TestAnalyzeProxyDegenerate(t *testing.T) {
	tests := []struct {
		name      string
		positions []math.Vec3
		indices   []int
	}{
		{
			name:      "two vertices",
			positions: []math.Vec3{{X: 0}, {X: 1}},
			indices:   []int{0, 1},
		},
		{
			name:      "coincident",
			positions: []math.Vec3{{X: 1}, {X: 1}, {X: 1}},
			indices:   []int{0, 1, 2},
		},
		{
			name:      "collinear",
			positions: []math.Vec3{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
			indices:   []int{0, 1, 2, 3},
		},
		{
			name:      "bowtie",
			positions: []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			indices:   []int{0, 1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := cube("proxy", 1, red)
			m := &mesh.Mesh{Positions: append(good.Positions, tt.positions...)}
			m.Faces = append(m.Faces, good.Faces[0])
			idx := make([]int, len(tt.indices))
			for i, v := range tt.indices {
				idx[i] = v + len(good.Positions)
			}
			m.Faces = append(m.Faces, mesh.Face{Indices: idx})

			_, err := AnalyzeProxy(m)
			var derr *DegenerateFaceError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DegenerateFaceError, got %v", err)
			}
			if derr.Face != 1 {
				t.Errorf("expected face 1, got %d", derr.Face)
			}
		})
	}
}

func TestAnalyzeProxyEmpty(t *testing.T) {
	if _, err := AnalyzeProxy(&mesh.Mesh{}); !errors.Is(err, ErrEmptyProxy) {
		t.Errorf("expected ErrEmptyProxy, got %v", err)
	}
	if _, err := AnalyzeProxy(nil); !errors.Is(err, ErrEmptyProxy) {
		t.Errorf("expected ErrEmptyProxy for nil, got %v", err)
	}
}
