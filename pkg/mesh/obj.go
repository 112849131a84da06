package mesh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/impostor/pkg/encoding"
	"github.com/Faultbox/impostor/pkg/math"
)

// OBJ format errors.
var (
	ErrInvalidOBJ = errors.New("invalid OBJ data")
	ErrNoObjects  = errors.New("OBJ contains no faces")
)

// objBuilder collects one named object while the file is scanned.
type objBuilder struct {
	name   string
	faces  []Face
	global [][]int // global (file-wide) position index per face corner
	uvs    [][]math.Vec2
	hasUV  bool
}

// ParseOBJ parses Wavefront OBJ data. Each `o` statement starts a new mesh;
// faces before the first `o` go into a mesh named "default".
// materials resolves `usemtl` names to colours and may be nil.
func ParseOBJ(r io.Reader, materials map[string]Material) ([]*Mesh, error) {
	var (
		positions []math.Vec3
		texcoords []math.Vec2
		objects   []*objBuilder
		current   *objBuilder
		material  string
	)

	begin := func(name string) {
		current = &objBuilder{name: name}
		objects = append(objects, current)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			positions = append(positions, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
		case "vt":
			p, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			texcoords = append(texcoords, math.Vec2{X: p[0], Y: p[1]})
		case "o":
			name := "object"
			if len(fields) > 1 {
				name = encoding.DecodeName(strings.Join(fields[1:], " "))
			}
			begin(name)
			material = ""
		case "usemtl":
			material = ""
			if len(fields) > 1 {
				material = encoding.DecodeName(fields[1])
			}
		case "f":
			if current == nil {
				begin("default")
			}
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 vertices", ErrInvalidOBJ, lineNo)
			}
			corners := make([]int, 0, len(fields)-1)
			uvs := make([]math.Vec2, 0, len(fields)-1)
			faceHasUV := true
			for _, ref := range fields[1:] {
				vi, ti, err := parseFaceRef(ref, len(positions), len(texcoords))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
				}
				corners = append(corners, vi)
				if ti < 0 {
					faceHasUV = false
					uvs = append(uvs, math.Vec2{})
				} else {
					uvs = append(uvs, texcoords[ti])
				}
			}
			face := Face{Color: DefaultColor, Material: material}
			if mat, ok := materials[material]; ok {
				face.Color = mat.Diffuse
			}
			current.faces = append(current.faces, face)
			current.global = append(current.global, corners)
			current.uvs = append(current.uvs, uvs)
			if faceHasUV {
				current.hasUV = true
			}
		default:
			// vn, g, s, mtllib and others do not affect the snapshot
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	var meshes []*Mesh
	for _, obj := range objects {
		if len(obj.faces) == 0 {
			continue
		}
		meshes = append(meshes, obj.build(positions))
	}
	if len(meshes) == 0 {
		return nil, ErrNoObjects
	}
	return meshes, nil
}

// build compacts the object's referenced positions into a local array.
func (b *objBuilder) build(positions []math.Vec3) *Mesh {
	m := &Mesh{Name: b.name}
	remap := make(map[int]int)
	for fi, corners := range b.global {
		face := b.faces[fi]
		face.Indices = make([]int, len(corners))
		for j, g := range corners {
			local, ok := remap[g]
			if !ok {
				local = len(m.Positions)
				remap[g] = local
				m.Positions = append(m.Positions, positions[g])
			}
			face.Indices[j] = local
		}
		m.Faces = append(m.Faces, face)
	}
	if b.hasUV {
		m.UVs = b.uvs
	}
	return m
}

// parseFaceRef parses "v", "v/vt", "v//vn" or "v/vt/vn" into zero-based
// position and texcoord indices. ti is -1 when absent.
func parseFaceRef(ref string, nPos, nTex int) (vi, ti int, err error) {
	parts := strings.Split(ref, "/")
	vi, err = resolveIndex(parts[0], nPos)
	if err != nil {
		return 0, 0, fmt.Errorf("vertex %q: %w", ref, err)
	}
	ti = -1
	if len(parts) > 1 && parts[1] != "" {
		ti, err = resolveIndex(parts[1], nTex)
		if err != nil {
			return 0, 0, fmt.Errorf("texcoord %q: %w", ref, err)
		}
	}
	return vi, ti, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// ParseOBJFile parses an OBJ file from disk, loading any `mtllib` files
// next to it for face colours.
func ParseOBJFile(path string) ([]*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}

	materials := make(map[string]Material)
	for _, lib := range mtlLibs(string(data)) {
		mats, err := ParseMTLFile(filepath.Join(filepath.Dir(path), lib))
		if err != nil {
			// A missing material library only loses colours.
			continue
		}
		for name, m := range mats {
			materials[name] = m
		}
	}

	meshes, err := ParseOBJ(bytes.NewReader(data), materials)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meshes, nil
}

// mtlLibs returns the file names referenced by `mtllib` statements.
func mtlLibs(data string) []string {
	var libs []string
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "mtllib" {
			libs = append(libs, fields[1:]...)
		}
	}
	return libs
}

// WriteOBJ writes m as OBJ. When m has a UV layer, `vt` records are written
// per face corner. mtllib and material are optional.
func WriteOBJ(w io.Writer, m *Mesh, mtllib, material string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %d vertices, %d faces\n", len(m.Positions), len(m.Faces))
	if mtllib != "" {
		fmt.Fprintf(bw, "mtllib %s\n", mtllib)
	}
	name := m.Name
	if name == "" {
		name = "object"
	}
	fmt.Fprintf(bw, "o %s\n", name)

	for _, p := range m.Positions {
		fmt.Fprintf(bw, "v %s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	if m.UVs != nil {
		for _, uvs := range m.UVs {
			for _, uv := range uvs {
				fmt.Fprintf(bw, "vt %s %s\n", ftoa(uv.X), ftoa(uv.Y))
			}
		}
	}
	if material != "" {
		fmt.Fprintf(bw, "usemtl %s\n", material)
	}

	vt := 1
	for _, f := range m.Faces {
		bw.WriteString("f")
		for _, idx := range f.Indices {
			if m.UVs != nil {
				fmt.Fprintf(bw, " %d/%d", idx+1, vt)
				vt++
			} else {
				fmt.Fprintf(bw, " %d", idx+1)
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}
