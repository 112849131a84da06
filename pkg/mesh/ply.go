package mesh

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	stdmath "math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/impostor/pkg/math"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
	ErrMissingPLYVertex     = errors.New("PLY has no vertex x/y/z properties")
)

// plyProperty is one property line of the header.
type plyProperty struct {
	Name      string
	Type      string
	IsList    bool
	CountType string // list length type
}

// plyElement is one element block of the header.
type plyElement struct {
	Name  string
	Count int
	Props []plyProperty
}

// plyHeader holds the parsed header.
type plyHeader struct {
	Format   string
	Elements []plyElement
}

// plyValues reads scalar values from the body in either encoding.
type plyValues interface {
	read(typ string) (float64, error)
}

// ParsePLY parses PLY data (ascii, binary_little_endian or binary_big_endian).
// Per-vertex colours are averaged into face colours; per-face colours win
// when present.
func ParsePLY(r io.Reader, name string) (*Mesh, error) {
	br := bufio.NewReader(r)
	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	var values plyValues
	switch header.Format {
	case "ascii":
		sc := bufio.NewScanner(br)
		sc.Split(bufio.ScanWords)
		values = &asciiValues{sc: sc}
	case "binary_little_endian":
		values = &binaryValues{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryValues{r: br, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPLYFormat, header.Format)
	}

	m := &Mesh{Name: name}
	var vertexColors []color.NRGBA

	for _, el := range header.Elements {
		switch el.Name {
		case "vertex":
			colors, err := readPLYVertices(values, el, m)
			if err != nil {
				return nil, err
			}
			vertexColors = colors
		case "face":
			if err := readPLYFaces(values, el, m, vertexColors); err != nil {
				return nil, err
			}
		default:
			if err := skipPLYElement(values, el); err != nil {
				return nil, err
			}
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParsePLYFile parses a PLY file from disk. The mesh is named after the file.
func ParsePLYFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := ParsePLY(f, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func parsePLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, ErrInvalidPLYMagic
	}

	h := &plyHeader{}
	var current *plyElement
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: header not terminated", ErrTruncatedPLYData)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			return h, nil
		case "format":
			if len(parts) < 2 {
				return nil, fmt.Errorf("%w: malformed format line", ErrUnsupportedPLYFormat)
			}
			h.Format = parts[1]
		case "comment", "obj_info":
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			h.Elements = append(h.Elements, plyElement{Name: parts[1], Count: count})
			current = &h.Elements[len(h.Elements)-1]
		case "property":
			if current == nil {
				return nil, fmt.Errorf("property before element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			current.Props = append(current.Props, prop)
		}
	}
}

func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		return plyProperty{Name: parts[3], Type: parts[2], IsList: true, CountType: parts[1]}, nil
	}
	if len(parts) >= 2 {
		return plyProperty{Name: parts[1], Type: parts[0]}, nil
	}
	return plyProperty{}, fmt.Errorf("invalid property definition: %v", parts)
}

func readPLYVertices(values plyValues, el plyElement, m *Mesh) ([]color.NRGBA, error) {
	idx := map[string]int{}
	for i, p := range el.Props {
		idx[p.Name] = i
	}
	ix, okX := idx["x"]
	iy, okY := idx["y"]
	iz, okZ := idx["z"]
	if !okX || !okY || !okZ {
		return nil, ErrMissingPLYVertex
	}
	ir, hasR := lookupAny(idx, "red", "r")
	ig, hasG := lookupAny(idx, "green", "g")
	ib, hasB := lookupAny(idx, "blue", "b")
	hasColor := hasR && hasG && hasB

	var colors []color.NRGBA
	row := make([]float64, len(el.Props))
	for v := 0; v < el.Count; v++ {
		for i, p := range el.Props {
			if p.IsList {
				if err := skipPLYList(values, p); err != nil {
					return nil, err
				}
				continue
			}
			val, err := values.read(p.Type)
			if err != nil {
				return nil, fmt.Errorf("vertex %d: %w", v, err)
			}
			row[i] = val
		}
		m.Positions = append(m.Positions, math.Vec3{X: float32(row[ix]), Y: float32(row[iy]), Z: float32(row[iz])})
		if hasColor {
			colors = append(colors, color.NRGBA{
				R: channel(row[ir], el.Props[ir].Type),
				G: channel(row[ig], el.Props[ig].Type),
				B: channel(row[ib], el.Props[ib].Type),
				A: 255,
			})
		}
	}
	return colors, nil
}

func readPLYFaces(values plyValues, el plyElement, m *Mesh, vertexColors []color.NRGBA) error {
	ir, hasR := lookupProp(el.Props, "red")
	ig, hasG := lookupProp(el.Props, "green")
	ib, hasB := lookupProp(el.Props, "blue")
	hasFaceColor := hasR && hasG && hasB

	for f := 0; f < el.Count; f++ {
		face := Face{Color: DefaultColor}
		var rgb [3]float64
		for i, p := range el.Props {
			if p.IsList {
				n, err := values.read(p.CountType)
				if err != nil {
					return fmt.Errorf("face %d: %w", f, err)
				}
				list := make([]int, int(n))
				for j := range list {
					v, err := values.read(p.Type)
					if err != nil {
						return fmt.Errorf("face %d: %w", f, err)
					}
					list[j] = int(v)
				}
				if p.Name == "vertex_indices" || p.Name == "vertex_index" {
					face.Indices = list
				}
				continue
			}
			v, err := values.read(p.Type)
			if err != nil {
				return fmt.Errorf("face %d: %w", f, err)
			}
			switch {
			case hasFaceColor && i == ir:
				rgb[0] = v
			case hasFaceColor && i == ig:
				rgb[1] = v
			case hasFaceColor && i == ib:
				rgb[2] = v
			}
		}

		switch {
		case hasFaceColor:
			face.Color = color.NRGBA{
				R: channel(rgb[0], el.Props[ir].Type),
				G: channel(rgb[1], el.Props[ig].Type),
				B: channel(rgb[2], el.Props[ib].Type),
				A: 255,
			}
		case len(vertexColors) > 0:
			face.Color = averageColor(vertexColors, face.Indices)
		}
		m.Faces = append(m.Faces, face)
	}
	return nil
}

func skipPLYElement(values plyValues, el plyElement) error {
	for n := 0; n < el.Count; n++ {
		for _, p := range el.Props {
			if p.IsList {
				if err := skipPLYList(values, p); err != nil {
					return err
				}
				continue
			}
			if _, err := values.read(p.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipPLYList(values plyValues, p plyProperty) error {
	n, err := values.read(p.CountType)
	if err != nil {
		return err
	}
	for j := 0; j < int(n); j++ {
		if _, err := values.read(p.Type); err != nil {
			return err
		}
	}
	return nil
}

func lookupAny(idx map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func lookupProp(props []plyProperty, name string) (int, bool) {
	for i, p := range props {
		if p.Name == name && !p.IsList {
			return i, true
		}
	}
	return 0, false
}

// channel converts a colour property to 8 bits. Integer types are already
// 0-255; float types are 0-1.
func channel(v float64, typ string) uint8 {
	switch typ {
	case "float", "float32", "double", "float64":
		return unitToByte(float32(v))
	}
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func averageColor(colors []color.NRGBA, indices []int) color.NRGBA {
	var r, g, b, n int
	for _, i := range indices {
		if i < 0 || i >= len(colors) {
			continue
		}
		r += int(colors[i].R)
		g += int(colors[i].G)
		b += int(colors[i].B)
		n++
	}
	if n == 0 {
		return DefaultColor
	}
	return color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// asciiValues reads whitespace-separated values.
type asciiValues struct {
	sc *bufio.Scanner
}

func (a *asciiValues) read(string) (float64, error) {
	if !a.sc.Scan() {
		if err := a.sc.Err(); err != nil {
			return 0, err
		}
		return 0, ErrTruncatedPLYData
	}
	return strconv.ParseFloat(a.sc.Text(), 64)
}

// binaryValues reads fixed-size values in the given byte order.
type binaryValues struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryValues) read(typ string) (float64, error) {
	size := plyTypeSize(typ)
	if size == 0 {
		return 0, fmt.Errorf("%w: property type %q", ErrUnsupportedPLYFormat, typ)
	}
	if _, err := io.ReadFull(b.r, b.buf[:size]); err != nil {
		return 0, ErrTruncatedPLYData
	}
	p := b.buf[:size]
	switch typ {
	case "char", "int8":
		return float64(int8(p[0])), nil
	case "uchar", "uint8":
		return float64(p[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(p))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(p)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(p))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(p)), nil
	case "float", "float32":
		return float64(stdmath.Float32frombits(b.order.Uint32(p))), nil
	default: // double, float64
		return stdmath.Float64frombits(b.order.Uint64(p)), nil
	}
}

func plyTypeSize(typ string) int {
	switch typ {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}
