package mesh

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/impostor/pkg/encoding"
)

// Material is the subset of a Wavefront MTL material the baker uses.
type Material struct {
	Name       string
	Diffuse    color.NRGBA // Kd (and d for alpha)
	DiffuseMap string      // map_Kd
	AlphaMap   string      // map_d
}

// ParseMTL parses MTL data into materials keyed by name.
func ParseMTL(r io.Reader) (map[string]Material, error) {
	mats := make(map[string]Material)
	var cur *Material

	flush := func() {
		if cur != nil {
			mats[cur.Name] = *cur
		}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			flush()
			name := ""
			if len(fields) > 1 {
				name = encoding.DecodeName(fields[1])
			}
			cur = &Material{Name: name, Diffuse: DefaultColor}
			continue
		}
		if cur == nil {
			continue
		}
		switch fields[0] {
		case "Kd":
			rgb, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("mtl line %d: %w", lineNo, err)
			}
			cur.Diffuse.R = unitToByte(rgb[0])
			cur.Diffuse.G = unitToByte(rgb[1])
			cur.Diffuse.B = unitToByte(rgb[2])
		case "d":
			if len(fields) > 1 {
				if a, err := strconv.ParseFloat(fields[1], 32); err == nil {
					cur.Diffuse.A = unitToByte(float32(a))
				}
			}
		case "map_Kd":
			cur.DiffuseMap = fields[len(fields)-1]
		case "map_d":
			cur.AlphaMap = fields[len(fields)-1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MTL: %w", err)
	}
	flush()
	return mats, nil
}

// ParseMTLFile parses an MTL file from disk.
func ParseMTLFile(path string) (map[string]Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading MTL file: %w", err)
	}
	defer f.Close()
	return ParseMTL(f)
}

// WriteMTL writes a single textured material whose colour and alpha both
// come from texture.
func WriteMTL(w io.Writer, name, texture string) error {
	_, err := fmt.Fprintf(w, "newmtl %s\nKa 1 1 1\nKd 1 1 1\nKs 0 0 0\nd 1\nillum 1\nmap_Kd %s\nmap_d %s\n",
		name, texture, texture)
	return err
}

func unitToByte(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return uint8(f*255 + 0.5)
	}
}
