// Package binder writes a finished bake to disk: the atlas image, a material
// referencing it, the UV-mapped proxy and a bake manifest.
package binder

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/impostor/internal/impostor"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// MaterialPrefix names the material and image of a baked proxy.
const MaterialPrefix = "IMP-"

// ErrNoAtlas is returned when binding a result without an atlas.
var ErrNoAtlas = errors.New("bake result has no atlas")

// Format is an atlas image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// ParseFormat validates an image format name. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatPNG, nil
	case FormatPNG, FormatTIFF, FormatBMP:
		return f, nil
	}
	return "", fmt.Errorf("unknown image format %q (want png, tiff or bmp)", s)
}

// BindOptions controls where and how a bake is written.
type BindOptions struct {
	Dir        string
	Format     Format
	Name       string // Overrides the proxy name
	SourceName string // Recorded in the manifest
}

// Output lists what Bind wrote.
type Output struct {
	Name         string
	Material     string
	ImagePath    string
	MTLPath      string
	OBJPath      string
	ManifestPath string
	Mesh         *mesh.Mesh // Proxy with the UV layer applied
}

// MaterialName returns the material (and image) name for a proxy.
func MaterialName(proxyName string) string {
	return MaterialPrefix + sanitize(proxyName)
}

// Bind applies the baked UVs to a copy of proxy and writes every output
// file into opts.Dir.
func Bind(res *impostor.Result, proxy *mesh.Mesh, opts BindOptions) (*Output, error) {
	if res == nil || res.Atlas == nil || res.Atlas.Image == nil {
		return nil, ErrNoAtlas
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	mapped, err := res.ApplyUVs(proxy)
	if err != nil {
		return nil, fmt.Errorf("applying uvs: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = proxy.Name
	}
	name = sanitize(name)
	material := MaterialName(name)
	mapped.Name = name

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	imageFile := material + "." + string(format)
	out := &Output{
		Name:         name,
		Material:     material,
		ImagePath:    filepath.Join(dir, imageFile),
		MTLPath:      filepath.Join(dir, material+".mtl"),
		OBJPath:      filepath.Join(dir, name+".impostor.obj"),
		ManifestPath: filepath.Join(dir, material+".yaml"),
		Mesh:         mapped,
	}

	if err := writeFile(out.ImagePath, func(w io.Writer) error {
		return EncodeImage(w, res.Atlas.Image, format)
	}); err != nil {
		return nil, fmt.Errorf("writing atlas: %w", err)
	}
	if err := writeFile(out.MTLPath, func(w io.Writer) error {
		return mesh.WriteMTL(w, material, imageFile)
	}); err != nil {
		return nil, fmt.Errorf("writing material: %w", err)
	}
	if err := writeFile(out.OBJPath, func(w io.Writer) error {
		return mesh.WriteOBJ(w, mapped, filepath.Base(out.MTLPath), material)
	}); err != nil {
		return nil, fmt.Errorf("writing proxy: %w", err)
	}

	m := NewManifest(res, out, opts.SourceName)
	if err := m.SaveTo(out.ManifestPath); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return out, nil
}

// EncodeImage writes img in the given format.
func EncodeImage(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unknown image format %q", format)
}

func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// sanitize makes a mesh name safe to use as a file name.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "proxy"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == ' ' || r == '\t':
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, name)
}
