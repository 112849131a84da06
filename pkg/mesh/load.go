package mesh

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned for model files with an unrecognised extension.
var ErrUnknownFormat = errors.New("unknown model format")

// Load reads a model file by extension (.obj or .ply). OBJ files may yield
// several objects, in file order.
func Load(path string) ([]*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return ParseOBJFile(path)
	case ".ply":
		m, err := ParsePLYFile(path)
		if err != nil {
			return nil, err
		}
		return []*Mesh{m}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// SplitSelection applies the selection rule: the last object is the proxy,
// every earlier object is source geometry merged into one mesh.
func SplitSelection(objects []*Mesh) (source, proxy *Mesh, err error) {
	if len(objects) < 2 {
		return nil, nil, fmt.Errorf("need at least one source object and a proxy, got %d object(s)", len(objects))
	}
	proxy = objects[len(objects)-1]
	sources := objects[:len(objects)-1]
	if len(sources) == 1 {
		return sources[0], proxy, nil
	}
	return Merge("source", sources...), proxy, nil
}
