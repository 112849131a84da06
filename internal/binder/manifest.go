package binder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/impostor/internal/impostor"
)

// Manifest records what a bake produced.
type Manifest struct {
	BakeID        string                    `yaml:"bake_id"`
	Created       time.Time                 `yaml:"created"`
	Source        string                    `yaml:"source,omitempty"`
	Proxy         string                    `yaml:"proxy"`
	Material      string                    `yaml:"material"`
	Image         string                    `yaml:"image"`
	Atlas         AtlasInfo                 `yaml:"atlas"`
	PixelsPerUnit float32                   `yaml:"pixels_per_unit"`
	Placements    []impostor.AtlasPlacement `yaml:"placements"`
	Skipped       []int                     `yaml:"skipped,omitempty"`
	Warnings      []string                  `yaml:"warnings,omitempty"`
	DurationMS    int64                     `yaml:"duration_ms"`
}

// AtlasInfo is the atlas size.
type AtlasInfo struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// NewManifest summarises a bake result.
func NewManifest(res *impostor.Result, out *Output, source string) *Manifest {
	m := &Manifest{
		BakeID:        res.BakeID.String(),
		Created:       time.Now().UTC().Truncate(time.Second),
		Source:        source,
		Proxy:         out.Name,
		Material:      out.Material,
		Image:         filepath.Base(out.ImagePath),
		Atlas:         AtlasInfo{Width: res.Atlas.Width, Height: res.Atlas.Height},
		PixelsPerUnit: res.PixelsPerUnit,
		Placements:    res.Atlas.Placements,
		Skipped:       res.Skipped,
		DurationMS:    res.Duration.Milliseconds(),
	}
	for _, w := range res.Warnings {
		m.Warnings = append(m.Warnings, w.Error())
	}
	return m
}

// SaveTo writes the manifest as YAML.
func (m *Manifest) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadManifest reads a manifest written by Bind.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Placement returns the placement of a face, if it was packed.
func (m *Manifest) Placement(face int) (impostor.AtlasPlacement, bool) {
	for _, p := range m.Placements {
		if p.Face == face {
			return p, true
		}
	}
	return impostor.AtlasPlacement{}, false
}
