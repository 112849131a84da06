package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/impostor/internal/binder"
	"github.com/Faultbox/impostor/internal/config"
	"github.com/Faultbox/impostor/internal/render/soft"
	"github.com/Faultbox/impostor/pkg/mesh"
)

// cubeOBJ writes an outward-wound cube of half-size s as object name.
func cubeOBJ(b *strings.Builder, name string, s float64, base int) {
	fmt.Fprintf(b, "o %s\n", name)
	for _, v := range [][3]float64{
		{-s, -s, -s}, {s, -s, -s}, {s, s, -s}, {-s, s, -s},
		{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s},
	} {
		fmt.Fprintf(b, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for _, f := range [][4]int{
		{1, 4, 3, 2}, {5, 6, 7, 8}, {1, 2, 6, 5},
		{4, 8, 7, 3}, {1, 5, 8, 4}, {2, 3, 7, 6},
	} {
		fmt.Fprintf(b, "f %d %d %d %d\n", f[0]+base, f[1]+base, f[2]+base, f[3]+base)
	}
}

func writeScene(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	cubeOBJ(&b, "statue", 0.5, 0)
	cubeOBJ(&b, "shell", 1, 8)
	path := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSelection(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir)

	source, proxy, err := loadSelection([]string{path})
	if err != nil {
		t.Fatalf("loadSelection: %v", err)
	}
	if source.Name != "statue" || proxy.Name != "shell" {
		t.Errorf("got source %q proxy %q", source.Name, proxy.Name)
	}
	if len(proxy.Faces) != 6 {
		t.Errorf("proxy faces = %d, want 6", len(proxy.Faces))
	}

	if _, _, err := loadSelection([]string{filepath.Join(dir, "missing.obj")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBakeFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir)

	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Overlay = true
	cfg.Bake.AtlasWidth = 64
	cfg.Bake.Workers = 2

	r := soft.New(soft.Options{Supersample: 1})
	out, res, err := bakeFiles(context.Background(), cfg, r, []string{path})
	if err != nil {
		t.Fatalf("bakeFiles: %v", err)
	}
	if len(res.Faces) != 6 {
		t.Errorf("faces = %d, want 6", len(res.Faces))
	}

	for _, p := range []string{
		out.ImagePath, out.MTLPath, out.OBJPath, out.ManifestPath,
		filepath.Join(cfg.Output.Dir, out.Material+".overlay.png"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	m, err := binder.LoadManifest(out.ManifestPath)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Source != "statue" || m.Proxy != "shell" {
		t.Errorf("manifest source %q proxy %q", m.Source, m.Proxy)
	}
	if len(m.Placements) != 6 {
		t.Errorf("placements = %d, want 6", len(m.Placements))
	}

	// The written proxy reloads with one UV per corner.
	meshes, err := mesh.Load(out.OBJPath)
	if err != nil {
		t.Fatalf("reloading proxy: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("reloaded %d objects, want 1", len(meshes))
	}
	got := meshes[0]
	if len(got.UVs) != len(got.Faces) {
		t.Fatalf("uv layer has %d faces, want %d", len(got.UVs), len(got.Faces))
	}
	for i, f := range got.Faces {
		if len(got.UVs[i]) != len(f.Indices) {
			t.Errorf("face %d: %d uvs for %d corners", i, len(got.UVs[i]), len(f.Indices))
		}
	}

	overlay := filepath.Join(dir, "check.png")
	if err := writeOverlay(m, cfg.Output.Dir, overlay, 1); err != nil {
		t.Fatalf("writeOverlay: %v", err)
	}
	if _, err := os.Stat(overlay); err != nil {
		t.Error(err)
	}
}

func TestBakeFilesNeedsProxy(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	cubeOBJ(&b, "only", 1, 0)
	path := filepath.Join(dir, "one.obj")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "out")
	if _, _, err := bakeFiles(context.Background(), cfg, soft.New(soft.Options{}), []string{path}); err == nil {
		t.Error("expected error for a single object")
	}
}
