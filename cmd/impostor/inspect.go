package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/Faultbox/impostor/internal/binder"
	"github.com/Faultbox/impostor/internal/debug"
)

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	overlay := fs.String("overlay", "", "Write a placement overlay PNG to this path")
	scale := fs.Int("scale", 2, "Overlay magnification")
	face := fs.Int("face", -1, "Show only this proxy face")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: impostor inspect [options] <IMP-name.yaml>")
		os.Exit(1)
	}

	m, err := binder.LoadManifest(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	if *face >= 0 {
		if err := printFace(m, *face); err != nil {
			fatal(err)
		}
		return
	}
	printManifest(m)

	if *overlay != "" {
		if err := writeOverlay(m, filepath.Dir(fs.Arg(0)), *overlay, *scale); err != nil {
			fatal(err)
		}
		fmt.Printf("\nOverlay:   %s\n", *overlay)
	}
}

func printManifest(m *binder.Manifest) {
	fmt.Printf("Bake:      %s (%s)\n", m.BakeID, m.Created.Format("2006-01-02 15:04:05"))
	if m.Source != "" {
		fmt.Printf("Source:    %s\n", m.Source)
	}
	fmt.Printf("Proxy:     %s\n", m.Proxy)
	fmt.Printf("Material:  %s (%s)\n", m.Material, m.Image)
	fmt.Printf("Atlas:     %dx%d, %.3f px/unit\n", m.Atlas.Width, m.Atlas.Height, m.PixelsPerUnit)
	fmt.Printf("Duration:  %dms\n", m.DurationMS)
	fmt.Println()
	fmt.Printf("  %-6s %-6s %-6s %-7s %s\n", "FACE", "X", "Y", "SIZE", "")
	for _, pl := range m.Placements {
		note := ""
		if pl.Scaled {
			note = "downscaled"
		}
		face := fmt.Sprint(pl.Face)
		if pl.Face < 0 {
			face, note = "-", "blank texel"
		}
		fmt.Printf("  %-6s %-6d %-6d %-7s %s\n", face, pl.X, pl.Y, fmt.Sprintf("%dx%d", pl.Width, pl.Height), note)
	}
	if len(m.Skipped) > 0 {
		fmt.Printf("\nSkipped faces: %v\n", m.Skipped)
	}
	for _, w := range m.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

// printFace shows where one face landed and the atlas UV rectangle it covers.
func printFace(m *binder.Manifest, face int) error {
	for _, f := range m.Skipped {
		if f == face {
			fmt.Printf("Face %d was skipped (mapped to the blank texel)\n", face)
			return nil
		}
	}
	pl, ok := m.Placement(face)
	if !ok {
		return fmt.Errorf("face %d not in manifest", face)
	}
	w, h := float64(m.Atlas.Width), float64(m.Atlas.Height)
	fmt.Printf("Face:      %d\n", face)
	fmt.Printf("Pixels:    %d,%d %dx%d\n", pl.X, pl.Y, pl.Width, pl.Height)
	fmt.Printf("UV:        u %.5f..%.5f  v %.5f..%.5f\n",
		float64(pl.X)/w, float64(pl.X+pl.Width)/w,
		1-float64(pl.Y+pl.Height)/h, 1-float64(pl.Y)/h)
	if pl.Scaled {
		fmt.Println("Note:      downscaled to fit the atlas width")
	}
	return nil
}

func writeOverlay(m *binder.Manifest, dir, path string, scale int) error {
	f, err := os.Open(filepath.Join(dir, m.Image))
	if err != nil {
		return err
	}
	defer f.Close()
	atlas, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", m.Image, err)
	}
	return debug.SaveOverlay(path, atlas, m.Placements, scale)
}
