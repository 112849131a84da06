package impostor

import (
	"errors"
	"fmt"
)

// Bake input errors.
var (
	ErrEmptyProxy  = errors.New("proxy mesh has no faces")
	ErrEmptySource = errors.New("source mesh has no geometry")
)

// DegenerateFaceError reports a proxy face with no usable plane.
// It aborts the bake before anything is rendered.
type DegenerateFaceError struct {
	Face   int
	Reason string
}

func (e *DegenerateFaceError) Error() string {
	return fmt.Sprintf("proxy face %d is degenerate: %s (delete or repair the face)", e.Face, e.Reason)
}

// NarrowFaceWarning reports a face whose patch falls below the pixel floor.
// Action records what the narrow policy did about it.
type NarrowFaceWarning struct {
	Face   int
	Axis   string  // "width" or "height"
	Pixels float32 // projected size before the floor
	Floor  int
	Action NarrowPolicy
}

func (e *NarrowFaceWarning) Error() string {
	return fmt.Sprintf("proxy face %d is narrow: projected %s %.2f px is below the %d px floor (%s); raise pixels_per_unit or reshape the proxy",
		e.Face, e.Axis, e.Pixels, e.Floor, e.Action)
}

// NarrowFaceError is returned instead of NarrowFaceWarning when the narrow
// policy is "fail".
type NarrowFaceError struct {
	NarrowFaceWarning
}

func (e *NarrowFaceError) Error() string {
	return e.NarrowFaceWarning.Error() + "; bake aborted (set narrow_policy to clamp or skip to continue)"
}

// PatchTooWideError reports a rendered patch wider than the atlas under the
// "reject" wide policy.
type PatchTooWideError struct {
	Face       int
	Width      int
	AtlasWidth int
}

func (e *PatchTooWideError) Error() string {
	return fmt.Sprintf("patch for proxy face %d is %d px wide, atlas is %d px; lower pixels_per_unit, use wide_policy=downscale, or shrink enclosing proxy (an oversized proxy causes transparent padding)",
		e.Face, e.Width, e.AtlasWidth)
}

// RenderSizeError reports a renderer that broke the output size contract.
type RenderSizeError struct {
	Face                  int
	Width, Height         int
	WantWidth, WantHeight int
}

func (e *RenderSizeError) Error() string {
	return fmt.Sprintf("renderer returned %dx%d for proxy face %d, want %dx%d",
		e.Width, e.Height, e.Face, e.WantWidth, e.WantHeight)
}
