package math

import "github.com/chewxy/math32"

// WorldUp is the preferred up axis when building a view basis.
var WorldUp = Vec3{0, 1, 0}

// fallbackUp replaces WorldUp when the view direction is nearly vertical.
var fallbackUp = Vec3{0, 0, 1}

// parallelLimit is the |forward·up| above which the up axis is swapped.
const parallelLimit = 0.999

// Basis is a right-handed orthonormal camera frame. The camera looks along
// Forward; Right and Up span the image plane.
type Basis struct {
	Right   Vec3
	Up      Vec3
	Forward Vec3
}

// BasisFromForward builds a stable basis looking along forward. The same
// forward always yields the same basis, so neighbouring faces do not flip.
func BasisFromForward(forward Vec3) Basis {
	f := forward.Normalize()
	up := WorldUp
	if math32.Abs(f.Dot(up)) > parallelLimit {
		up = fallbackUp
	}
	right := f.Cross(up).Normalize()
	return Basis{
		Right:   right,
		Up:      right.Cross(f),
		Forward: f,
	}
}

// Project returns p expressed on the image plane axes.
func (b Basis) Project(p Vec3) Vec2 {
	return Vec2{p.Dot(b.Right), p.Dot(b.Up)}
}
