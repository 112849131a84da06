package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	b = b.Extend(Vec3{-1, -1, -1}).Extend(Vec3{1, 1, 1})
	if b.IsEmpty() {
		t.Fatal("box with points should not be empty")
	}
	if c := b.Center(); c != (Vec3{}) {
		t.Errorf("Center() = %v, want origin", c)
	}
	if r := b.Radius(); r < 1.731 || r > 1.733 {
		t.Errorf("Radius() = %v, want sqrt(3)", r)
	}
	seen := make(map[Vec3]bool)
	for _, c := range b.Corners() {
		if c.Min(b.Min) != b.Min || c.Max(b.Max) != b.Max {
			t.Errorf("corner %v outside the box", c)
		}
		seen[c] = true
	}
	if len(seen) != 8 {
		t.Errorf("got %d distinct corners, want 8", len(seen))
	}
}

func TestBasisFromForward(t *testing.T) {
	dirs := []Vec3{
		{0, 0, -1}, {0, 0, 1}, {1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0}, {1, 1, 1},
	}
	for _, d := range dirs {
		b := BasisFromForward(d)
		for name, v := range map[string]Vec3{"right": b.Right, "up": b.Up, "forward": b.Forward} {
			if l := v.Length(); l < 0.999 || l > 1.001 {
				t.Errorf("forward %v: %s not unit (%v)", d, name, l)
			}
		}
		if dot := b.Right.Dot(b.Up); dot > 1e-5 || dot < -1e-5 {
			t.Errorf("forward %v: right·up = %v", d, dot)
		}
		if dot := b.Right.Dot(b.Forward); dot > 1e-5 || dot < -1e-5 {
			t.Errorf("forward %v: right·forward = %v", d, dot)
		}
		// Right-handed: right x up = -forward.
		if !b.Right.Cross(b.Up).ApproxEqual(b.Forward.Neg(), 1e-5) {
			t.Errorf("forward %v: basis not right-handed", d)
		}
	}

	b := BasisFromForward(Vec3{0, 0, -1})
	if !b.Right.ApproxEqual(Vec3{1, 0, 0}, 1e-6) || !b.Up.ApproxEqual(Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("looking down -Z: right=%v up=%v", b.Right, b.Up)
	}
}
