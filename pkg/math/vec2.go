package math

// Vec2 is a 2D vector. UV coordinates use it with X = u and Y = v.
type Vec2 struct {
	X, Y float32
}
