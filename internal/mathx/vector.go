package mathx

import "math"

// Vector2 is a 2D vector in pixels or world units depending on the caller.
type Vector2 struct {
	X, Y float32
}

func NewVector2(x, y float32) Vector2 { return Vector2{X: x, Y: y} }

func (v Vector2) Add(o Vector2) Vector2   { return Vector2{v.X + o.X, v.Y + o.Y} }
func (v Vector2) Sub(o Vector2) Vector2   { return Vector2{v.X - o.X, v.Y - o.Y} }
func (v Vector2) Scale(s float32) Vector2 { return Vector2{v.X * s, v.Y * s} }
func (v Vector2) Mul(o Vector2) Vector2   { return Vector2{v.X * o.X, v.Y * o.Y} }
func (v Vector2) Length() float32         { return float32(math.Hypot(float64(v.X), float64(v.Y))) }
func (v Vector2) IsZero() bool            { return v.X == 0 && v.Y == 0 }
func (v Vector2) Rotate(radians float32) Vector2 {
	s, c := math.Sincos(float64(radians))
	return Vector2{
		X: v.X*float32(c) - v.Y*float32(s),
		Y: v.X*float32(s) + v.Y*float32(c),
	}
}

// Vector3 is a 3D vector.
type Vector3 struct {
	X, Y, Z float32
}

func NewVector3(x, y, z float32) Vector3 { return Vector3{X: x, Y: y, Z: z} }

// One returns (1, 1, 1), the identity scale.
func One() Vector3 { return Vector3{1, 1, 1} }

func (v Vector3) Add(o Vector3) Vector3   { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3   { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float32) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }
func (v Vector3) Mul(o Vector3) Vector3   { return Vector3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }
func (v Vector3) Dot(o Vector3) float32   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vector3) Length() float32         { return float32(math.Sqrt(float64(v.Dot(v)))) }
func (v Vector3) XY() Vector2             { return Vector2{v.X, v.Y} }

// RotateEuler rotates v by Euler angles in degrees, applied X then Y then Z.
func (v Vector3) RotateEuler(deg Vector3) Vector3 {
	out := v
	if deg.X != 0 {
		s, c := sincos(deg.X)
		out = Vector3{out.X, out.Y*c - out.Z*s, out.Y*s + out.Z*c}
	}
	if deg.Y != 0 {
		s, c := sincos(deg.Y)
		out = Vector3{out.X*c + out.Z*s, out.Y, -out.X*s + out.Z*c}
	}
	if deg.Z != 0 {
		s, c := sincos(deg.Z)
		out = Vector3{out.X*c - out.Y*s, out.X*s + out.Y*c, out.Z}
	}
	return out
}

func sincos(deg float32) (float32, float32) {
	s, c := math.Sincos(float64(deg) * math.Pi / 180)
	return float32(s), float32(c)
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float32
}

// Intersect returns the overlap of r and o, or an empty rect when they are disjoint.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }
