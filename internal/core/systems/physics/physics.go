package physics

import (
	"fmt"
	"math"
)

// Vec3 is a value-type 3D vector. Y is up, +Z is the default forward axis.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

var (
	Zero    = Vec3{}
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: 1}
)

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Scale(f float64) Vec3 { return Vec3{a.X * f, a.Y * f, a.Z * f} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) LenSq() float64 { return a.Dot(a) }

func (a Vec3) Len() float64 { return math.Sqrt(a.LenSq()) }

func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l > 0 {
		return a.Scale(1 / l)
	}
	return a
}

// Flatten projects the vector onto the horizontal plane.
func (a Vec3) Flatten() Vec3 { return Vec3{a.X, 0, a.Z} }

// WithY returns a copy with Y replaced.
func (a Vec3) WithY(y float64) Vec3 { return Vec3{a.X, y, a.Z} }

// RotateY rotates the vector around the up axis by deg degrees. Positive angles
// turn +Z towards +X.
func (a Vec3) RotateY(deg float64) Vec3 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Vec3{a.X*c + a.Z*s, a.Y, -a.X*s + a.Z*c}
}

func (a Vec3) IsFinite() bool {
	return !math.IsNaN(a.X+a.Y+a.Z) && !math.IsInf(a.X+a.Y+a.Z, 0)
}

func (a Vec3) String() string { return fmt.Sprintf("(%.3f, %.3f, %.3f)", a.X, a.Y, a.Z) }

// Distance is the Euclidean distance between two points.
func Distance(a, b Vec3) float64 { return b.Sub(a).Len() }

const angleEpsilon = 1e-15

// AngleDeg returns the unsigned angle between a and b in degrees, in [0, 180].
// Degenerate inputs give 0.
func AngleDeg(a, b Vec3) float64 {
	denom := math.Sqrt(a.LenSq() * b.LenSq())
	if denom < angleEpsilon {
		return 0
	}
	cos := a.Dot(b) / denom
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}
