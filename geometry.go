package pagerender

import "math"

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
//
// Content marks carry the matrix that places them on the page. For an image
// mark the matrix maps the unit square to the image's footprint in page space.
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scale creates a scaling matrix.
func Scale(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transformation to the point (x, y).
func (m Matrix) TransformPoint(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

const geomEpsilon = 1e-6

// QuarterTurns reports whether the matrix is a pure rotation/scale whose
// rotation is a multiple of 90 degrees, and if so how many counter-clockwise
// quarter turns it applies (0..3).
//
// Only these transforms are eligible for direct raster extraction: an
// extracted image can be scaled and quarter-rotated losslessly, but anything
// with shear or a free rotation angle needs the full rasterizer. Callers that
// get ok == false must treat the transform as arbitrary.
func (m Matrix) QuarterTurns() (turns int, ok bool) {
	switch {
	case math.Abs(m.B) < geomEpsilon && math.Abs(m.D) < geomEpsilon:
		// Axis-aligned: 0 or 180 degrees depending on axis signs.
		if m.A > 0 && m.E > 0 {
			return 0, true
		}
		if m.A < 0 && m.E < 0 {
			return 2, true
		}
	case math.Abs(m.A) < geomEpsilon && math.Abs(m.E) < geomEpsilon:
		// Axes swapped: 90 or 270 degrees.
		if m.B < 0 && m.D > 0 {
			return 1, true
		}
		if m.B > 0 && m.D < 0 {
			return 3, true
		}
	}
	return 0, false
}

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether r fully contains other, with a small tolerance so
// that transforms computed in floating point still count as full coverage.
func (r Rect) Contains(other Rect) bool {
	const tol = 0.5 // half a point of slack at each edge
	return other.X >= r.X-tol &&
		other.Y >= r.Y-tol &&
		other.X+other.W <= r.X+r.W+tol &&
		other.Y+other.H <= r.Y+r.H+tol
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// TransformBounds returns the axis-aligned bounding box of the unit square
// under the transformation m.
func (m Matrix) TransformBounds() Rect {
	x0, y0 := m.TransformPoint(0, 0)
	x1, y1 := m.TransformPoint(1, 0)
	x2, y2 := m.TransformPoint(0, 1)
	x3, y3 := m.TransformPoint(1, 1)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
